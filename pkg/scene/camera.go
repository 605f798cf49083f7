package scene

import (
	"math"

	"github.com/df07/go-iile/pkg/core"
	"github.com/df07/go-iile/pkg/tracer"
)

// CameraConfig describes a pinhole camera
type CameraConfig struct {
	Center core.Vec3 // Eye position
	LookAt core.Vec3 // Point the camera looks at
	Up     core.Vec3 // Up direction
	Width  int       // Image width in pixels
	Height int       // Image height in pixels
	VFov   float64   // Vertical field of view in degrees
}

// PinholeCamera generates rays through a virtual image plane at unit
// distance in front of the eye
type PinholeCamera struct {
	config          CameraConfig
	origin          core.Vec3
	upperLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
}

// NewPinholeCamera creates a camera from its configuration
func NewPinholeCamera(config CameraConfig) *PinholeCamera {
	aspectRatio := float64(config.Width) / float64(config.Height)
	viewportHeight := 2.0 * math.Tan(config.VFov*math.Pi/360.0)
	viewportWidth := aspectRatio * viewportHeight

	// Orthonormal camera frame; w points backwards
	w := config.Center.Subtract(config.LookAt).Normalize()
	u := config.Up.Cross(w).Normalize()
	v := w.Cross(u)

	horizontal := u.Multiply(viewportWidth)
	vertical := v.Multiply(-viewportHeight) // film y grows downwards
	upperLeftCorner := config.Center.
		Subtract(horizontal.Multiply(0.5)).
		Subtract(vertical.Multiply(0.5)).
		Subtract(w)

	return &PinholeCamera{
		config:          config,
		origin:          config.Center,
		upperLeftCorner: upperLeftCorner,
		horizontal:      horizontal,
		vertical:        vertical,
	}
}

// Config returns the camera configuration
func (c *PinholeCamera) Config() CameraConfig {
	return c.config
}

// GenerateRay implements tracer.Camera. The returned direction is unit length.
func (c *PinholeCamera) GenerateRay(s tracer.CameraSample) core.Ray {
	sx := s.FilmX / float64(c.config.Width)
	sy := s.FilmY / float64(c.config.Height)
	direction := c.upperLeftCorner.
		Add(c.horizontal.Multiply(sx)).
		Add(c.vertical.Multiply(sy)).
		Subtract(c.origin)
	return core.NewRay(c.origin, direction.Normalize())
}
