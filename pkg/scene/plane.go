package scene

import (
	"github.com/df07/go-iile/pkg/core"
)

// NewPlaneScene creates an infinite grey plane under a uniform white sky,
// seen from one unit above. Every pixel sees the same surface and lighting.
func NewPlaneScene(opts Options) *Scene {
	world := NewWorld(core.NewVec3(1, 1, 1))
	world.Add(NewPlane(core.Vec3{}, core.NewVec3(0, 1, 0), NewLambertian(core.NewVec3(0.5, 0.5, 0.5))))

	camera := NewPinholeCamera(CameraConfig{
		Center: core.NewVec3(0, 1, 0),
		LookAt: core.NewVec3(0, 0, 0),
		Up:     core.NewVec3(0, 0, -1),
		Width:  opts.Width,
		Height: opts.Height,
		VFov:   60,
	})

	return &Scene{Name: "plane", World: world, Camera: camera, MaxDepth: 8}
}
