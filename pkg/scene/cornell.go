package scene

import (
	"github.com/df07/go-iile/pkg/core"
)

// NewCornellScene creates a classic Cornell box with quad walls, a ceiling
// area light, a short white box and a tall mirror box
func NewCornellScene(opts Options) *Scene {
	camera := NewPinholeCamera(CameraConfig{
		Center: core.NewVec3(278, 278, -800), // Outside the box looking in
		LookAt: core.NewVec3(278, 278, 0),
		Up:     core.NewVec3(0, 1, 0),
		Width:  opts.Width,
		Height: opts.Height,
		VFov:   40,
	})

	world := NewWorld(core.Vec3{}) // Black background

	white := NewLambertian(core.NewVec3(0.73, 0.73, 0.73))
	red := NewLambertian(core.NewVec3(0.65, 0.05, 0.05))
	green := NewLambertian(core.NewVec3(0.12, 0.45, 0.15))
	mirror := NewMirror(core.NewVec3(0.8, 0.8, 0.9))

	// Standard 555 unit box
	boxSize := 555.0

	world.Add(
		// Floor
		NewQuad(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, boxSize), core.NewVec3(boxSize, 0, 0), white),
		// Ceiling
		NewQuad(core.NewVec3(0, boxSize, 0), core.NewVec3(boxSize, 0, 0), core.NewVec3(0, 0, boxSize), white),
		// Back wall
		NewQuad(core.NewVec3(0, 0, boxSize), core.NewVec3(boxSize, 0, 0), core.NewVec3(0, boxSize, 0), white),
		// Left wall
		NewQuad(core.NewVec3(0, 0, 0), core.NewVec3(0, boxSize, 0), core.NewVec3(0, 0, boxSize), red),
		// Right wall
		NewQuad(core.NewVec3(boxSize, 0, 0), core.NewVec3(0, 0, boxSize), core.NewVec3(0, boxSize, 0), green),
	)

	lightSize := 130.0
	lightOffset := (boxSize - lightSize) / 2.0
	world.AddQuadLight(
		core.NewVec3(lightOffset, boxSize-1, lightOffset), // Slightly below the ceiling
		core.NewVec3(lightSize, 0, 0),
		core.NewVec3(0, 0, lightSize),
		core.NewVec3(15, 15, 15),
	)

	world.Add(NewBox(core.NewVec3(130, 0, 65), core.NewVec3(295, 165, 230), white)...)
	world.Add(NewBox(core.NewVec3(265, 0, 295), core.NewVec3(430, 330, 460), mirror)...)

	return &Scene{Name: "cornell", World: world, Camera: camera, MaxDepth: 40}
}
