// Package scene provides a small reference light-transport collaborator:
// quads and planes, Lambertian, mirror and emissive materials, a pinhole
// camera, path and direct integrators, and a registry of built-in scenes.
package scene

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownScene is returned for names missing from the registry
var ErrUnknownScene = errors.New("scene: unknown scene")

// Options sizes a built-in scene
type Options struct {
	Width  int // Image width in pixels
	Height int // Image height in pixels
}

// DefaultOptions returns the size used when the caller sets none
func DefaultOptions() Options {
	return Options{Width: 256, Height: 256}
}

// Scene bundles a world with the camera that views it and the depth its
// path tracer should use
type Scene struct {
	Name     string
	World    *World
	Camera   *PinholeCamera
	MaxDepth int
}

// Info describes a built-in scene for listings
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type entry struct {
	build       func(opts Options) *Scene
	description string
}

var registry = map[string]entry{
	"plane":   {NewPlaneScene, "Infinite grey plane under a uniform sky"},
	"cornell": {NewCornellScene, "Cornell box with an area light and a mirror box"},
}

// Names lists the built-in scenes in alphabetical order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List describes the built-in scenes in name order
func List() []Info {
	names := Names()
	infos := make([]Info, len(names))
	for i, name := range names {
		infos[i] = Info{Name: name, Description: registry[name].description}
	}
	return infos
}

// New builds the named scene
func New(name string, opts Options) (*Scene, error) {
	e, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownScene, name, Names())
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("scene: invalid size %dx%d", opts.Width, opts.Height)
	}
	return e.build(opts), nil
}
