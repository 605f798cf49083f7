package renderer

import "errors"

var (
	// ErrNoWorkers is returned when the worker count is negative
	ErrNoWorkers = errors.New("renderer: no workers")

	// ErrEmptyBounds is returned for a render region with no pixels
	ErrEmptyBounds = errors.New("renderer: empty bounds")

	// ErrNilCollaborator is returned when the scene, camera, integrators or
	// predictor factory is missing
	ErrNilCollaborator = errors.New("renderer: nil collaborator")
)
