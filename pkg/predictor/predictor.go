// Package predictor defines the data contract with the learned radiance
// predictor and the connectors used to reach it.
package predictor

import (
	"context"
	"fmt"

	"github.com/df07/go-iile/pkg/film"
)

// Predictor maps normalized radiance, normal and distance maps captured at a
// hemispheric viewpoint to a predicted radiance map of the same size.
// Implementations need not be safe for concurrent use; each render worker
// owns its own instance.
type Predictor interface {
	Predict(ctx context.Context, radiance, normals, distance *film.Grid[float32]) (*film.Grid[float32], error)
}

// Func adapts a plain function to the Predictor interface
type Func func(ctx context.Context, radiance, normals, distance *film.Grid[float32]) (*film.Grid[float32], error)

// Predict calls f
func (f Func) Predict(ctx context.Context, radiance, normals, distance *film.Grid[float32]) (*film.Grid[float32], error) {
	return f(ctx, radiance, normals, distance)
}

// Passthrough returns a predictor that echoes the normalized radiance map.
// It lets the pipeline run without a trained model.
func Passthrough() Predictor {
	return Func(func(ctx context.Context, radiance, normals, distance *film.Grid[float32]) (*film.Grid[float32], error) {
		if err := CheckMaps(radiance, normals, distance); err != nil {
			return nil, err
		}
		return radiance.Clone(), nil
	})
}

// Factory creates the predictor owned by one worker
type Factory func(worker int) (Predictor, error)

// PassthroughFactory hands every worker a Passthrough predictor
func PassthroughFactory() Factory {
	return func(int) (Predictor, error) {
		return Passthrough(), nil
	}
}

// CheckMaps verifies that the three maps share dimensions and carry the
// expected channel counts (3, 3 and 1).
func CheckMaps(radiance, normals, distance *film.Grid[float32]) error {
	if radiance == nil || normals == nil || distance == nil {
		return fmt.Errorf("%w: missing input map", ErrProtocol)
	}
	if !radiance.SameSize(normals) || !radiance.SameSize(distance) {
		return fmt.Errorf("%w: map sizes differ: radiance %dx%d, normals %dx%d, distance %dx%d", ErrProtocol,
			radiance.Width, radiance.Height, normals.Width, normals.Height, distance.Width, distance.Height)
	}
	if radiance.Channels != 3 || normals.Channels != 3 || distance.Channels != 1 {
		return fmt.Errorf("%w: channel counts %d/%d/%d, want 3/3/1", ErrProtocol,
			radiance.Channels, normals.Channels, distance.Channels)
	}
	return nil
}
