package core

import (
	"fmt"
	"image"
)

// InvariantError describes a violated programming invariant: a scheduling or
// geometry bookkeeping defect rather than a data condition. It is raised with
// panic and recovered at the worker boundary.
type InvariantError struct {
	Subsystem string       // Package or component that detected the violation
	Detail    string       // Human readable description
	Point     *image.Point // Offending coordinates, if any
}

func (e *InvariantError) Error() string {
	if e.Point != nil {
		return fmt.Sprintf("%s: invariant violated at (%d,%d): %s", e.Subsystem, e.Point.X, e.Point.Y, e.Detail)
	}
	return fmt.Sprintf("%s: invariant violated: %s", e.Subsystem, e.Detail)
}

// Invariantf panics with an *InvariantError
func Invariantf(subsystem string, format string, args ...interface{}) {
	panic(&InvariantError{Subsystem: subsystem, Detail: fmt.Sprintf(format, args...)})
}

// InvariantAtf panics with an *InvariantError carrying the offending point
func InvariantAtf(subsystem string, p image.Point, format string, args ...interface{}) {
	panic(&InvariantError{Subsystem: subsystem, Detail: fmt.Sprintf(format, args...), Point: &p})
}

// RecoverInvariant converts a recovered panic value into an error. Values that
// are not errors are wrapped in an InvariantError for the given subsystem.
func RecoverInvariant(subsystem string, r interface{}) error {
	if r == nil {
		return nil
	}
	if err, ok := r.(error); ok {
		return err
	}
	return &InvariantError{Subsystem: subsystem, Detail: fmt.Sprint(r)}
}
