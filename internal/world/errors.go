package world

import (
	"errors"

	"github.com/san-kum/rigidsim/internal/geom"
)

// Domain errors for world operations.
var (
	// ErrInvalidArgument indicates a malformed request (zero dt, nil shape,
	// non-finite value).
	ErrInvalidArgument = errors.New("world: invalid argument")

	// ErrNotFound indicates a stale or never-issued body or joint id.
	ErrNotFound = errors.New("world: id not found")

	// ErrDegenerateGeometry indicates a shape that cannot support
	// simulation (zero extents, non-finite, too few hull points).
	ErrDegenerateGeometry = geom.ErrDegenerate
)

// StepError wraps an error with simulation context.
type StepError struct {
	Step    uint64
	Time    float64
	Body    BodyID
	Wrapped error
}

func (e *StepError) Error() string {
	return e.Wrapped.Error()
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
