package potential

import (
	"errors"
	"fmt"
)

// Contract violations reported by potentials.
var (
	// ErrInvalidTopology indicates structurally inconsistent index sequences
	// at construction time.
	ErrInvalidTopology = errors.New("potential: invalid topology")

	// ErrShapeMismatch indicates a buffer whose shape disagrees with the
	// declared atom/parameter counts.
	ErrShapeMismatch = errors.New("potential: shape mismatch")

	// ErrIndexOutOfRange indicates a topology index outside the bounds of
	// the buffers passed to a call.
	ErrIndexOutOfRange = errors.New("potential: index out of range")
)

// IndexKind names which index space an IndexError refers to.
type IndexKind string

const (
	AtomIndex  IndexKind = "atom"
	ParamIndex IndexKind = "param"
)

// IndexError reports the first topology entry that does not fit the buffers
// of a call.
type IndexError struct {
	Term  string
	Bond  int
	Kind  IndexKind
	Index int
	Bound int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: %s: bond %d references %s index %d (bound %d)",
		ErrIndexOutOfRange, e.Term, e.Bond, e.Kind, e.Index, e.Bound)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

// ShapeError builds an error wrapping ErrShapeMismatch for the named buffer.
func ShapeError(buffer string, got, want any) error {
	return fmt.Errorf("%w: %s has shape %v, want %v", ErrShapeMismatch, buffer, got, want)
}
