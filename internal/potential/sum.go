package potential

import (
	"fmt"

	"github.com/san-kum/bondkit/internal/ndarray"
	"golang.org/x/sync/errgroup"
)

// Sum is a potential whose energy is the sum of independent terms.
//
// Each term writes into private outputs, so terms run concurrently; out is
// written only after every term has succeeded.
type Sum[T ndarray.Float] struct {
	terms []Potential[T]
}

// NewSum composes terms. The slice is copied.
func NewSum[T ndarray.Float](terms ...Potential[T]) *Sum[T] {
	return &Sum[T]{terms: append([]Potential[T](nil), terms...)}
}

func (s *Sum[T]) Name() string { return "sum" }

// Terms returns a copy of the composed terms.
func (s *Sum[T]) Terms() []Potential[T] {
	return append([]Potential[T](nil), s.terms...)
}

func (s *Sum[T]) DerivativesHost(numAtoms, numParams int, coords, params, dxdps *ndarray.Array[T], out *Derivatives[T]) error {
	numDims, err := CheckInputs(numAtoms, numParams, coords, params, dxdps)
	if err != nil {
		return err
	}
	if err := out.CheckShapes(numAtoms, numDims, numParams); err != nil {
		return err
	}

	partials := make([]*Derivatives[T], len(s.terms))
	var g errgroup.Group
	for i, term := range s.terms {
		g.Go(func() error {
			part, err := NewDerivatives[T](numAtoms, numDims, numParams)
			if err != nil {
				return err
			}
			if err := term.DerivativesHost(numAtoms, numParams, coords, params, dxdps, part); err != nil {
				return fmt.Errorf("term %d (%s): %w", i, term.Name(), err)
			}
			partials[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out.Zero()
	for _, part := range partials {
		out.Add(part)
	}
	return nil
}
