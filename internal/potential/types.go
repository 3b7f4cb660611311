package potential

import (
	"fmt"

	"github.com/san-kum/bondkit/internal/ndarray"
)

// Potential is an energy function of coordinates and parameters,
// differentiable in both.
//
// DerivativesHost validates the buffers against numAtoms and numParams,
// zeroes out and accumulates every contribution into it. dxdps may be nil,
// which is equivalent to an all-zero upstream sensitivity.
type Potential[T ndarray.Float] interface {
	Name() string
	DerivativesHost(numAtoms, numParams int, coords, params, dxdps *ndarray.Array[T], out *Derivatives[T]) error
}

// Derivatives is the output set of one derivative call.
type Derivatives[T ndarray.Float] struct {
	E       *ndarray.Array[T] // [1]
	DEDp    *ndarray.Array[T] // [P]
	DEDx    *ndarray.Array[T] // [N][D]
	D2EDxDp *ndarray.Array[T] // [P][N][D]
}

// NewDerivatives allocates zeroed outputs for numAtoms x numDims coordinates
// and numParams parameters.
func NewDerivatives[T ndarray.Float](numAtoms, numDims, numParams int) (*Derivatives[T], error) {
	if numAtoms < 0 || numDims < 0 || numParams < 0 {
		return nil, fmt.Errorf("%w: negative size (atoms=%d dims=%d params=%d)", ErrShapeMismatch, numAtoms, numDims, numParams)
	}
	return &Derivatives[T]{
		E:       ndarray.MustZeros[T](1),
		DEDp:    ndarray.MustZeros[T](numParams),
		DEDx:    ndarray.MustZeros[T](numAtoms, numDims),
		D2EDxDp: ndarray.MustZeros[T](numParams, numAtoms, numDims),
	}, nil
}

// Energy returns E[0].
func (d *Derivatives[T]) Energy() T {
	return d.E.Data()[0]
}

// Zero clears every output buffer.
func (d *Derivatives[T]) Zero() {
	d.E.Zero()
	d.DEDp.Zero()
	d.DEDx.Zero()
	d.D2EDxDp.Zero()
}

// Add accumulates other into d. Shapes must already match.
func (d *Derivatives[T]) Add(other *Derivatives[T]) {
	addInto(d.E.Data(), other.E.Data())
	addInto(d.DEDp.Data(), other.DEDp.Data())
	addInto(d.DEDx.Data(), other.DEDx.Data())
	addInto(d.D2EDxDp.Data(), other.D2EDxDp.Data())
}

func addInto[T ndarray.Float](dst, src []T) {
	for i, v := range src {
		dst[i] += v
	}
}

// CheckShapes validates the output set against the call dimensions.
func (d *Derivatives[T]) CheckShapes(numAtoms, numDims, numParams int) error {
	if d == nil || d.E == nil || d.DEDp == nil || d.DEDx == nil || d.D2EDxDp == nil {
		return fmt.Errorf("%w: output buffers not allocated", ErrShapeMismatch)
	}
	if !d.E.HasShape(1) {
		return ShapeError("E", d.E.Shape(), ndarray.Shape{1})
	}
	if !d.DEDp.HasShape(numParams) {
		return ShapeError("dE_dp", d.DEDp.Shape(), ndarray.Shape{numParams})
	}
	if !d.DEDx.HasShape(numAtoms, numDims) {
		return ShapeError("dE_dx", d.DEDx.Shape(), ndarray.Shape{numAtoms, numDims})
	}
	if !d.D2EDxDp.HasShape(numParams, numAtoms, numDims) {
		return ShapeError("d2E_dxdp", d.D2EDxDp.Shape(), ndarray.Shape{numParams, numAtoms, numDims})
	}
	return nil
}

// CheckInputs validates coords, params and dxdps against the declared counts
// and returns the coordinate dimensionality.
func CheckInputs[T ndarray.Float](numAtoms, numParams int, coords, params, dxdps *ndarray.Array[T]) (int, error) {
	if numAtoms < 0 || numParams < 0 {
		return 0, fmt.Errorf("%w: negative size (atoms=%d params=%d)", ErrShapeMismatch, numAtoms, numParams)
	}
	if coords == nil || coords.Rank() != 2 || coords.Dim(0) != numAtoms || coords.Dim(1) < 1 {
		var got ndarray.Shape
		if coords != nil {
			got = coords.Shape()
		}
		return 0, ShapeError("coords", got, fmt.Sprintf("[%d D>=1]", numAtoms))
	}
	numDims := coords.Dim(1)
	if !params.HasShape(numParams) {
		var got ndarray.Shape
		if params != nil {
			got = params.Shape()
		}
		return 0, ShapeError("params", got, ndarray.Shape{numParams})
	}
	if dxdps != nil && !dxdps.HasShape(numParams, numAtoms, numDims) {
		return 0, ShapeError("dxdps", dxdps.Shape(), ndarray.Shape{numParams, numAtoms, numDims})
	}
	return numDims, nil
}

// Evaluate infers the call dimensions from coords ([N][D]) and params ([P]),
// allocates fresh outputs and runs p.DerivativesHost.
func Evaluate[T ndarray.Float](p Potential[T], coords, params, dxdps *ndarray.Array[T]) (*Derivatives[T], error) {
	if coords == nil || coords.Rank() != 2 {
		return nil, fmt.Errorf("%w: coords must be 2-D", ErrShapeMismatch)
	}
	if params == nil || params.Rank() != 1 {
		return nil, fmt.Errorf("%w: params must be 1-D", ErrShapeMismatch)
	}
	numAtoms, numDims, numParams := coords.Dim(0), coords.Dim(1), params.Dim(0)

	out, err := NewDerivatives[T](numAtoms, numDims, numParams)
	if err != nil {
		return nil, err
	}
	if err := p.DerivativesHost(numAtoms, numParams, coords, params, dxdps, out); err != nil {
		return nil, err
	}
	return out, nil
}
