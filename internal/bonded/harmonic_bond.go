// Package bonded implements potentials over a fixed list of bonded atoms.
package bonded

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/bondkit/internal/compute"
	"github.com/san-kum/bondkit/internal/ndarray"
	"github.com/san-kum/bondkit/internal/potential"
)

// ParamsPerBond is the number of parameter slots each bond references:
// the spring constant k followed by the equilibrium length r0.
const ParamsPerBond = 2

// HarmonicBond is the potential E = sum 0.5 k (r - r0)^2 over a fixed list
// of bonded atom pairs. It is immutable after construction.
type HarmonicBond[T ndarray.Float] struct {
	bondIdxs  []int
	paramIdxs []int
	backend   compute.Backend
	log       *slog.Logger
}

type Option func(*options)

type options struct {
	backend compute.Backend
	log     *slog.Logger
}

// WithBackend selects the kernel backend. Defaults to compute.GetBackend().
func WithBackend(b compute.Backend) Option {
	return func(o *options) { o.backend = b }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// NewHarmonicBond copies and validates the topology. bondIdxs holds two atom
// indices per bond and paramIdxs two parameter slots (k, r0) per bond.
func NewHarmonicBond[T ndarray.Float](bondIdxs, paramIdxs []int, opts ...Option) (*HarmonicBond[T], error) {
	if err := validateTopology(bondIdxs, paramIdxs); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.backend == nil {
		o.backend = compute.GetBackend()
	}
	if o.log == nil {
		o.log = slog.Default()
	}

	return &HarmonicBond[T]{
		bondIdxs:  append([]int(nil), bondIdxs...),
		paramIdxs: append([]int(nil), paramIdxs...),
		backend:   o.backend,
		log:       o.log,
	}, nil
}

func validateTopology(bondIdxs, paramIdxs []int) error {
	if len(bondIdxs)%2 != 0 {
		return fmt.Errorf("%w: bond_idxs has odd length %d", potential.ErrInvalidTopology, len(bondIdxs))
	}
	numBonds := len(bondIdxs) / 2
	if len(paramIdxs) != ParamsPerBond*numBonds {
		return fmt.Errorf("%w: %d bonds need %d param_idxs, got %d",
			potential.ErrInvalidTopology, numBonds, ParamsPerBond*numBonds, len(paramIdxs))
	}
	for bond := 0; bond < numBonds; bond++ {
		a, b := bondIdxs[bond*2], bondIdxs[bond*2+1]
		if a < 0 || b < 0 {
			return fmt.Errorf("%w: bond %d has negative atom index (%d, %d)", potential.ErrInvalidTopology, bond, a, b)
		}
		if a == b {
			return fmt.Errorf("%w: bond %d joins atom %d to itself", potential.ErrInvalidTopology, bond, a)
		}
	}
	for i, p := range paramIdxs {
		if p < 0 {
			return fmt.Errorf("%w: param_idxs[%d] is negative (%d)", potential.ErrInvalidTopology, i, p)
		}
	}
	return nil
}

func (h *HarmonicBond[T]) Name() string { return "harmonic_bond" }

func (h *HarmonicBond[T]) NumBonds() int { return len(h.bondIdxs) / 2 }

// BondIdxs returns a copy of the flattened bond list.
func (h *HarmonicBond[T]) BondIdxs() []int { return append([]int(nil), h.bondIdxs...) }

// ParamIdxs returns a copy of the flattened parameter-slot list.
func (h *HarmonicBond[T]) ParamIdxs() []int { return append([]int(nil), h.paramIdxs...) }

func (h *HarmonicBond[T]) Backend() compute.Backend { return h.backend }

// DerivativesHost validates every buffer and topology index for this call,
// zeroes out and accumulates E, dE/dp, dE/dx and d2E/dxdp into it. Nothing is
// written to out when validation fails.
func (h *HarmonicBond[T]) DerivativesHost(numAtoms, numParams int, coords, params, dxdps *ndarray.Array[T], out *potential.Derivatives[T]) error {
	numDims, err := potential.CheckInputs(numAtoms, numParams, coords, params, dxdps)
	if err != nil {
		return err
	}
	if err := out.CheckShapes(numAtoms, numDims, numParams); err != nil {
		return err
	}
	if err := h.checkBounds(numAtoms, numParams); err != nil {
		return err
	}

	out.Zero()

	job := &compute.BondJob[T]{
		NumAtoms:  numAtoms,
		NumDims:   numDims,
		NumParams: numParams,
		BondIdxs:  h.bondIdxs,
		ParamIdxs: h.paramIdxs,
		Coords:    coords.Data(),
		Params:    params.Data(),
		E:         out.E.Data(),
		DEDp:      out.DEDp.Data(),
		DEDx:      out.DEDx.Data(),
		D2EDxDp:   out.D2EDxDp.Data(),
	}
	if dxdps != nil {
		job.DxDps = dxdps.Data()
	}

	h.log.Debug("harmonic bond derivatives",
		"backend", h.backend.Name(),
		"bonds", h.NumBonds(),
		"atoms", numAtoms,
		"dims", numDims,
		"params", numParams)

	compute.RunHarmonicBond(h.backend, job)
	return nil
}

func (h *HarmonicBond[T]) checkBounds(numAtoms, numParams int) error {
	for bond := 0; bond < h.NumBonds(); bond++ {
		for _, a := range h.bondIdxs[bond*2 : bond*2+2] {
			if a >= numAtoms {
				return &potential.IndexError{Term: h.Name(), Bond: bond, Kind: potential.AtomIndex, Index: a, Bound: numAtoms}
			}
		}
		for _, p := range h.paramIdxs[bond*2 : bond*2+2] {
			if p >= numParams {
				return &potential.IndexError{Term: h.Name(), Bond: bond, Kind: potential.ParamIndex, Index: p, Bound: numParams}
			}
		}
	}
	return nil
}
