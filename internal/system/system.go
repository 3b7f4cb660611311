// Package system assembles a differentiable potential and its inputs from a
// config.
package system

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/bondkit/internal/compute"
	"github.com/san-kum/bondkit/internal/config"
	"github.com/san-kum/bondkit/internal/ndarray"
	"github.com/san-kum/bondkit/internal/potential"
)

type System[T ndarray.Float] struct {
	Name        string
	AtomNames   []string
	Bonds       [][2]int
	Coords      *ndarray.Array[T]
	Params      *ndarray.Array[T]
	ParamLabels []string
	Masses      []T
	Potential   *potential.Sum[T]
	Backend     compute.Backend
}

type Option[T ndarray.Float] func(*buildOptions[T])

type buildOptions[T ndarray.Float] struct {
	registry *Registry[T]
	backend  compute.Backend
	logger   *slog.Logger
}

func WithRegistry[T ndarray.Float](r *Registry[T]) Option[T] {
	return func(o *buildOptions[T]) { o.registry = r }
}

// WithBackend overrides the backend named in the config.
func WithBackend[T ndarray.Float](b compute.Backend) Option[T] {
	return func(o *buildOptions[T]) { o.backend = b }
}

func WithLogger[T ndarray.Float](l *slog.Logger) Option[T] {
	return func(o *buildOptions[T]) { o.logger = l }
}

func Build[T ndarray.Float](cfg *config.Config, opts ...Option[T]) (*System[T], error) {
	o := buildOptions[T]{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = NewRegistry[T]()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if o.backend == nil {
		b, err := compute.Lookup(cfg.Backend)
		if err != nil {
			return nil, err
		}
		o.backend = b
	}

	n, d := len(cfg.Atoms), cfg.NumDims()
	sys := &System[T]{
		Name:      cfg.Name,
		AtomNames: make([]string, n),
		Bonds:     append([][2]int(nil), cfg.Bonds...),
		Coords:    ndarray.MustZeros[T](n, d),
		Masses:    make([]T, n),
		Backend:   o.backend,
	}
	for i, a := range cfg.Atoms {
		sys.AtomNames[i] = a.Name
		sys.Masses[i] = T(a.Mass)
		for j, x := range a.Position {
			sys.Coords.Set(T(x), i, j)
		}
	}

	names := cfg.Terms
	if len(names) == 0 {
		names = o.registry.Names()
	}
	var (
		params []float64
		terms  []potential.Potential[T]
	)
	for _, name := range names {
		factory, err := o.registry.Get(name)
		if err != nil {
			return nil, err
		}
		term, err := factory(TermContext{
			Config:      cfg,
			ParamOffset: len(params),
			Backend:     o.backend,
			Logger:      o.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build term %s: %w", name, err)
		}
		terms = append(terms, term.Potential)
		params = append(params, term.Params...)
		sys.ParamLabels = append(sys.ParamLabels, term.Labels...)
	}

	sys.Params = ndarray.MustZeros[T](len(params))
	for i, p := range params {
		sys.Params.Data()[i] = T(p)
	}
	sys.Potential = potential.NewSum(terms...)

	o.logger.Info("system built",
		"name", sys.Name,
		"atoms", n,
		"dims", d,
		"params", len(params),
		"terms", names,
		"backend", o.backend.Name(),
	)
	return sys, nil
}

func (s *System[T]) NumAtoms() int  { return s.Coords.Dim(0) }
func (s *System[T]) NumDims() int   { return s.Coords.Dim(1) }
func (s *System[T]) NumParams() int { return s.Params.Len() }

// Evaluate runs the full potential at the system's current coordinates.
// dxdps may be nil.
func (s *System[T]) Evaluate(dxdps *ndarray.Array[T]) (*potential.Derivatives[T], error) {
	return potential.Evaluate[T](s.Potential, s.Coords, s.Params, dxdps)
}

// EvaluateAt runs the potential at coords without touching s.Coords, writing
// into out.
func (s *System[T]) EvaluateAt(coords *ndarray.Array[T], out *potential.Derivatives[T]) error {
	return s.Potential.DerivativesHost(s.NumAtoms(), s.NumParams(), coords, s.Params, nil, out)
}
