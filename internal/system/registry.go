package system

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/san-kum/bondkit/internal/bonded"
	"github.com/san-kum/bondkit/internal/compute"
	"github.com/san-kum/bondkit/internal/config"
	"github.com/san-kum/bondkit/internal/forcefield"
	"github.com/san-kum/bondkit/internal/ndarray"
	"github.com/san-kum/bondkit/internal/potential"
)

var ErrUnknownTerm = errors.New("system: unknown term")

// TermContext is what a term factory sees while a system is being built.
// ParamOffset is the index of the term's first slot in the global parameter
// vector.
type TermContext struct {
	Config      *config.Config
	ParamOffset int
	Backend     compute.Backend
	Logger      *slog.Logger
}

// Term is a built potential plus the parameter slots it owns.
type Term[T ndarray.Float] struct {
	Potential potential.Potential[T]
	Params    []float64
	Labels    []string
}

type TermFactory[T ndarray.Float] func(tc TermContext) (*Term[T], error)

type Registry[T ndarray.Float] struct {
	terms map[string]TermFactory[T]
}

// NewRegistry returns a registry with the built-in terms.
func NewRegistry[T ndarray.Float]() *Registry[T] {
	r := &Registry[T]{terms: make(map[string]TermFactory[T])}
	r.Register("harmonic_bond", harmonicBondTerm[T])
	return r
}

func (r *Registry[T]) Register(name string, f TermFactory[T]) {
	r.terms[name] = f
}

func (r *Registry[T]) Get(name string) (TermFactory[T], error) {
	f, ok := r.terms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTerm, name)
	}
	return f, nil
}

func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.terms))
	for name := range r.terms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func harmonicBondTerm[T ndarray.Float](tc TermContext) (*Term[T], error) {
	h := &forcefield.HarmonicBondHandler{Types: tc.Config.ForceField.HarmonicBond}
	bondIdxs, paramIdxs, err := h.Parameterize(tc.Config.Molecule())
	if err != nil {
		return nil, err
	}
	for i := range paramIdxs {
		paramIdxs[i] += tc.ParamOffset
	}

	hb, err := bonded.NewHarmonicBond[T](bondIdxs, paramIdxs, bonded.WithBackend(tc.Backend), bonded.WithLogger(tc.Logger))
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, 2*len(h.Types))
	for _, t := range h.Types {
		labels = append(labels, fmt.Sprintf("k(%s)", t.Pattern), fmt.Sprintf("r0(%s)", t.Pattern))
	}
	return &Term[T]{Potential: hb, Params: h.Params(), Labels: labels}, nil
}
