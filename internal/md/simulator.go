// Package md runs molecular dynamics on a bondkit system.
package md

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/bondkit/internal/metrics"
	"github.com/san-kum/bondkit/internal/ndarray"
	"github.com/san-kum/bondkit/internal/system"
)

// Frame is the state handed to observers after each step. Positions and
// Velocities alias integrator storage and are only valid during the call.
type Frame[T ndarray.Float] struct {
	metrics.Sample
	Positions  *ndarray.Array[T]
	Velocities *ndarray.Array[T]
}

type Observer[T ndarray.Float] interface {
	OnStep(f Frame[T])
}

type ObserverFunc[T ndarray.Float] func(f Frame[T])

func (fn ObserverFunc[T]) OnStep(f Frame[T]) { fn(f) }

type Result[T ndarray.Float] struct {
	Times      []float64
	Potential  []float64
	Kinetic    []float64
	Total      []float64
	StepsTaken int
	Positions  *ndarray.Array[T]
	Velocities *ndarray.Array[T]
	Metrics    map[string]float64
}

func (r *Result[T]) record(s metrics.Sample) {
	r.Times = append(r.Times, s.Time)
	r.Potential = append(r.Potential, s.Potential)
	r.Kinetic = append(r.Kinetic, s.Kinetic)
	r.Total = append(r.Total, s.Total())
}

// Samples returns the recorded energies as metric samples.
func (r *Result[T]) Samples() []metrics.Sample {
	out := make([]metrics.Sample, len(r.Times))
	for i := range r.Times {
		out[i] = metrics.Sample{Time: r.Times[i], Potential: r.Potential[i], Kinetic: r.Kinetic[i]}
	}
	return out
}

type Simulator[T ndarray.Float] struct {
	sys       *system.System[T]
	cfg       Config
	metrics   []metrics.Metric
	observers []Observer[T]
	log       *slog.Logger
}

type Option[T ndarray.Float] func(*Simulator[T])

func WithLogger[T ndarray.Float](l *slog.Logger) Option[T] {
	return func(s *Simulator[T]) { s.log = l }
}

func New[T ndarray.Float](sys *system.System[T], cfg Config, opts ...Option[T]) (*Simulator[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator[T]{
		sys: sys,
		cfg: cfg,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Simulator[T]) AddMetric(m metrics.Metric) { s.metrics = append(s.metrics, m) }
func (s *Simulator[T]) AddObserver(o Observer[T])  { s.observers = append(s.observers, o) }
func (s *Simulator[T]) Config() Config             { return s.cfg }
func (s *Simulator[T]) System() *system.System[T]  { return s.sys }

// Run integrates cfg.Steps steps from v0 (nil means at rest). A cancelled
// context or an unstable trajectory returns the partial result with the error.
func (s *Simulator[T]) Run(ctx context.Context, v0 *ndarray.Array[T]) (*Result[T], error) {
	integ, err := NewVerlet(s.sys, s.cfg.Dt, v0)
	if err != nil {
		return nil, err
	}

	result := &Result[T]{
		Metrics: make(map[string]float64),
	}
	for _, m := range s.metrics {
		m.Reset()
	}
	defer func() {
		result.Positions = integ.Positions().Clone()
		result.Velocities = integ.Velocities().Clone()
		for _, m := range s.metrics {
			result.Metrics[m.Name()] = m.Value()
		}
	}()

	every := s.cfg.sampleEvery()
	sample := integ.Sample()
	s.observe(integ, sample)
	result.record(sample)

	s.log.Info("md run started", "system", s.sys.Name, "steps", s.cfg.Steps, "dt", s.cfg.Dt, "e0", sample.Total())

	for i := 0; i < s.cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		sample, err = integ.Step()
		if err != nil {
			return result, err
		}
		result.StepsTaken++
		if !sample.IsFinite() {
			s.log.Warn("md run unstable", "step", sample.Step, "potential", sample.Potential, "kinetic", sample.Kinetic)
			return result, fmt.Errorf("%w at step %d", ErrUnstable, sample.Step)
		}

		s.observe(integ, sample)
		if sample.Step%every == 0 || i == s.cfg.Steps-1 {
			result.record(sample)
		}
	}

	s.log.Info("md run finished", "system", s.sys.Name, "steps", result.StepsTaken, "e", sample.Total())
	return result, nil
}

func (s *Simulator[T]) observe(integ *Verlet[T], sample metrics.Sample) {
	for _, m := range s.metrics {
		m.Observe(sample)
	}
	if len(s.observers) == 0 {
		return
	}
	f := Frame[T]{Sample: sample, Positions: integ.Positions(), Velocities: integ.Velocities()}
	for _, o := range s.observers {
		o.OnStep(f)
	}
}
