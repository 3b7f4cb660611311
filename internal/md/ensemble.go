package md

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/bondkit/internal/metrics"
	"github.com/san-kum/bondkit/internal/ndarray"
	"github.com/san-kum/bondkit/internal/system"
	"golang.org/x/sync/errgroup"
)

// Replica is one ensemble member. Err holds the member's run error; the
// Result is still set when the run got far enough to produce one.
type Replica[T ndarray.Float] struct {
	Seed   int64
	Result *Result[T]
	Err    error
}

// Ensemble runs independent trajectories of one system that differ only in
// the seed of their initial velocities. Seeds are consecutive from
// cfg.Seed.
type Ensemble[T ndarray.Float] struct {
	sys        *system.System[T]
	cfg        Config
	numRuns    int
	newMetrics func() []metrics.Metric
	log        *slog.Logger
}

func NewEnsemble[T ndarray.Float](sys *system.System[T], cfg Config, numRuns int, newMetrics func() []metrics.Metric) (*Ensemble[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if numRuns <= 0 {
		return nil, fmt.Errorf("md: ensemble needs at least one run, got %d", numRuns)
	}
	if newMetrics == nil {
		newMetrics = func() []metrics.Metric { return nil }
	}
	return &Ensemble[T]{
		sys:        sys,
		cfg:        cfg,
		numRuns:    numRuns,
		newMetrics: newMetrics,
		log:        slog.Default(),
	}, nil
}

func (e *Ensemble[T]) SetLogger(l *slog.Logger) { e.log = l }

// Run executes every replica concurrently, at most limit at a time (limit
// <= 0 means no limit). Replica failures are reported per replica; only
// context cancellation fails the whole ensemble.
func (e *Ensemble[T]) Run(ctx context.Context, limit int) ([]Replica[T], error) {
	replicas := make([]Replica[T], e.numRuns)
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i := range replicas {
		g.Go(func() error {
			cfg := e.cfg
			cfg.Seed = e.cfg.Seed + int64(i)
			replicas[i].Seed = cfg.Seed

			sim, err := New(e.sys, cfg, WithLogger[T](e.log.With("replica", i)))
			if err != nil {
				replicas[i].Err = err
				return nil
			}
			for _, m := range e.newMetrics() {
				sim.AddMetric(m)
			}
			v0 := InitialVelocities(e.sys.Masses, e.sys.NumDims(), cfg.Temperature, cfg.Seed)
			replicas[i].Result, replicas[i].Err = sim.Run(ctx, v0)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return replicas, err
	}
	return replicas, nil
}
