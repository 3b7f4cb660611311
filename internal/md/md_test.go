package md

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/bondkit/internal/config"
	"github.com/san-kum/bondkit/internal/metrics"
	"github.com/san-kum/bondkit/internal/ndarray"
	"github.com/san-kum/bondkit/internal/system"
)

func diatomic(t *testing.T) *system.System[float64] {
	t.Helper()
	sys, err := system.Build[float64](config.GetPreset("diatomic"))
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return sys
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Steps: 10}},
		{"negative dt", Config{Dt: -0.1, Steps: 10}},
		{"zero steps", Config{Dt: 0.1, Steps: 0}},
		{"negative sample_every", Config{Dt: 0.1, Steps: 10, SampleEvery: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Error("expected error for invalid config")
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestVerletConservesEnergy(t *testing.T) {
	sys := diatomic(t)
	sim, err := New(sys, Config{Dt: 0.001, Steps: 2000, SampleEvery: 50})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	sim.AddMetric(metrics.NewEnergyDrift())

	result, err := sim.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.StepsTaken != 2000 {
		t.Errorf("expected 2000 steps, got %d", result.StepsTaken)
	}
	if len(result.Times) != 41 {
		t.Errorf("expected 41 samples, got %d", len(result.Times))
	}
	if math.Abs(result.Total[0]-2.0) > 1e-9 {
		t.Errorf("expected initial energy 2.0, got %f", result.Total[0])
	}
	if drift := result.Metrics["energy_drift"]; drift > 1e-3 {
		t.Errorf("energy drift too large: %g", drift)
	}

	// The pair oscillates, so kinetic energy must have been exchanged.
	var peakKE float64
	for _, ke := range result.Kinetic {
		peakKE = math.Max(peakKE, ke)
	}
	if peakKE < 1.0 {
		t.Errorf("expected kinetic energy exchange, peak %f", peakKE)
	}

	if sys.Coords.At(1, 0) != 1.2 {
		t.Error("run modified system coordinates")
	}
}

func TestVerletConservesMomentum(t *testing.T) {
	sys, err := system.Build[float64](config.GetPreset("chain"))
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	v0 := InitialVelocities(sys.Masses, sys.NumDims(), 0.5, 3)

	integ, err := NewVerlet(sys, 0.002, v0)
	if err != nil {
		t.Fatalf("new verlet failed: %v", err)
	}
	for i := 0; i < 200; i++ {
		if _, err := integ.Step(); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
	}

	for j, p := range momentum(sys.Masses, integ.Velocities()) {
		if math.Abs(p) > 1e-9 {
			t.Errorf("momentum[%d] = %g, want 0", j, p)
		}
	}
	if integ.StepCount() != 200 {
		t.Errorf("expected 200 steps, got %d", integ.StepCount())
	}
}

func momentum(masses []float64, vel *ndarray.Array[float64]) []float64 {
	d := vel.Dim(1)
	p := make([]float64, d)
	for i, m := range masses {
		for j := 0; j < d; j++ {
			p[j] += m * vel.At(i, j)
		}
	}
	return p
}

func TestInitialVelocities(t *testing.T) {
	masses := make([]float64, 500)
	for i := range masses {
		masses[i] = 1 + float64(i%3)
	}

	vel := InitialVelocities(masses, 3, 2.0, 42)
	for j, p := range momentum(masses, vel) {
		if math.Abs(p) > 1e-9 {
			t.Errorf("momentum[%d] = %g, want 0", j, p)
		}
	}

	// Equipartition: KE ~ (3N/2) T.
	ke := KineticEnergy(masses, vel)
	want := 1.5 * float64(len(masses)) * 2.0
	if math.Abs(ke-want)/want > 0.15 {
		t.Errorf("kinetic energy %f too far from %f", ke, want)
	}

	again := InitialVelocities(masses, 3, 2.0, 42)
	if again.At(7, 1) != vel.At(7, 1) {
		t.Error("same seed should give same velocities")
	}

	cold := InitialVelocities(masses, 3, 0, 42)
	if KineticEnergy(masses, cold) != 0 {
		t.Error("expected zero velocities at zero temperature")
	}
}

func TestRunCancelled(t *testing.T) {
	sim, err := New(diatomic(t), Config{Dt: 0.001, Steps: 100})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := sim.Run(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil || result.StepsTaken != 0 || len(result.Times) != 1 {
		t.Errorf("expected partial result with the initial sample, got %+v", result)
	}
	if result.Positions == nil {
		t.Error("expected final positions on partial result")
	}
}

func TestRunUnstable(t *testing.T) {
	sim, err := New(diatomic(t), Config{Dt: 1.0, Steps: 1000})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	sim.AddMetric(metrics.NewStability(metrics.DefaultForceThreshold))

	result, err := sim.Run(context.Background(), nil)
	if !errors.Is(err, ErrUnstable) {
		t.Fatalf("expected ErrUnstable, got %v", err)
	}
	if result.StepsTaken >= 1000 {
		t.Error("expected the run to stop early")
	}
	if result.Metrics["stability"] >= 1 {
		t.Errorf("expected degraded stability, got %f", result.Metrics["stability"])
	}
}

func TestObservers(t *testing.T) {
	sim, err := New(diatomic(t), Config{Dt: 0.001, Steps: 25, SampleEvery: 10})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	var steps []int
	sim.AddObserver(ObserverFunc[float64](func(f Frame[float64]) {
		steps = append(steps, f.Step)
		if f.Positions.Dim(0) != 2 {
			t.Errorf("unexpected frame shape %v", f.Positions.Shape())
		}
	}))

	result, err := sim.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(steps) != 26 || steps[0] != 0 || steps[25] != 25 {
		t.Errorf("unexpected observed steps %v", steps)
	}
	// Samples at 0, 10, 20 and the final step.
	if len(result.Times) != 4 {
		t.Errorf("expected 4 samples, got %d", len(result.Times))
	}
	if len(result.Samples()) != 4 {
		t.Errorf("expected 4 metric samples, got %d", len(result.Samples()))
	}
}

func TestNewVerletRejectsBadVelocities(t *testing.T) {
	_, err := NewVerlet(diatomic(t), 0.001, ndarray.MustZeros[float64](3, 3))
	if err == nil {
		t.Error("expected shape error")
	}
}

func TestEnsemble_ReplicasDifferBySeed(t *testing.T) {
	sys, err := system.Build[float64](config.GetPreset("chain"))
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	cfg := Config{Dt: 0.001, Steps: 50, SampleEvery: 10, Seed: 3, Temperature: 0.5}

	ens, err := NewEnsemble(sys, cfg, 3, metrics.Default)
	if err != nil {
		t.Fatalf("new ensemble failed: %v", err)
	}
	replicas, err := ens.Run(context.Background(), 2)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(replicas) != 3 {
		t.Fatalf("expected 3 replicas, got %d", len(replicas))
	}
	for i, r := range replicas {
		if r.Err != nil {
			t.Errorf("replica %d failed: %v", i, r.Err)
		}
		if r.Seed != 3+int64(i) {
			t.Errorf("replica %d: expected seed %d, got %d", i, 3+i, r.Seed)
		}
		if r.Result.StepsTaken != 50 || len(r.Result.Metrics) != 4 {
			t.Errorf("replica %d: steps=%d metrics=%d", i, r.Result.StepsTaken, len(r.Result.Metrics))
		}
	}
	if replicas[0].Result.Kinetic[0] == replicas[1].Result.Kinetic[0] {
		t.Error("expected different initial kinetic energies for different seeds")
	}

	single, err := New(sys, Config{Dt: 0.001, Steps: 50, SampleEvery: 10, Seed: 4, Temperature: 0.5})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	want, err := single.Run(context.Background(), InitialVelocities(sys.Masses, sys.NumDims(), 0.5, 4))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := replicas[1].Result.Total; got[len(got)-1] != want.Total[len(want.Total)-1] {
		t.Errorf("replica 1 should match a single run with seed 4: %v vs %v", got[len(got)-1], want.Total[len(want.Total)-1])
	}
}

func TestEnsemble_Errors(t *testing.T) {
	sys := diatomic(t)

	if _, err := NewEnsemble(sys, Config{Dt: 0.001, Steps: 10}, 0, nil); err == nil {
		t.Error("expected error for zero runs")
	}
	if _, err := NewEnsemble(sys, Config{}, 2, nil); err == nil {
		t.Error("expected error for invalid config")
	}

	ens, err := NewEnsemble(sys, Config{Dt: 0.001, Steps: 10}, 2, nil)
	if err != nil {
		t.Fatalf("new ensemble failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ens.Run(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
