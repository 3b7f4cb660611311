package metrics

import (
	"math"
	"testing"
)

func TestMeanPotential(t *testing.T) {
	m := NewMeanPotential()

	m.Observe(Sample{Potential: 1, Kinetic: 5})
	m.Observe(Sample{Potential: 3, Kinetic: 5})

	if got := m.Value(); math.Abs(got-2) > 1e-12 {
		t.Errorf("expected mean potential 2, got %f", got)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	tests := []struct {
		name     string
		totals   []float64
		expected float64
	}{
		{"conserved", []float64{2, 2, 2}, 0},
		{"relative", []float64{2, 2.1, 1.8, 2}, 0.1},
		{"zero start uses absolute", []float64{0, 0.5, -0.25}, 0.5},
		{"single sample", []float64{4}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewEnergyDrift()
			for i, e := range tt.totals {
				d.Observe(Sample{Step: i, Potential: e})
			}
			if got := d.Value(); math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("expected drift %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestEnergyDriftReset(t *testing.T) {
	d := NewEnergyDrift()
	d.Observe(Sample{Potential: 1})
	d.Observe(Sample{Potential: 2})
	if d.Value() == 0 {
		t.Error("expected non-zero drift")
	}

	d.Reset()
	d.Observe(Sample{Potential: 5})
	if d.Value() != 0 {
		t.Errorf("expected zero drift after reset, got %f", d.Value())
	}
}

func TestStability(t *testing.T) {
	s := NewStability(10)
	if s.Value() != 1 {
		t.Errorf("expected 1 with no samples, got %f", s.Value())
	}

	s.Observe(Sample{MaxForce: 1})
	s.Observe(Sample{MaxForce: 20})
	s.Observe(Sample{Potential: math.NaN()})
	s.Observe(Sample{MaxForce: 2})

	if got := s.Value(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("expected stability 0.5, got %f", got)
	}
}

func TestDefaultNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Default() {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %s", m.Name())
		}
		seen[m.Name()] = true
	}
}
