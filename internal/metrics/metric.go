// Package metrics summarizes MD trajectories from per-step energy samples.
package metrics

import "math"

// Sample is one observed MD step.
type Sample struct {
	Step      int
	Time      float64
	Potential float64
	Kinetic   float64
	MaxForce  float64
}

func (s Sample) Total() float64 { return s.Potential + s.Kinetic }

func (s Sample) IsFinite() bool {
	for _, v := range []float64{s.Potential, s.Kinetic, s.MaxForce} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

// Default is the metric set attached to every MD run.
func Default() []Metric {
	return []Metric{
		NewMeanPotential(),
		NewMeanKinetic(),
		NewEnergyDrift(),
		NewStability(DefaultForceThreshold),
	}
}
