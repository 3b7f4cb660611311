package metrics

import "math"

type mean struct {
	name    string
	sum     float64
	samples int
	pick    func(Sample) float64
}

func (m *mean) Name() string { return m.name }

func (m *mean) Observe(s Sample) {
	m.sum += m.pick(s)
	m.samples++
}

func (m *mean) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *mean) Reset() {
	m.sum = 0
	m.samples = 0
}

func NewMeanPotential() Metric {
	return &mean{name: "mean_potential", pick: func(s Sample) float64 { return s.Potential }}
}

func NewMeanKinetic() Metric {
	return &mean{name: "mean_kinetic", pick: func(s Sample) float64 { return s.Kinetic }}
}

// EnergyDrift is the largest relative deviation of total energy from the
// first observed sample. Absolute drift is used when the first total is zero.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s Sample) {
	energy := s.Total()

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	drift := math.Abs(energy - e.initialEnergy)
	if e.initialEnergy != 0 {
		drift /= math.Abs(e.initialEnergy)
	}
	e.maxDrift = math.Max(e.maxDrift, drift)
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
