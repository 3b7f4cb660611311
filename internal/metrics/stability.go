package metrics

// DefaultForceThreshold is the largest per-atom force considered well behaved.
const DefaultForceThreshold = 1e4

// Stability is the fraction of samples that are finite and whose largest
// force stays under the threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(sample Sample) {
	s.samples++
	if !sample.IsFinite() || sample.MaxForce > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
