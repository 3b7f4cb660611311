package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

var (
	ErrShortSeries = errors.New("analysis: series too short")
	ErrNonUniform  = errors.New("analysis: series is not uniformly sampled")
)

// MinSamples is the shortest series PowerSpectrum accepts.
const MinSamples = 4

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Spectrum is a one-sided power spectrum. Freqs[k] = k / (N*dt) where N is
// the padded length.
type Spectrum struct {
	Freqs []float64
	Power []float64
}

// PowerSpectrum removes the mean of series, zero-pads it to a power of 2 and
// returns |X_k|^2 / N for k = 0..N/2.
func PowerSpectrum(series []float64, dt float64) (*Spectrum, error) {
	if len(series) < MinSamples {
		return nil, fmt.Errorf("%w: %d samples, need %d", ErrShortSeries, len(series), MinSamples)
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("analysis: dt must be positive and finite, got %v", dt)
	}

	var mean float64
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("analysis: non-finite sample %d", i)
		}
		mean += v
	}
	mean /= float64(len(series))

	n := nextPow2(len(series))
	padded := make([]float64, n)
	for i, v := range series {
		padded[i] = v - mean
	}
	coeffs := fft.FFTReal(padded)

	s := &Spectrum{
		Freqs: make([]float64, n/2+1),
		Power: make([]float64, n/2+1),
	}
	for k := range s.Freqs {
		a := cmplx.Abs(coeffs[k])
		s.Freqs[k] = float64(k) / (float64(n) * dt)
		s.Power[k] = a * a / float64(n)
	}
	return s, nil
}

// Peak returns the strongest non-zero frequency.
func (s *Spectrum) Peak() (freq, power float64) {
	best := 0
	for k := 1; k < len(s.Power); k++ {
		if best == 0 || s.Power[k] > s.Power[best] {
			best = k
		}
	}
	if best == 0 {
		return 0, 0
	}
	return s.Freqs[best], s.Power[best]
}

// Resolution is the spacing between frequency bins.
func (s *Spectrum) Resolution() float64 {
	if len(s.Freqs) < 2 {
		return 0
	}
	return s.Freqs[1]
}

// Uniform returns the leading run of values whose times are evenly spaced,
// with that spacing. Trailing samples off the grid are dropped.
func Uniform(times, values []float64) ([]float64, float64, error) {
	if len(times) != len(values) {
		return nil, 0, fmt.Errorf("analysis: %d times for %d values", len(times), len(values))
	}
	if len(times) < 2 {
		return nil, 0, fmt.Errorf("%w: %d samples", ErrShortSeries, len(times))
	}
	dt := times[1] - times[0]
	if !(dt > 0) {
		return nil, 0, fmt.Errorf("%w: first step %v", ErrNonUniform, dt)
	}
	tol := dt * 1e-6
	n := 2
	for ; n < len(times); n++ {
		if math.Abs(times[n]-times[0]-float64(n)*dt) > tol {
			break
		}
	}
	return values[:n], dt, nil
}
