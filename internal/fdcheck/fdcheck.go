// Package fdcheck verifies the analytic derivatives of a potential against
// central finite differences.
package fdcheck

import (
	"fmt"
	"math"

	"github.com/san-kum/bondkit/internal/ndarray"
	"github.com/san-kum/bondkit/internal/potential"
)

type Options struct {
	// Step is the central-difference half width h.
	Step float64
	// Tolerance bounds |analytic - numeric| / max(1, |analytic|).
	Tolerance float64
}

// DefaultOptions returns step and tolerance suited to the precision of T.
func DefaultOptions[T ndarray.Float]() Options {
	var zero T
	if _, ok := any(zero).(float32); ok {
		return Options{Step: 1e-2, Tolerance: 2e-2}
	}
	return Options{Step: 1e-5, Tolerance: 1e-5}
}

// Report holds the worst scaled error per derivative output.
type Report struct {
	Energy      float64
	MaxErrDEDx  float64
	MaxErrDEDp  float64
	MaxErrD2EDx float64
	Options     Options
}

func (r *Report) Pass() bool {
	return len(r.Failures()) == 0
}

// Failures names every output whose error exceeds the tolerance.
func (r *Report) Failures() []string {
	var out []string
	check := func(name string, v float64) {
		if v > r.Options.Tolerance || math.IsNaN(v) {
			out = append(out, fmt.Sprintf("%s: error %.3g > %.3g", name, v, r.Options.Tolerance))
		}
	}
	check("dE_dx", r.MaxErrDEDx)
	check("dE_dp", r.MaxErrDEDp)
	check("d2E_dxdp", r.MaxErrD2EDx)
	return out
}

// Check evaluates p once analytically and compares every output against
// central differences. d2E/dxdp[p] is compared with the derivative of dE/dx
// along the joint perturbation (x + h dxdps[p], params + h e_p).
func Check[T ndarray.Float](p potential.Potential[T], coords, params, dxdps *ndarray.Array[T], opts Options) (*Report, error) {
	if opts.Step <= 0 {
		opts = DefaultOptions[T]()
	}

	analytic, err := potential.Evaluate(p, coords, params, dxdps)
	if err != nil {
		return nil, err
	}
	rep := &Report{Energy: float64(analytic.Energy()), Options: opts}

	x := coords.Clone()
	xd := x.Data()
	for i := range xd {
		orig := xd[i]
		num, err := central(orig, opts.Step, func(v T) (float64, error) {
			xd[i] = v
			return energy(p, x, params)
		})
		xd[i] = orig
		if err != nil {
			return nil, err
		}
		rep.MaxErrDEDx = math.Max(rep.MaxErrDEDx, scaledErr(float64(analytic.DEDx.Data()[i]), num))
	}

	prm := params.Clone()
	pd := prm.Data()
	for j := range pd {
		orig := pd[j]
		num, err := central(orig, opts.Step, func(v T) (float64, error) {
			pd[j] = v
			return energy(p, coords, prm)
		})
		pd[j] = orig
		if err != nil {
			return nil, err
		}
		rep.MaxErrDEDp = math.Max(rep.MaxErrDEDp, scaledErr(float64(analytic.DEDp.Data()[j]), num))
	}

	stride := coords.Len()
	for j := range pd {
		plus, err := gradientAt(p, coords, params, dxdps, j, opts.Step)
		if err != nil {
			return nil, err
		}
		minus, err := gradientAt(p, coords, params, dxdps, j, -opts.Step)
		if err != nil {
			return nil, err
		}
		want := analytic.D2EDxDp.Data()[j*stride : (j+1)*stride]
		for i := range want {
			num := (plus[i] - minus[i]) / (2 * opts.Step)
			rep.MaxErrD2EDx = math.Max(rep.MaxErrD2EDx, scaledErr(float64(want[i]), num))
		}
	}

	return rep, nil
}

func central[T ndarray.Float](x T, h float64, f func(T) (float64, error)) (float64, error) {
	xp, xm := T(float64(x)+h), T(float64(x)-h)
	ep, err := f(xp)
	if err != nil {
		return 0, err
	}
	em, err := f(xm)
	if err != nil {
		return 0, err
	}
	return (ep - em) / (float64(xp) - float64(xm)), nil
}

func energy[T ndarray.Float](p potential.Potential[T], coords, params *ndarray.Array[T]) (float64, error) {
	out, err := potential.Evaluate(p, coords, params, nil)
	if err != nil {
		return 0, err
	}
	return float64(out.Energy()), nil
}

// gradientAt returns dE/dx at (x + h dxdps[j], params + h e_j) in float64.
func gradientAt[T ndarray.Float](p potential.Potential[T], coords, params, dxdps *ndarray.Array[T], j int, h float64) ([]float64, error) {
	x := coords.Clone()
	if dxdps != nil {
		xd := x.Data()
		sens := dxdps.Data()[j*len(xd) : (j+1)*len(xd)]
		for i := range xd {
			xd[i] = T(float64(xd[i]) + h*float64(sens[i]))
		}
	}
	prm := params.Clone()
	prm.Data()[j] = T(float64(prm.Data()[j]) + h)

	out, err := potential.Evaluate(p, x, prm, nil)
	if err != nil {
		return nil, err
	}
	g := make([]float64, out.DEDx.Len())
	for i, v := range out.DEDx.Data() {
		g[i] = float64(v)
	}
	return g, nil
}

func scaledErr(analytic, numeric float64) float64 {
	return math.Abs(analytic-numeric) / math.Max(1, math.Abs(analytic))
}
