package md

import (
	"fmt"
	"math"

	"github.com/san-kum/bondkit/internal/metrics"
	"github.com/san-kum/bondkit/internal/ndarray"
	"github.com/san-kum/bondkit/internal/potential"
	"github.com/san-kum/bondkit/internal/system"
)

// Verlet is a velocity Verlet integrator over a system's potential. It owns
// copies of the positions and velocities; the system is never modified.
type Verlet[T ndarray.Float] struct {
	sys  *system.System[T]
	dt   T
	x    *ndarray.Array[T]
	v    *ndarray.Array[T]
	der  *potential.Derivatives[T]
	step int
}

// NewVerlet starts from the system's coordinates and v0, which may be nil for
// a system at rest.
func NewVerlet[T ndarray.Float](sys *system.System[T], dt float64, v0 *ndarray.Array[T]) (*Verlet[T], error) {
	n, d := sys.NumAtoms(), sys.NumDims()
	vel := ndarray.MustZeros[T](n, d)
	if v0 != nil {
		if !v0.HasShape(n, d) {
			return nil, potential.ShapeError("velocities", v0.Shape(), ndarray.Shape{n, d})
		}
		copy(vel.Data(), v0.Data())
	}
	der, err := potential.NewDerivatives[T](n, d, sys.NumParams())
	if err != nil {
		return nil, err
	}

	v := &Verlet[T]{
		sys: sys,
		dt:  T(dt),
		x:   sys.Coords.Clone(),
		v:   vel,
		der: der,
	}
	if err := v.computeForces(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Verlet[T]) computeForces() error {
	if err := v.sys.EvaluateAt(v.x, v.der); err != nil {
		return fmt.Errorf("md: evaluate at step %d: %w", v.step, err)
	}
	return nil
}

func (v *Verlet[T]) kick() {
	half := v.dt / 2
	d := v.sys.NumDims()
	vel, grad := v.v.Data(), v.der.DEDx.Data()
	for i, m := range v.sys.Masses {
		for j := 0; j < d; j++ {
			vel[i*d+j] -= half * grad[i*d+j] / m
		}
	}
}

// Step advances one dt and returns the sample at the new state.
func (v *Verlet[T]) Step() (metrics.Sample, error) {
	v.kick()
	x, vel := v.x.Data(), v.v.Data()
	for i := range x {
		x[i] += v.dt * vel[i]
	}
	v.step++
	if err := v.computeForces(); err != nil {
		return metrics.Sample{}, err
	}
	v.kick()
	return v.Sample(), nil
}

func (v *Verlet[T]) Sample() metrics.Sample {
	return metrics.Sample{
		Step:      v.step,
		Time:      float64(v.step) * float64(v.dt),
		Potential: float64(v.der.Energy()),
		Kinetic:   KineticEnergy(v.sys.Masses, v.v),
		MaxForce:  maxForce(v.der.DEDx),
	}
}

func (v *Verlet[T]) StepCount() int                { return v.step }
func (v *Verlet[T]) Positions() *ndarray.Array[T]  { return v.x }
func (v *Verlet[T]) Velocities() *ndarray.Array[T] { return v.v }

// KineticEnergy is sum(m v^2) / 2 over rows of vel.
func KineticEnergy[T ndarray.Float](masses []T, vel *ndarray.Array[T]) float64 {
	d := vel.Dim(1)
	data := vel.Data()
	var ke float64
	for i, m := range masses {
		var v2 float64
		for j := 0; j < d; j++ {
			c := float64(data[i*d+j])
			v2 += c * c
		}
		ke += 0.5 * float64(m) * v2
	}
	return ke
}

func maxForce[T ndarray.Float](dEdx *ndarray.Array[T]) float64 {
	d := dEdx.Dim(1)
	if d == 0 {
		return 0
	}
	data := dEdx.Data()
	var peak float64
	for i := 0; i+d <= len(data); i += d {
		var f2 float64
		for _, c := range data[i : i+d] {
			f2 += float64(c) * float64(c)
		}
		peak = math.Max(peak, math.Sqrt(f2))
	}
	return peak
}
