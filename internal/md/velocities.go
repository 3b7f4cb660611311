package md

import (
	"math"
	"math/rand"

	"github.com/san-kum/bondkit/internal/ndarray"
)

// InitialVelocities draws Maxwell-Boltzmann velocities at temperature in
// reduced units (k_B = 1) and removes the centre-of-mass drift.
func InitialVelocities[T ndarray.Float](masses []T, dims int, temperature float64, seed int64) *ndarray.Array[T] {
	vel := ndarray.MustZeros[T](len(masses), dims)
	if temperature <= 0 || len(masses) == 0 {
		return vel
	}
	rng := rand.New(rand.NewSource(seed))

	raw := make([]float64, len(masses)*dims)
	momentum := make([]float64, dims)
	var total float64
	for i, m := range masses {
		sigma := math.Sqrt(temperature / float64(m))
		for j := 0; j < dims; j++ {
			raw[i*dims+j] = rng.NormFloat64() * sigma
			momentum[j] += float64(m) * raw[i*dims+j]
		}
		total += float64(m)
	}

	data := vel.Data()
	for i := range masses {
		for j := 0; j < dims; j++ {
			data[i*dims+j] = T(raw[i*dims+j] - momentum[j]/total)
		}
	}
	return vel
}
