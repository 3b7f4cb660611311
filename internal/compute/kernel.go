package compute

import (
	"math"

	"github.com/san-kum/bondkit/internal/ndarray"
)

// BondJob is one harmonic bond evaluation. All slices are flat row-major:
// Coords [N*D], Params [P], DxDps [P*N*D] or nil, E [1], DEDp [P],
// DEDx [N*D], D2EDxDp [P*N*D].
type BondJob[T ndarray.Float] struct {
	NumAtoms  int
	NumDims   int
	NumParams int

	BondIdxs  []int // [a0, b0, a1, b1, ...]
	ParamIdxs []int // [k0, r00, k1, r01, ...]

	Coords []T
	Params []T
	DxDps  []T

	E       []T
	DEDp    []T
	DEDx    []T
	D2EDxDp []T
}

func (j *BondJob[T]) NumBonds() int { return len(j.BondIdxs) / 2 }

type bondAccum[T ndarray.Float] struct {
	e, dedp, dedx, d2 []T
}

func (j *BondJob[T]) accum() bondAccum[T] {
	return bondAccum[T]{e: j.E, dedp: j.DEDp, dedx: j.DEDx, d2: j.D2EDxDp}
}

func newBondAccum[T ndarray.Float](j *BondJob[T]) bondAccum[T] {
	return bondAccum[T]{
		e:    make([]T, 1),
		dedp: make([]T, len(j.DEDp)),
		dedx: make([]T, len(j.DEDx)),
		d2:   make([]T, len(j.D2EDxDp)),
	}
}

func (a bondAccum[T]) addTo(dst bondAccum[T]) {
	dst.e[0] += a.e[0]
	for i, v := range a.dedp {
		dst.dedp[i] += v
	}
	for i, v := range a.dedx {
		dst.dedx[i] += v
	}
	for i, v := range a.d2 {
		dst.d2[i] += v
	}
}

func harmonicBondSerial[T ndarray.Float](j *BondJob[T], start, end int) {
	harmonicBondRange(j, j.accum(), start, end)
}

// harmonicBondRange accumulates bonds [start, end) into acc.
//
// Per bond, with d = x_a - x_b, r = |d|, u = d/r and db = r - r0:
//
//	E        += k db^2 / 2
//	dE/dx_a  += k db u             (negated for b)
//	dE/dk    += db^2 / 2
//	dE/dr0   += -k db
//	d2E/dx_a dk  += db u,  d2E/dx_a dr0 += -k u
//	d2E/dx_a dp  += H (dxdp_a - dxdp_b),  H = k [u u' + (db/r)(I - u u')]
func harmonicBondRange[T ndarray.Float](j *BondJob[T], acc bondAccum[T], start, end int) {
	nd := j.NumDims
	stride := j.NumAtoms * nd
	u := make([]T, nd)
	delta := make([]T, nd)

	for bond := start; bond < end; bond++ {
		a, b := j.BondIdxs[bond*2], j.BondIdxs[bond*2+1]
		kIdx, r0Idx := j.ParamIdxs[bond*2], j.ParamIdxs[bond*2+1]
		k, r0 := j.Params[kIdx], j.Params[r0Idx]

		var r2 T
		for d := 0; d < nd; d++ {
			u[d] = j.Coords[a*nd+d] - j.Coords[b*nd+d]
			r2 += u[d] * u[d]
		}
		r := T(math.Sqrt(float64(r2)))
		db := r - r0

		acc.e[0] += 0.5 * k * db * db
		acc.dedp[kIdx] += 0.5 * db * db
		acc.dedp[r0Idx] -= k * db

		// Coincident atoms have no bond direction.
		if r == 0 {
			continue
		}
		for d := 0; d < nd; d++ {
			u[d] /= r
		}

		g := k * db
		kOff, r0Off := kIdx*stride, r0Idx*stride
		for d := 0; d < nd; d++ {
			ia, ib := a*nd+d, b*nd+d
			acc.dedx[ia] += g * u[d]
			acc.dedx[ib] -= g * u[d]

			acc.d2[kOff+ia] += db * u[d]
			acc.d2[kOff+ib] -= db * u[d]
			acc.d2[r0Off+ia] -= k * u[d]
			acc.d2[r0Off+ib] += k * u[d]
		}

		if j.DxDps == nil {
			continue
		}
		ratio := db / r
		for p := 0; p < j.NumParams; p++ {
			off := p * stride
			var ud T
			nonzero := false
			for d := 0; d < nd; d++ {
				delta[d] = j.DxDps[off+a*nd+d] - j.DxDps[off+b*nd+d]
				if delta[d] != 0 {
					nonzero = true
				}
				ud += u[d] * delta[d]
			}
			if !nonzero {
				continue
			}
			for d := 0; d < nd; d++ {
				hv := k * (u[d]*ud + ratio*(delta[d]-u[d]*ud))
				acc.d2[off+a*nd+d] += hv
				acc.d2[off+b*nd+d] -= hv
			}
		}
	}
}
