package bonded_test

import (
	"math"
	"math/rand"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/bondkit/internal/bonded"
	"github.com/san-kum/bondkit/internal/compute"
	"github.com/san-kum/bondkit/internal/fdcheck"
	"github.com/san-kum/bondkit/internal/ndarray"
	"github.com/san-kum/bondkit/internal/potential"
)

type randomSystem struct {
	bondIdxs  []int
	paramIdxs []int
	coords    *ndarray.Array[float64]
	params    *ndarray.Array[float64]
	dxdps     *ndarray.Array[float64]
}

func newRandomSystem(seed int64, numAtoms, numDims, numBonds, numTypes int) randomSystem {
	rng := rand.New(rand.NewSource(seed))
	s := randomSystem{
		coords: ndarray.MustZeros[float64](numAtoms, numDims),
		params: ndarray.MustZeros[float64](2 * numTypes),
		dxdps:  ndarray.MustZeros[float64](2*numTypes, numAtoms, numDims),
	}
	for i := range s.coords.Data() {
		s.coords.Data()[i] = rng.Float64()*3 - 1.5
	}
	for t := 0; t < numTypes; t++ {
		s.params.Data()[2*t] = 50 + 400*rng.Float64()
		s.params.Data()[2*t+1] = 0.8 + 0.6*rng.Float64()
	}
	for i := range s.dxdps.Data() {
		s.dxdps.Data()[i] = 0.2 * (rng.Float64() - 0.5)
	}
	for b := 0; b < numBonds; b++ {
		a := rng.Intn(numAtoms)
		c := (a + 1 + rng.Intn(numAtoms-1)) % numAtoms
		t := rng.Intn(numTypes)
		s.bondIdxs = append(s.bondIdxs, a, c)
		s.paramIdxs = append(s.paramIdxs, 2*t, 2*t+1)
	}
	return s
}

func directEnergy(s randomSystem) float64 {
	nd := s.coords.Dim(1)
	x, p := s.coords.Data(), s.params.Data()
	e := 0.0
	for b := 0; b < len(s.bondIdxs)/2; b++ {
		i, j := s.bondIdxs[2*b], s.bondIdxs[2*b+1]
		r2 := 0.0
		for d := 0; d < nd; d++ {
			dx := x[i*nd+d] - x[j*nd+d]
			r2 += dx * dx
		}
		k, r0 := p[s.paramIdxs[2*b]], p[s.paramIdxs[2*b+1]]
		db := math.Sqrt(r2) - r0
		e += 0.5 * k * db * db
	}
	return e
}

func mustArray(data []float64, shape ...int) *ndarray.Array[float64] {
	a, err := ndarray.FromSlice(data, ndarray.Shape(shape))
	Expect(err).NotTo(HaveOccurred())
	return a
}

var _ = Describe("HarmonicBond", func() {
	Describe("construction", func() {
		DescribeTable("rejects malformed topologies",
			func(bondIdxs, paramIdxs []int) {
				hb, err := bonded.NewHarmonicBond[float64](bondIdxs, paramIdxs)
				Expect(err).To(MatchError(potential.ErrInvalidTopology))
				Expect(hb).To(BeNil())
			},
			Entry("self bond", []int{0, 0}, []int{0, 1}),
			Entry("odd bond list", []int{0, 1, 2}, []int{0, 1}),
			Entry("too few param indices", []int{0, 1}, []int{0}),
			Entry("too many param indices", []int{0, 1}, []int{0, 1, 2}),
			Entry("negative atom index", []int{-1, 1}, []int{0, 1}),
			Entry("negative param index", []int{0, 1}, []int{0, -1}),
		)

		It("copies the topology it is given", func() {
			bonds, prms := []int{0, 1}, []int{0, 1}
			hb, err := bonded.NewHarmonicBond[float64](bonds, prms)
			Expect(err).NotTo(HaveOccurred())

			bonds[1] = 7
			prms[0] = 9
			Expect(hb.BondIdxs()).To(Equal([]int{0, 1}))
			Expect(hb.ParamIdxs()).To(Equal([]int{0, 1}))

			hb.BondIdxs()[0] = 5
			Expect(hb.BondIdxs()).To(Equal([]int{0, 1}))
			Expect(hb.NumBonds()).To(Equal(1))
			Expect(hb.Name()).To(Equal("harmonic_bond"))
		})
	})

	Describe("two atoms one unit apart", func() {
		var out *potential.Derivatives[float64]

		BeforeEach(func() {
			hb, err := bonded.NewHarmonicBond[float64]([]int{0, 1}, []int{0, 1})
			Expect(err).NotTo(HaveOccurred())

			coords := mustArray([]float64{1, 0, 0, 0, 0, 0}, 2, 3)
			params := mustArray([]float64{2.0, 1.5}, 2)
			out, err = potential.Evaluate[float64](hb, coords, params, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("computes the energy", func() {
			Expect(out.Energy()).To(BeNumerically("~", 0.25, 1e-12))
		})

		It("computes mirrored coordinate gradients along the bond axis", func() {
			Expect(out.DEDx.At(0, 0)).To(BeNumerically("~", -1.0, 1e-12))
			Expect(out.DEDx.At(1, 0)).To(BeNumerically("~", 1.0, 1e-12))
			Expect(out.DEDx.At(0, 1)).To(BeZero())
			Expect(out.DEDx.At(1, 2)).To(BeZero())
		})

		It("computes parameter gradients for k and r0", func() {
			Expect(out.DEDp.At(0)).To(BeNumerically("~", 0.125, 1e-12))
			Expect(out.DEDp.At(1)).To(BeNumerically("~", 1.0, 1e-12))
		})
	})

	Describe("call-time validation", func() {
		var hb *bonded.HarmonicBond[float64]

		BeforeEach(func() {
			var err error
			hb, err = bonded.NewHarmonicBond[float64]([]int{0, 5}, []int{0, 1})
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports atom indices beyond the coordinate buffer", func() {
			coords := ndarray.MustZeros[float64](3, 3)
			params := mustArray([]float64{1, 1}, 2)

			_, err := potential.Evaluate[float64](hb, coords, params, nil)
			Expect(err).To(MatchError(potential.ErrIndexOutOfRange))

			var idxErr *potential.IndexError
			Expect(err).To(BeAssignableToTypeOf(idxErr))
			idxErr = err.(*potential.IndexError)
			Expect(idxErr.Kind).To(Equal(potential.AtomIndex))
			Expect(idxErr.Index).To(Equal(5))
			Expect(idxErr.Bound).To(Equal(3))
		})

		It("reports parameter indices beyond the parameter buffer", func() {
			coords := ndarray.MustZeros[float64](6, 3)
			params := mustArray([]float64{1}, 1)

			_, err := potential.Evaluate[float64](hb, coords, params, nil)
			Expect(err).To(MatchError(potential.ErrIndexOutOfRange))
			Expect(err.(*potential.IndexError).Kind).To(Equal(potential.ParamIndex))
		})

		DescribeTable("rejects buffers that disagree with the declared sizes",
			func(numAtoms, numParams int, coords, params, dxdps *ndarray.Array[float64], out *potential.Derivatives[float64]) {
				err := hb.DerivativesHost(numAtoms, numParams, coords, params, dxdps, out)
				Expect(err).To(MatchError(potential.ErrShapeMismatch))
			},
			Entry("coords rows", 6, 2, ndarray.MustZeros[float64](5, 3), ndarray.MustZeros[float64](2), nil, mustDerivatives(6, 3, 2)),
			Entry("coords rank", 6, 2, ndarray.MustZeros[float64](18), ndarray.MustZeros[float64](2), nil, mustDerivatives(6, 3, 2)),
			Entry("zero dims", 6, 2, ndarray.MustZeros[float64](6, 0), ndarray.MustZeros[float64](2), nil, mustDerivatives(6, 0, 2)),
			Entry("params length", 6, 2, ndarray.MustZeros[float64](6, 3), ndarray.MustZeros[float64](3), nil, mustDerivatives(6, 3, 2)),
			Entry("nil params", 6, 2, ndarray.MustZeros[float64](6, 3), nil, nil, mustDerivatives(6, 3, 2)),
			Entry("dxdps shape", 6, 2, ndarray.MustZeros[float64](6, 3), ndarray.MustZeros[float64](2), ndarray.MustZeros[float64](2, 6, 2), mustDerivatives(6, 3, 2)),
			Entry("dE_dx shape", 6, 2, ndarray.MustZeros[float64](6, 3), ndarray.MustZeros[float64](2), nil, mustDerivatives(6, 2, 2)),
			Entry("dE_dp shape", 6, 2, ndarray.MustZeros[float64](6, 3), ndarray.MustZeros[float64](2), nil, mustDerivatives(6, 3, 3)),
			Entry("nil outputs", 6, 2, ndarray.MustZeros[float64](6, 3), ndarray.MustZeros[float64](2), nil, nil),
			Entry("negative atoms", -1, 2, ndarray.MustZeros[float64](0, 3), ndarray.MustZeros[float64](2), nil, mustDerivatives(0, 3, 2)),
		)

		It("leaves outputs untouched when validation fails", func() {
			out := mustDerivatives(3, 3, 2)
			out.E.Fill(42)
			out.DEDx.Fill(42)

			err := hb.DerivativesHost(3, 2, ndarray.MustZeros[float64](3, 3), ndarray.MustZeros[float64](2), nil, out)
			Expect(err).To(HaveOccurred())
			Expect(out.Energy()).To(Equal(42.0))
			Expect(out.DEDx.Data()).To(HaveEach(42.0))
		})
	})

	Describe("random topologies", func() {
		DescribeTable("match the definition and finite differences",
			func(seed int64, numAtoms, numDims, numBonds, numTypes int) {
				s := newRandomSystem(seed, numAtoms, numDims, numBonds, numTypes)
				hb, err := bonded.NewHarmonicBond[float64](s.bondIdxs, s.paramIdxs)
				Expect(err).NotTo(HaveOccurred())

				out, err := potential.Evaluate[float64](hb, s.coords, s.params, s.dxdps)
				Expect(err).NotTo(HaveOccurred())
				Expect(out.Energy()).To(BeNumerically("~", directEnergy(s), 1e-9*math.Max(1, directEnergy(s))))

				rep, err := fdcheck.Check[float64](hb, s.coords, s.params, s.dxdps, fdcheck.DefaultOptions[float64]())
				Expect(err).NotTo(HaveOccurred())
				Expect(rep.Failures()).To(BeEmpty())
			},
			Entry("3-D, unique parameters", int64(1), 6, 3, 5, 5),
			Entry("3-D, shared parameters", int64(2), 8, 3, 12, 2),
			Entry("4-D lifted coordinates", int64(3), 5, 4, 6, 3),
			Entry("2-D", int64(4), 4, 2, 3, 1),
			Entry("above the serial threshold", int64(5), 30, 3, 40, 4),
		)

		It("is idempotent and ignores stale output contents", func() {
			s := newRandomSystem(11, 10, 3, 15, 3)
			hb, err := bonded.NewHarmonicBond[float64](s.bondIdxs, s.paramIdxs)
			Expect(err).NotTo(HaveOccurred())

			first, err := potential.Evaluate[float64](hb, s.coords, s.params, s.dxdps)
			Expect(err).NotTo(HaveOccurred())

			dirty := mustDerivatives(10, 3, 6)
			dirty.E.Fill(1e9)
			dirty.DEDp.Fill(-3)
			dirty.DEDx.Fill(7)
			dirty.D2EDxDp.Fill(math.NaN())
			Expect(hb.DerivativesHost(10, 6, s.coords, s.params, s.dxdps, dirty)).To(Succeed())

			Expect(dirty.E.Data()).To(Equal(first.E.Data()))
			Expect(dirty.DEDp.Data()).To(Equal(first.DEDp.Data()))
			Expect(dirty.DEDx.Data()).To(Equal(first.DEDx.Data()))
			Expect(dirty.D2EDxDp.Data()).To(Equal(first.D2EDxDp.Data()))
		})

		It("accumulates gradients of parameter slots shared across bonds", func() {
			shared, err := bonded.NewHarmonicBond[float64]([]int{0, 1, 1, 2}, []int{0, 1, 0, 1})
			Expect(err).NotTo(HaveOccurred())
			first, err := bonded.NewHarmonicBond[float64]([]int{0, 1}, []int{0, 1})
			Expect(err).NotTo(HaveOccurred())
			second, err := bonded.NewHarmonicBond[float64]([]int{1, 2}, []int{0, 1})
			Expect(err).NotTo(HaveOccurred())

			coords := mustArray([]float64{0, 0, 0, 1.2, 0, 0, 1.2, 0.7, 0}, 3, 3)
			params := mustArray([]float64{100, 1.0}, 2)

			both, err := potential.Evaluate[float64](shared, coords, params, nil)
			Expect(err).NotTo(HaveOccurred())
			a, err := potential.Evaluate[float64](first, coords, params, nil)
			Expect(err).NotTo(HaveOccurred())
			b, err := potential.Evaluate[float64](second, coords, params, nil)
			Expect(err).NotTo(HaveOccurred())

			for j := 0; j < 2; j++ {
				Expect(both.DEDp.At(j)).To(BeNumerically("~", a.DEDp.At(j)+b.DEDp.At(j), 1e-12))
			}
		})

		It("gives the same result on serial and parallel backends", func() {
			s := newRandomSystem(21, 50, 3, 200, 6)
			serial, err := bonded.NewHarmonicBond[float64](s.bondIdxs, s.paramIdxs, bonded.WithBackend(compute.NewCPUBackend(compute.WithWorkers(1))))
			Expect(err).NotTo(HaveOccurred())
			parallel, err := bonded.NewHarmonicBond[float64](s.bondIdxs, s.paramIdxs, bonded.WithBackend(compute.NewCPUBackend(compute.WithWorkers(7))))
			Expect(err).NotTo(HaveOccurred())

			a, err := potential.Evaluate[float64](serial, s.coords, s.params, s.dxdps)
			Expect(err).NotTo(HaveOccurred())
			b, err := potential.Evaluate[float64](parallel, s.coords, s.params, s.dxdps)
			Expect(err).NotTo(HaveOccurred())

			Expect(b.Energy()).To(BeNumerically("~", a.Energy(), 1e-8))
			for i, v := range a.DEDx.Data() {
				Expect(b.DEDx.Data()[i]).To(BeNumerically("~", v, 1e-8))
			}
			for i, v := range a.D2EDxDp.Data() {
				Expect(b.D2EDxDp.Data()[i]).To(BeNumerically("~", v, 1e-8))
			}
		})

		It("is safe to call concurrently with disjoint outputs", func() {
			s := newRandomSystem(31, 20, 3, 40, 4)
			hb, err := bonded.NewHarmonicBond[float64](s.bondIdxs, s.paramIdxs)
			Expect(err).NotTo(HaveOccurred())
			want, err := potential.Evaluate[float64](hb, s.coords, s.params, s.dxdps)
			Expect(err).NotTo(HaveOccurred())

			results := make([]*potential.Derivatives[float64], 8)
			errs := make([]error, 8)
			var wg sync.WaitGroup
			for i := range results {
				wg.Add(1)
				go func() {
					defer wg.Done()
					results[i], errs[i] = potential.Evaluate[float64](hb, s.coords, s.params, s.dxdps)
				}()
			}
			wg.Wait()

			for i := range results {
				Expect(errs[i]).NotTo(HaveOccurred())
				Expect(results[i].Energy()).To(BeNumerically("~", want.Energy(), 1e-9))
			}
		})
	})

	Describe("empty topology", func() {
		It("produces zero energy and gradients for any input", func() {
			hb, err := bonded.NewHarmonicBond[float64](nil, nil)
			Expect(err).NotTo(HaveOccurred())

			s := newRandomSystem(41, 5, 3, 1, 2)
			out, err := potential.Evaluate[float64](hb, s.coords, s.params, s.dxdps)
			Expect(err).NotTo(HaveOccurred())

			Expect(out.Energy()).To(BeZero())
			Expect(out.DEDp.Data()).To(HaveEach(0.0))
			Expect(out.DEDx.Data()).To(HaveEach(0.0))
			Expect(out.D2EDxDp.Data()).To(HaveEach(0.0))
		})
	})

	Describe("single precision", func() {
		It("agrees with double precision within float32 tolerance", func() {
			s := newRandomSystem(51, 12, 3, 20, 3)
			hb64, err := bonded.NewHarmonicBond[float64](s.bondIdxs, s.paramIdxs)
			Expect(err).NotTo(HaveOccurred())
			hb32, err := bonded.NewHarmonicBond[float32](s.bondIdxs, s.paramIdxs)
			Expect(err).NotTo(HaveOccurred())

			want, err := potential.Evaluate[float64](hb64, s.coords, s.params, s.dxdps)
			Expect(err).NotTo(HaveOccurred())
			got, err := potential.Evaluate[float32](hb32,
				ndarray.Convert[float32](s.coords), ndarray.Convert[float32](s.params), ndarray.Convert[float32](s.dxdps))
			Expect(err).NotTo(HaveOccurred())

			tol := 1e-4 * math.Max(1, math.Abs(want.Energy()))
			Expect(float64(got.Energy())).To(BeNumerically("~", want.Energy(), tol))
			for i, v := range want.DEDx.Data() {
				Expect(float64(got.DEDx.Data()[i])).To(BeNumerically("~", v, 1e-3*math.Max(1, math.Abs(v))))
			}
		})
	})
})

func mustDerivatives(numAtoms, numDims, numParams int) *potential.Derivatives[float64] {
	d, err := potential.NewDerivatives[float64](numAtoms, numDims, numParams)
	if err != nil {
		panic(err)
	}
	return d
}
