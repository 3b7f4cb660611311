package compute

import (
	"runtime"

	"github.com/san-kum/bondkit/internal/ndarray"
	"golang.org/x/sync/errgroup"
)

// SerialThreshold is the bond count below which the CPU backend does not
// spawn workers.
const SerialThreshold = 16

type CPUBackend struct {
	workers int
}

type CPUOption func(*CPUBackend)

// WithWorkers sets the number of worker goroutines. Values < 1 are ignored.
func WithWorkers(n int) CPUOption {
	return func(c *CPUBackend) {
		if n >= 1 {
			c.workers = n
		}
	}
}

func NewCPUBackend(opts ...CPUOption) *CPUBackend {
	c := &CPUBackend{
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}
func (c *CPUBackend) Workers() int    { return c.workers }

func (c *CPUBackend) HarmonicBond32(job *BondJob[float32]) { harmonicBondCPU(c.workers, job) }
func (c *CPUBackend) HarmonicBond64(job *BondJob[float64]) { harmonicBondCPU(c.workers, job) }

func harmonicBondCPU[T ndarray.Float](workers int, job *BondJob[T]) {
	n := job.NumBonds()
	if n < SerialThreshold || workers <= 1 {
		harmonicBondSerial(job, 0, n)
		return
	}
	harmonicBondParallel(workers, job)
}

func harmonicBondParallel[T ndarray.Float](workers int, job *BondJob[T]) {
	n := job.NumBonds()
	if workers > n {
		workers = n
	}
	chunkSize := (n + workers - 1) / workers

	local := make([]bondAccum[T], workers)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		g.Go(func() error {
			local[w] = newBondAccum(job)
			harmonicBondRange(job, local[w], start, end)
			return nil
		})
	}
	_ = g.Wait()

	dst := job.accum()
	for _, acc := range local {
		if acc.e == nil {
			continue
		}
		acc.addTo(dst)
	}
}
