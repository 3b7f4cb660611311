//go:build !cuda

package compute

type CUDABackend struct{}

func NewCUDABackend() *CUDABackend {
	return &CUDABackend{}
}

func (c *CUDABackend) Name() string    { return "cuda (not available)" }
func (c *CUDABackend) Available() bool { return false }
func (c *CUDABackend) Cleanup()        {}

func (c *CUDABackend) HarmonicBond32(job *BondJob[float32]) {
	NewCPUBackend().HarmonicBond32(job)
}

func (c *CUDABackend) HarmonicBond64(job *BondJob[float64]) {
	NewCPUBackend().HarmonicBond64(job)
}
