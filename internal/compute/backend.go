package compute

import (
	"fmt"
	"sync"

	"github.com/san-kum/bondkit/internal/ndarray"
)

// Backend executes bonded kernels. Implementations receive jobs whose
// buffers are already validated and zeroed by the caller.
type Backend interface {
	Name() string
	Available() bool
	HarmonicBond32(job *BondJob[float32])
	HarmonicBond64(job *BondJob[float64])
	Cleanup()
}

var (
	mu            sync.RWMutex
	activeBackend Backend
)

func init() {
	// Auto-select best available backend (CUDA if available, else CPU)
	activeBackend = AutoSelectBackend()
}

func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if activeBackend != nil && activeBackend != b {
		activeBackend.Cleanup()
	}
	activeBackend = b
}

func GetBackend() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return activeBackend
}

func AutoSelectBackend() Backend {
	cuda := NewCUDABackend()
	if cuda.Available() {
		return cuda
	}
	return NewCPUBackend()
}

// Lookup resolves a backend by name: "auto" (or empty), "cpu" or "cuda".
// Asking for "cuda" on a machine without a device is an error.
func Lookup(name string) (Backend, error) {
	switch name {
	case "", "auto":
		return GetBackend(), nil
	case "cpu":
		return NewCPUBackend(), nil
	case "cuda":
		cuda := NewCUDABackend()
		if !cuda.Available() {
			return nil, fmt.Errorf("backend %q not available", name)
		}
		return cuda, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", name)
	}
}

// RunHarmonicBond dispatches job to the precision-specific entry point of b.
func RunHarmonicBond[T ndarray.Float](b Backend, job *BondJob[T]) {
	switch j := any(job).(type) {
	case *BondJob[float32]:
		b.HarmonicBond32(j)
	case *BondJob[float64]:
		b.HarmonicBond64(j)
	default:
		// Named float types (~float32/~float64) fall back to the generic CPU kernel.
		harmonicBondSerial(job, 0, job.NumBonds())
	}
}
