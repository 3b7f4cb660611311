//go:build cuda

package compute

/*
#cgo CFLAGS: -I/opt/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -L${SRCDIR} -lcudart -lkernels -lstdc++
#include <stdlib.h>

extern int cuda_device_count();
extern const char* cuda_device_name_get();
extern void harmonic_bond_f32(int num_atoms, int num_dims, int num_params, int num_bonds,
	const int* bond_idxs, const int* param_idxs,
	const float* coords, const float* params, const float* dxdps,
	float* E, float* dE_dp, float* dE_dx, float* d2E_dxdp);
extern void harmonic_bond_f64(int num_atoms, int num_dims, int num_params, int num_bonds,
	const int* bond_idxs, const int* param_idxs,
	const double* coords, const double* params, const double* dxdps,
	double* E, double* dE_dp, double* dE_dx, double* d2E_dxdp);
*/
import "C"
import "unsafe"

type CUDABackend struct {
	available  bool
	deviceName string
}

func NewCUDABackend() *CUDABackend {
	count := int(C.cuda_device_count())
	name := ""
	if count > 0 {
		name = C.GoString(C.cuda_device_name_get())
	}
	return &CUDABackend{
		available:  count > 0,
		deviceName: name,
	}
}

func (c *CUDABackend) Name() string {
	if c.available {
		return "cuda (" + c.deviceName + ")"
	}
	return "cuda (not available)"
}

func (c *CUDABackend) Available() bool { return c.available }
func (c *CUDABackend) Cleanup()        {}

func (c *CUDABackend) HarmonicBond32(job *BondJob[float32]) {
	if !c.available || job.NumBonds() == 0 {
		NewCPUBackend().HarmonicBond32(job)
		return
	}
	bonds, params := cInts(job.BondIdxs), cInts(job.ParamIdxs)
	C.harmonic_bond_f32(
		C.int(job.NumAtoms), C.int(job.NumDims), C.int(job.NumParams), C.int(job.NumBonds()),
		&bonds[0], &params[0],
		(*C.float)(ptr(job.Coords)), (*C.float)(ptr(job.Params)), (*C.float)(ptr(job.DxDps)),
		(*C.float)(ptr(job.E)), (*C.float)(ptr(job.DEDp)), (*C.float)(ptr(job.DEDx)), (*C.float)(ptr(job.D2EDxDp)),
	)
}

func (c *CUDABackend) HarmonicBond64(job *BondJob[float64]) {
	if !c.available || job.NumBonds() == 0 {
		NewCPUBackend().HarmonicBond64(job)
		return
	}
	bonds, params := cInts(job.BondIdxs), cInts(job.ParamIdxs)
	C.harmonic_bond_f64(
		C.int(job.NumAtoms), C.int(job.NumDims), C.int(job.NumParams), C.int(job.NumBonds()),
		&bonds[0], &params[0],
		(*C.double)(ptr(job.Coords)), (*C.double)(ptr(job.Params)), (*C.double)(ptr(job.DxDps)),
		(*C.double)(ptr(job.E)), (*C.double)(ptr(job.DEDp)), (*C.double)(ptr(job.DEDx)), (*C.double)(ptr(job.D2EDxDp)),
	)
}

func cInts(idxs []int) []C.int {
	out := make([]C.int, len(idxs))
	for i, v := range idxs {
		out[i] = C.int(v)
	}
	return out
}

// ptr returns nil for empty slices; the kernel treats a nil dxdps as zero.
func ptr[T float32 | float64](s []T) unsafe.Pointer {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Pointer(&s[0])
}
