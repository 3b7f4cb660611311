// Package compute provides the execution backends for bonded kernels.
//
// The package automatically selects the best available backend:
//
//   - CUDA: GPU kernels from libkernels, built with -tags cuda
//   - CPU: Fallback for systems without GPU
//
// # Usage
//
// Callers validate shapes and zero the outputs, then hand a job over:
//
//	job := &compute.BondJob[float64]{...}
//	compute.RunHarmonicBond(compute.GetBackend(), job)
//
// The CPU backend evaluates small topologies serially. Larger ones are split
// across workers, each accumulating into private buffers that are reduced at
// the end, so results match the serial path up to floating-point rounding.
package compute
