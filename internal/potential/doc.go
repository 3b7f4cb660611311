// Package potential defines the contract every differentiable energy term
// satisfies and the shared output and error types.
//
// A potential is a scalar energy E(x; p) of atomic coordinates x and a
// parameter vector p. Evaluating it yields four buffers:
//
//   - E:        [1]
//   - dE/dp:    [P]
//   - dE/dx:    [N][D]
//   - d2E/dxdp: [P][N][D], combined with the upstream sensitivities dx/dp
//
// # Example
//
//	hb, _ := bonded.NewHarmonicBond[float64](bondIdxs, paramIdxs)
//	out, err := potential.Evaluate[float64](hb, coords, params, nil)
//
// # Composition
//
// Independent terms are composed with [Sum], which adds their contributions.
//
// # Thread Safety
//
// Implementations hold only immutable configuration. Concurrent calls on the
// same instance are safe as long as each call owns its output buffers.
package potential
