// Package forcefield assigns force-field parameters to molecular topologies.
package forcefield

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrBondTable indicates the parameterized bonds differ from the molecule's.
	ErrBondTable = errors.New("forcefield: bond table not preserved")

	// ErrInvalidMolecule indicates a molecule with malformed bonds.
	ErrInvalidMolecule = errors.New("forcefield: invalid molecule")

	// ErrInvalidPattern indicates a bond type pattern that is not "A-B".
	ErrInvalidPattern = errors.New("forcefield: invalid bond pattern")
)

// Wildcard matches any atom type in a bond pattern.
const Wildcard = "*"

// Molecule is the typed graph a handler parameterizes.
type Molecule struct {
	AtomTypes []string
	Bonds     [][2]int
}

func (m Molecule) NumAtoms() int { return len(m.AtomTypes) }

// BondType is one harmonic bond parameter set. Pattern is "A-B" and matches
// bonds between atom types A and B in either order.
type BondType struct {
	Pattern string  `yaml:"pattern"`
	K       float64 `yaml:"k"`
	R0      float64 `yaml:"r0"`
}

func (b BondType) match(t1, t2 string) (bool, error) {
	a, c, ok := strings.Cut(b.Pattern, "-")
	if !ok || a == "" || c == "" || strings.Contains(c, "-") {
		return false, fmt.Errorf("%w: %q", ErrInvalidPattern, b.Pattern)
	}
	m := func(p, t string) bool { return p == Wildcard || p == t }
	return (m(a, t1) && m(c, t2)) || (m(a, t2) && m(c, t1)), nil
}

// CanonicalizeBond orders a bond so the smaller atom index comes first.
// Harmonic bonds are symmetric under index reversal.
func CanonicalizeBond(i, j int) [2]int {
	if i > j {
		return [2]int{j, i}
	}
	return [2]int{i, j}
}

// HarmonicBondHandler maps bond types onto a molecule.
//
// Types are applied in order; a later type that matches an already assigned
// bond overrides its parameters but keeps the bond's position.
type HarmonicBondHandler struct {
	Types []BondType
}

// Params returns the global parameter vector [k0, r00, k1, r01, ...].
func (h *HarmonicBondHandler) Params() []float64 {
	out := make([]float64, 0, 2*len(h.Types))
	for _, t := range h.Types {
		out = append(out, t.K, t.R0)
	}
	return out
}

// Parameterize returns flattened bond_idxs and param_idxs for mol. Type t owns
// parameter slots 2t (k) and 2t+1 (r0) of Params().
func (h *HarmonicBondHandler) Parameterize(mol Molecule) (bondIdxs, paramIdxs []int, err error) {
	molBonds := make(map[[2]int]bool, len(mol.Bonds))
	for _, b := range mol.Bonds {
		if b[0] < 0 || b[1] < 0 || b[0] >= mol.NumAtoms() || b[1] >= mol.NumAtoms() {
			return nil, nil, fmt.Errorf("%w: bond %v outside %d atoms", ErrInvalidMolecule, b, mol.NumAtoms())
		}
		if b[0] == b[1] {
			return nil, nil, fmt.Errorf("%w: self bond on atom %d", ErrInvalidMolecule, b[0])
		}
		molBonds[CanonicalizeBond(b[0], b[1])] = true
	}

	var order [][2]int
	assigned := make(map[[2]int]int)
	for typeIdx, bt := range h.Types {
		for _, b := range mol.Bonds {
			ok, err := bt.match(mol.AtomTypes[b[0]], mol.AtomTypes[b[1]])
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				continue
			}
			key := CanonicalizeBond(b[0], b[1])
			if _, seen := assigned[key]; !seen {
				order = append(order, key)
			}
			assigned[key] = typeIdx
		}
	}

	var missing []string
	for b := range molBonds {
		if _, ok := assigned[b]; !ok {
			missing = append(missing, fmt.Sprintf("(%d,%d %s-%s)", b[0], b[1], mol.AtomTypes[b[0]], mol.AtomTypes[b[1]]))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, nil, fmt.Errorf("%w: missing bonds %s", ErrBondTable, strings.Join(missing, " "))
	}

	bondIdxs = make([]int, 0, 2*len(order))
	paramIdxs = make([]int, 0, 2*len(order))
	for _, b := range order {
		t := assigned[b]
		bondIdxs = append(bondIdxs, b[0], b[1])
		paramIdxs = append(paramIdxs, 2*t, 2*t+1)
	}
	return bondIdxs, paramIdxs, nil
}
