package config

import (
	"sort"

	"github.com/san-kum/bondkit/internal/forcefield"
)

var Presets = map[string]func() *Config{
	"diatomic": diatomic,
	"water":    water,
	"chain":    chain,
}

func diatomic() *Config {
	cfg := DefaultConfig()
	cfg.Name = "diatomic"
	cfg.Atoms = []AtomConfig{
		{Name: "A1", Type: "A", Mass: 1, Position: []float64{0, 0, 0}},
		{Name: "A2", Type: "A", Mass: 1, Position: []float64{1.2, 0, 0}},
	}
	cfg.Bonds = [][2]int{{0, 1}}
	cfg.ForceField.HarmonicBond = []forcefield.BondType{{Pattern: "A-A", K: 100, R0: 1}}
	cfg.MD.Dt = 0.001
	return cfg
}

func water() *Config {
	cfg := DefaultConfig()
	cfg.Name = "water"
	cfg.Atoms = []AtomConfig{
		{Name: "O", Type: "OW", Mass: 15.999, Position: []float64{0, 0, 0}},
		{Name: "H1", Type: "HW", Mass: 1.008, Position: []float64{0.1, 0, 0}},
		{Name: "H2", Type: "HW", Mass: 1.008, Position: []float64{-0.025, 0.093, 0}},
	}
	cfg.Bonds = [][2]int{{0, 1}, {0, 2}}
	cfg.ForceField.HarmonicBond = []forcefield.BondType{{Pattern: "OW-HW", K: 462750.4, R0: 0.09572}}
	cfg.MD.Dt = 0.0002
	return cfg
}

func chain() *Config {
	const n = 8
	cfg := DefaultConfig()
	cfg.Name = "chain"
	for i := 0; i < n; i++ {
		typ := "C"
		if i == 0 || i == n-1 {
			typ = "CT"
		}
		cfg.Atoms = append(cfg.Atoms, AtomConfig{Type: typ, Mass: 12, Position: []float64{1.6 * float64(i), 0.1 * float64(i%2), 0}})
		if i > 0 {
			cfg.Bonds = append(cfg.Bonds, [2]int{i - 1, i})
		}
	}
	cfg.ForceField.HarmonicBond = []forcefield.BondType{
		{Pattern: "*-*", K: 250, R0: 1.5},
		{Pattern: "CT-C", K: 300, R0: 1.45},
	}
	cfg.MD.Temperature = 0.5
	cfg.MD.Seed = 7
	return cfg
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
