package config

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Precision != "f64" {
		t.Errorf("expected precision f64, got %s", cfg.Precision)
	}
	if cfg.MD.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.MD.Steps <= 0 {
		t.Error("steps should be positive")
	}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("default config has no atoms, expected ErrInvalidConfig, got %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("water")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if len(cfg.Atoms) != 3 {
		t.Errorf("expected 3 atoms, got %d", len(cfg.Atoms))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("water preset invalid: %v", err)
	}
}

func TestGetPreset_ReturnsCopy(t *testing.T) {
	a := GetPreset("diatomic")
	a.Atoms[0].Position[0] = 99

	b := GetPreset("diatomic")
	if b.Atoms[0].Position[0] != 0 {
		t.Error("preset mutation leaked into the next copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets()
	want := []string{"chain", "diatomic", "water"}
	if len(presets) != len(want) {
		t.Fatalf("expected %v, got %v", want, presets)
	}
	for i := range want {
		if presets[i] != want[i] {
			t.Errorf("preset %d: expected %s, got %s", i, want[i], presets[i])
		}
		if err := GetPreset(presets[i]).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", presets[i], err)
		}
	}
}

func TestMolecule(t *testing.T) {
	mol := GetPreset("water").Molecule()

	if mol.NumAtoms() != 3 {
		t.Errorf("expected 3 atoms, got %d", mol.NumAtoms())
	}
	if mol.AtomTypes[1] != "HW" {
		t.Errorf("expected HW, got %s", mol.AtomTypes[1])
	}
	if len(mol.Bonds) != 2 {
		t.Errorf("expected 2 bonds, got %d", len(mol.Bonds))
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.yaml")
	orig := GetPreset("chain")

	if err := Save(path, orig); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Name != "chain" {
		t.Errorf("expected name chain, got %s", cfg.Name)
	}
	if len(cfg.Atoms) != len(orig.Atoms) {
		t.Errorf("expected %d atoms, got %d", len(orig.Atoms), len(cfg.Atoms))
	}
	if got := cfg.ForceField.HarmonicBond[1]; got.Pattern != "CT-C" || got.K != 300 {
		t.Errorf("unexpected bond type %+v", got)
	}
	if cfg.MD.Seed != 7 {
		t.Errorf("expected seed 7, got %d", cfg.MD.Seed)
	}
}

func TestParse_DefaultsFillMissingFields(t *testing.T) {
	data := []byte(`
name: pair
atoms:
  - {type: X, mass: 2, position: [0, 0]}
  - {type: X, mass: 2, position: [1, 0]}
bonds: [[0, 1]]
forcefield:
  harmonic_bond:
    - {pattern: X-X, k: 5, r0: 1}
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.Precision != DefaultPrecision || cfg.Backend != DefaultBackend {
		t.Errorf("expected defaults, got precision=%s backend=%s", cfg.Precision, cfg.Backend)
	}
	if cfg.MD.Dt != DefaultDt {
		t.Errorf("expected dt %v, got %v", DefaultDt, cfg.MD.Dt)
	}
	if cfg.NumDims() != 2 {
		t.Errorf("expected 2 dims, got %d", cfg.NumDims())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad precision", func(c *Config) { c.Precision = "f16" }},
		{"ragged positions", func(c *Config) { c.Atoms[1].Position = []float64{1, 0} }},
		{"zero mass", func(c *Config) { c.Atoms[0].Mass = 0 }},
		{"missing type", func(c *Config) { c.Atoms[0].Type = "" }},
		{"bond out of range", func(c *Config) { c.Bonds = [][2]int{{0, 2}} }},
		{"zero dt", func(c *Config) { c.MD.Dt = 0 }},
		{"zero steps", func(c *Config) { c.MD.Steps = 0 }},
		{"negative temperature", func(c *Config) { c.MD.Temperature = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetPreset("diatomic")
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
