// Package config loads bondkit system descriptions from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/bondkit/internal/forcefield"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPrecision   = "f64"
	DefaultBackend     = "auto"
	DefaultDt          = 0.002
	DefaultSteps       = 5000
	DefaultSampleEvery = 10
	DefaultTemperature = 0.0
)

var ErrInvalidConfig = errors.New("config: invalid config")

type Config struct {
	Name       string           `yaml:"name"`
	Precision  string           `yaml:"precision"`
	Backend    string           `yaml:"backend"`
	Atoms      []AtomConfig     `yaml:"atoms"`
	Bonds      [][2]int         `yaml:"bonds"`
	ForceField ForceFieldConfig `yaml:"forcefield"`
	Terms      []string         `yaml:"terms,omitempty"`
	MD         MDConfig         `yaml:"md"`
}

type AtomConfig struct {
	Name     string    `yaml:"name,omitempty"`
	Type     string    `yaml:"type"`
	Mass     float64   `yaml:"mass"`
	Position []float64 `yaml:"position"`
}

type ForceFieldConfig struct {
	HarmonicBond []forcefield.BondType `yaml:"harmonic_bond"`
}

type MDConfig struct {
	Dt          float64 `yaml:"dt"`
	Steps       int     `yaml:"steps"`
	SampleEvery int     `yaml:"sample_every"`
	Seed        int64   `yaml:"seed"`
	Temperature float64 `yaml:"temperature"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:      "custom",
		Precision: DefaultPrecision,
		Backend:   DefaultBackend,
		MD: MDConfig{
			Dt:          DefaultDt,
			Steps:       DefaultSteps,
			SampleEvery: DefaultSampleEvery,
			Temperature: DefaultTemperature,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over DefaultConfig and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// NumDims is the coordinate dimension shared by all atoms, or 0 with no atoms.
func (c *Config) NumDims() int {
	if len(c.Atoms) == 0 {
		return 0
	}
	return len(c.Atoms[0].Position)
}

func (c *Config) Molecule() forcefield.Molecule {
	types := make([]string, len(c.Atoms))
	for i, a := range c.Atoms {
		types[i] = a.Type
	}
	bonds := make([][2]int, len(c.Bonds))
	copy(bonds, c.Bonds)
	return forcefield.Molecule{AtomTypes: types, Bonds: bonds}
}

func (c *Config) Validate() error {
	switch c.Precision {
	case "f32", "f64":
	default:
		return fmt.Errorf("%w: precision %q (want f32 or f64)", ErrInvalidConfig, c.Precision)
	}
	if len(c.Atoms) == 0 {
		return fmt.Errorf("%w: no atoms", ErrInvalidConfig)
	}
	dims := c.NumDims()
	if dims == 0 {
		return fmt.Errorf("%w: atom 0 has no position", ErrInvalidConfig)
	}
	for i, a := range c.Atoms {
		if len(a.Position) != dims {
			return fmt.Errorf("%w: atom %d has %d coordinates, want %d", ErrInvalidConfig, i, len(a.Position), dims)
		}
		if a.Mass <= 0 {
			return fmt.Errorf("%w: atom %d mass must be positive", ErrInvalidConfig, i)
		}
		if a.Type == "" {
			return fmt.Errorf("%w: atom %d has no type", ErrInvalidConfig, i)
		}
	}
	for i, b := range c.Bonds {
		for _, idx := range b {
			if idx < 0 || idx >= len(c.Atoms) {
				return fmt.Errorf("%w: bond %d references atom %d of %d", ErrInvalidConfig, i, idx, len(c.Atoms))
			}
		}
	}
	if c.MD.Dt <= 0 {
		return fmt.Errorf("%w: md.dt must be positive", ErrInvalidConfig)
	}
	if c.MD.Steps <= 0 {
		return fmt.Errorf("%w: md.steps must be positive", ErrInvalidConfig)
	}
	if c.MD.SampleEvery < 0 {
		return fmt.Errorf("%w: md.sample_every must not be negative", ErrInvalidConfig)
	}
	if c.MD.Temperature < 0 {
		return fmt.Errorf("%w: md.temperature must not be negative", ErrInvalidConfig)
	}
	return nil
}
