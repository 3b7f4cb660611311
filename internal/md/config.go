package md

import (
	"errors"
	"fmt"

	"github.com/san-kum/bondkit/internal/config"
)

var ErrUnstable = errors.New("md: simulation became unstable")

type Config struct {
	Dt          float64
	Steps       int
	SampleEvery int
	Seed        int64
	Temperature float64
}

func DefaultConfig() Config {
	return FromConfig(config.DefaultConfig().MD)
}

func FromConfig(c config.MDConfig) Config {
	return Config{
		Dt:          c.Dt,
		Steps:       c.Steps,
		SampleEvery: c.SampleEvery,
		Seed:        c.Seed,
		Temperature: c.Temperature,
	}
}

func (c Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("md: dt must be positive, got %f", c.Dt)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("md: steps must be positive, got %d", c.Steps)
	}
	if c.SampleEvery < 0 {
		return fmt.Errorf("md: sample_every must not be negative, got %d", c.SampleEvery)
	}
	return nil
}

func (c Config) sampleEvery() int {
	if c.SampleEvery <= 0 {
		return 1
	}
	return c.SampleEvery
}
