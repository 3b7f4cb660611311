package optim

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/bondkit/internal/ndarray"
	"github.com/san-kum/bondkit/internal/potential"
	"github.com/san-kum/bondkit/internal/system"
)

const (
	DefaultMaxSteps = 2000
	DefaultForceTol = 1e-4
	DefaultMaxMove  = 0.01

	minMove = 1e-12
)

type MinimizeConfig struct {
	MaxSteps int
	// ForceTol is the largest per-atom |dE/dx| accepted as converged.
	ForceTol float64
	// MaxMove is the initial displacement of the atom under the largest force.
	MaxMove  float64
}

func DefaultMinimizeConfig() MinimizeConfig {
	return MinimizeConfig{
		MaxSteps: DefaultMaxSteps,
		ForceTol: DefaultForceTol,
		MaxMove:  DefaultMaxMove,
	}
}

func (c MinimizeConfig) Validate() error {
	if c.MaxSteps <= 0 {
		return fmt.Errorf("optim: max steps must be positive, got %d", c.MaxSteps)
	}
	if !(c.ForceTol > 0) {
		return fmt.Errorf("optim: force tolerance must be positive, got %v", c.ForceTol)
	}
	if !(c.MaxMove > 0) {
		return fmt.Errorf("optim: max move must be positive, got %v", c.MaxMove)
	}
	return nil
}

type MinimizeResult[T ndarray.Float] struct {
	Coords    *ndarray.Array[T]
	Energy    float64
	Initial   float64
	MaxForce  float64
	Steps     int
	Converged bool
}

// Minimize relaxes the system's coordinates by steepest descent. The move
// length grows after every accepted step and halves after every rejected
// one. sys.Coords is not modified.
func Minimize[T ndarray.Float](ctx context.Context, sys *system.System[T], cfg MinimizeConfig, log *slog.Logger) (*MinimizeResult[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	n, d, p := sys.NumAtoms(), sys.NumDims(), sys.NumParams()
	cur, err := potential.NewDerivatives[T](n, d, p)
	if err != nil {
		return nil, err
	}
	trial, err := potential.NewDerivatives[T](n, d, p)
	if err != nil {
		return nil, err
	}

	x := sys.Coords.Clone()
	next := sys.Coords.Clone()
	if err := sys.EvaluateAt(x, cur); err != nil {
		return nil, err
	}
	res := &MinimizeResult[T]{Initial: float64(cur.Energy())}
	move := cfg.MaxMove

	for res.Steps < cfg.MaxSteps {
		if err := ctx.Err(); err != nil {
			return res.finish(x, cur), err
		}
		fmax := maxRowNorm(cur.DEDx)
		if fmax <= cfg.ForceTol {
			res.Converged = true
			break
		}
		if move < minMove {
			break
		}
		res.Steps++

		scale := T(move / fmax)
		xd, nd, g := x.Data(), next.Data(), cur.DEDx.Data()
		for i := range xd {
			nd[i] = xd[i] - scale*g[i]
		}
		if err := sys.EvaluateAt(next, trial); err != nil {
			return res.finish(x, cur), err
		}
		e := float64(trial.Energy())
		if e < float64(cur.Energy()) && !math.IsNaN(e) {
			x, next = next, x
			cur, trial = trial, cur
			move *= 1.2
		} else {
			move *= 0.5
		}
	}

	res.finish(x, cur)
	log.Info("minimization finished",
		"system", sys.Name,
		"steps", res.Steps,
		"energy", res.Energy,
		"max_force", res.MaxForce,
		"converged", res.Converged,
	)
	return res, nil
}

func (r *MinimizeResult[T]) finish(x *ndarray.Array[T], der *potential.Derivatives[T]) *MinimizeResult[T] {
	r.Coords = x
	r.Energy = float64(der.Energy())
	r.MaxForce = maxRowNorm(der.DEDx)
	return r
}

func maxRowNorm[T ndarray.Float](a *ndarray.Array[T]) float64 {
	d := a.Dim(1)
	if d == 0 {
		return 0
	}
	data := a.Data()
	var peak float64
	for i := 0; i+d <= len(data); i += d {
		var s float64
		for _, c := range data[i : i+d] {
			s += float64(c) * float64(c)
		}
		peak = max(peak, math.Sqrt(s))
	}
	return peak
}
