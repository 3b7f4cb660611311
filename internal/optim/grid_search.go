// Package optim searches parameter grids and relaxes geometries over a
// bondkit system's potential.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/bondkit/internal/ndarray"
	"github.com/san-kum/bondkit/internal/potential"
	"github.com/san-kum/bondkit/internal/system"
)

var ErrNoCandidate = errors.New("optim: no candidate produced a finite value")

// Objective scores a full parameter vector. Lower is better.
type Objective func(ctx context.Context, params []float64) (float64, error)

// Axis is the set of values tried for one parameter slot.
type Axis struct {
	Slot   int
	Values []float64
}

// Point is one evaluated grid node. Values follow the axis order.
type Point struct {
	Values []float64
	Score  float64
}

type SearchResult struct {
	Best      []float64
	BestScore float64
	Points    []Point
}

type GridSearch struct {
	axes []Axis
}

func NewGridSearch(axes ...Axis) (*GridSearch, error) {
	seen := make(map[int]bool, len(axes))
	for _, a := range axes {
		if a.Slot < 0 {
			return nil, fmt.Errorf("optim: negative slot %d", a.Slot)
		}
		if seen[a.Slot] {
			return nil, fmt.Errorf("optim: slot %d listed twice", a.Slot)
		}
		if len(a.Values) == 0 {
			return nil, fmt.Errorf("optim: slot %d has no values", a.Slot)
		}
		seen[a.Slot] = true
	}
	return &GridSearch{axes: axes}, nil
}

// Size is the number of grid nodes.
func (g *GridSearch) Size() int {
	n := 1
	for _, a := range g.axes {
		n *= len(a.Values)
	}
	return n
}

// Search evaluates obj at every node of the grid, starting from base for the
// slots not on an axis. Nodes whose objective fails or is not finite are
// recorded with a NaN score and never chosen.
func (g *GridSearch) Search(ctx context.Context, base []float64, obj Objective) (*SearchResult, error) {
	for _, a := range g.axes {
		if a.Slot >= len(base) {
			return nil, fmt.Errorf("optim: slot %d outside %d params", a.Slot, len(base))
		}
	}

	res := &SearchResult{BestScore: math.Inf(1)}
	current := append([]float64(nil), base...)
	if err := g.searchRecursive(ctx, 0, current, make([]float64, len(g.axes)), obj, res); err != nil {
		return res, err
	}
	if res.Best == nil {
		return res, ErrNoCandidate
	}
	return res, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current, values []float64, obj Objective, res *SearchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.axes) {
		score, err := obj(ctx, current)
		if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
			score = math.NaN()
		}
		res.Points = append(res.Points, Point{Values: append([]float64(nil), values...), Score: score})
		if score < res.BestScore {
			res.BestScore = score
			res.Best = append(res.Best[:0], current...)
		}
		return nil
	}

	axis := g.axes[depth]
	for _, v := range axis.Values {
		current[axis.Slot] = v
		values[depth] = v
		if err := g.searchRecursive(ctx, depth+1, current, values, obj, res); err != nil {
			return err
		}
	}
	return nil
}

// EnergyObjective scores parameters by the potential energy at the system's
// coordinates.
func EnergyObjective[T ndarray.Float](sys *system.System[T]) Objective {
	params := ndarray.MustZeros[T](sys.NumParams())
	return func(_ context.Context, p []float64) (float64, error) {
		if len(p) != params.Len() {
			return 0, potential.ShapeError("params", ndarray.Shape{len(p)}, params.Shape())
		}
		for i, v := range p {
			params.Data()[i] = T(v)
		}
		out, err := potential.Evaluate[T](sys.Potential, sys.Coords, params, nil)
		if err != nil {
			return 0, err
		}
		return float64(out.Energy()), nil
	}
}
