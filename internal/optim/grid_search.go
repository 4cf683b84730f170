// Package optim scans config parameters over a grid and compares the
// resulting first-passage distributions.
package optim

import (
	"context"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/langevin/internal/config"
	"github.com/san-kum/langevin/internal/ensemble"
)

// RunFunc runs one ensemble for a fully resolved config.
type RunFunc func(ctx context.Context, cfg config.Config) (*ensemble.Result, error)

type Point struct {
	Params map[string]float64
	Result *ensemble.Result
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

// NewGridSearch takes config keys (as in YAML) and the values to try for each.
func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("%d parameters but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("parameter %s has no values", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// ParseAxis parses "name=v1,v2,...".
func ParseAxis(axis string) (string, []float64, error) {
	name, list, ok := strings.Cut(axis, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.TrimSpace(list) == "" {
		return "", nil, fmt.Errorf("bad grid axis %q, want name=v1,v2", axis)
	}
	parts := strings.Split(list, ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return "", nil, fmt.Errorf("grid axis %s: %w", name, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs every grid point over base, in row-major order of the axes.
// The first failing point aborts the search.
func (g *GridSearch) Search(ctx context.Context, base config.Config, run RunFunc) ([]Point, error) {
	points := make([]Point, 0, g.Size())
	err := g.searchRecursive(ctx, 0, make(map[string]float64), base, run, &points)
	if err != nil {
		return nil, err
	}
	return points, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base config.Config,
	run RunFunc,
	points *[]Point,
) error {
	if depth == len(g.paramNames) {
		if err := ctx.Err(); err != nil {
			return err
		}

		cfg := base
		values := make(map[string]any, len(current))
		for k, v := range current {
			values[k] = v
		}
		if err := config.Apply(&cfg, values); err != nil {
			return err
		}

		res, err := run(ctx, cfg)
		if err != nil {
			return fmt.Errorf("grid point %v: %w", current, err)
		}
		*points = append(*points, Point{Params: maps.Clone(current), Result: res})
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := maps.Clone(current)
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, run, points); err != nil {
			return err
		}
	}
	return nil
}

// MeanPassageTime is NaN when no trial was absorbed.
func MeanPassageTime(res *ensemble.Result) float64 {
	if res == nil || res.Summary.Count == 0 {
		return math.NaN()
	}
	return res.Summary.Mean
}

// Best returns the point minimizing objective, ignoring NaN values.
func Best(points []Point, objective func(*ensemble.Result) float64) (Point, bool) {
	best := math.Inf(1)
	var bestPoint Point
	found := false
	for _, p := range points {
		val := objective(p.Result)
		if math.IsNaN(val) {
			continue
		}
		if val < best {
			best = val
			bestPoint = p
			found = true
		}
	}
	return bestPoint, found
}
