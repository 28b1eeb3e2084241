package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/powertrain/internal/logging"
	"github.com/san-kum/powertrain/internal/system"
)

var ErrNoCandidates = errors.New("optim: no candidates")

// WeightScale is the mass in kg that costs as much as a full torque shortfall.
const WeightScale = 20.0

// Condition is a set of path overrides, e.g. a low charge state and hot coils,
// the design has to perform under.
type Condition map[string]float64

// Candidate is one evaluated point of the search grid.
type Candidate struct {
	Params    map[string]float64
	Scores    system.Scores // averaged over conditions
	Weight    float64
	Objective float64
	System    system.System
}

type Options struct {
	Score   system.ScoreOptions
	Workers int
	Logger  *zap.Logger
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

// NewGridSearch searches the cartesian product of ranges, one per system path.
func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d params for %d ranges", len(params), len(ranges))
	}
	known := make(map[string]bool)
	for _, p := range system.Paths() {
		known[p] = true
	}
	for i, p := range params {
		if !known[p] {
			return nil, fmt.Errorf("%w: %s", system.ErrUnknownPath, p)
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("%w: empty range for %s", ErrNoCandidates, p)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Size is the number of candidates the search evaluates.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

func (g *GridSearch) candidates() []map[string]float64 {
	var out []map[string]float64
	g.collect(0, make(map[string]float64), &out)
	return out
}

func (g *GridSearch) collect(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.collect(depth+1, newParams, out)
	}
}

// Evaluate scores one parameter set against the targets, averaged over the
// conditions. No conditions means the base system as is.
func Evaluate(ctx context.Context, base system.System, params map[string]float64, targets []system.Target, conditions []Condition, o system.ScoreOptions) (Candidate, error) {
	s, err := base.SetAll(params)
	if err != nil {
		return Candidate{}, err
	}
	if len(conditions) == 0 {
		conditions = []Condition{nil}
	}

	var mean system.Scores
	for _, c := range conditions {
		cs, err := s.SetAll(c)
		if err != nil {
			return Candidate{}, err
		}
		sc, err := system.Score(ctx, cs, targets, o)
		if err != nil {
			return Candidate{}, err
		}
		mean.Torque += sc.Torque / float64(len(conditions))
		mean.Dissipation += sc.Dissipation / float64(len(conditions))
	}

	weight := s.Weight()
	return Candidate{
		Params:    params,
		Scores:    mean,
		Weight:    weight,
		Objective: mean.Torque + mean.Dissipation + weight/WeightScale,
		System:    s,
	}, nil
}

// Search evaluates every candidate concurrently and returns all of them,
// best first. Equal objectives keep grid order.
func (g *GridSearch) Search(ctx context.Context, base system.System, targets []system.Target, conditions []Condition, o Options) ([]Candidate, error) {
	log := logging.OrNop(o.Logger)
	workers := o.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	params := g.candidates()
	if len(params) == 0 {
		return nil, ErrNoCandidates
	}
	results := make([]Candidate, len(params))

	var mu sync.Mutex
	best := math.Inf(1)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, p := range params {
		eg.Go(func() error {
			c, err := Evaluate(ctx, base, p, targets, conditions, o.Score)
			if err != nil {
				return fmt.Errorf("candidate %v: %w", p, err)
			}
			results[i] = c
			log.Debug("candidate evaluated",
				zap.Any("params", p),
				zap.Float64("torque_score", c.Scores.Torque),
				zap.Float64("dissipation_score", c.Scores.Dissipation),
				zap.Float64("weight", c.Weight),
				zap.Float64("objective", c.Objective),
			)

			mu.Lock()
			if c.Objective < best {
				best = c.Objective
				log.Info("new best", zap.Any("params", p), zap.Float64("objective", best))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Objective < results[j].Objective })
	return results, nil
}
