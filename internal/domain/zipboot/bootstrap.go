// Package zipboot estimates a ZIP-style synergy score with a bootstrap
// confidence interval.
//
// Each iteration resamples the dose-effect observations with replacement,
// refits 4PL marginal curves for both agents from the resampled single-agent
// controls, and scores the mean deviation of the observed combination
// effects from the ZIP independence reference Ea + Eb - Ea*Eb. The interval
// is percentile-based over the per-iteration scores; it is Monte Carlo
// resampling, not a closed-form approximation.
package zipboot

import (
	"context"
	"errors"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/phytokit/screen/internal/domain/doseresponse"
	"github.com/phytokit/screen/internal/domain/model"
	"github.com/phytokit/screen/internal/domain/synergy"
	"github.com/phytokit/screen/pkg/logger"
)

// Bootstrap defaults.
const (
	DefaultIterations = 100
	DefaultSeed       = 42
	ciLowQuantile     = 0.025
	ciHighQuantile    = 0.975
)

// Result aggregates the per-iteration synergy scores.
type Result struct {
	Mean       float64
	CILow      float64 // 2.5th percentile
	CIHigh     float64 // 97.5th percentile
	Std        float64
	Iterations int
	Degenerate int // iterations scored zero for lack of marginal points
}

// Option applies a configuration option to a bootstrap run.
type Option func(*config)

type config struct {
	iterations int
	seed       int64
	log        logger.Logger
}

// WithIterations sets the number of bootstrap resamples.
func WithIterations(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.iterations = n
		}
	}
}

// WithSeed overrides the random seed. The default is fixed so repeated runs
// on the same data are reproducible.
func WithSeed(seed int64) Option {
	return func(c *config) {
		c.seed = seed
	}
}

// WithLogger attaches a logger for per-iteration diagnostics.
func WithLogger(log logger.Logger) Option {
	return func(c *config) {
		c.log = log
	}
}

// Bootstrap estimates the ZIP synergy score of a combination dataset.
func Bootstrap(ctx context.Context, ds model.CombinationDataset, opts ...Option) (Result, error) {
	cfg := config{iterations: DefaultIterations, seed: DefaultSeed}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := ds.Validate(); err != nil {
		return Result{}, err
	}

	rng := rand.New(rand.NewSource(cfg.seed)) //nolint:gosec // deterministic seed for reproducible resampling
	n := ds.Len()
	scores := make([]float64, 0, cfg.iterations)
	degenerate := 0

	concA := make([]float64, n)
	concB := make([]float64, n)
	effect := make([]float64, n)

	for iter := 0; iter < cfg.iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		for i := 0; i < n; i++ {
			j := rng.Intn(n)
			concA[i], concB[i], effect[i] = ds.ConcA[j], ds.ConcB[j], ds.Effect[j]
		}

		score, ok := iterationScore(concA, concB, effect)
		if !ok {
			degenerate++
			if cfg.log != nil {
				cfg.log.Debug(ctx, "degenerate marginal in bootstrap iteration",
					logger.String("pair", ds.PairID), logger.Int("iteration", iter))
			}
			scores = append(scores, 0.0)
			continue
		}
		scores = append(scores, score)
	}

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	return Result{
		Mean:       stat.Mean(scores, nil),
		CILow:      stat.Quantile(ciLowQuantile, stat.LinInterp, sorted, nil),
		CIHigh:     stat.Quantile(ciHighQuantile, stat.LinInterp, sorted, nil),
		Std:        stat.PopStdDev(scores, nil),
		Iterations: cfg.iterations,
		Degenerate: degenerate,
	}, nil
}

// iterationScore partitions one resample into single-agent and combination
// subsets, fits the marginals, and returns the mean ZIP deviation. ok is
// false when either marginal lacked enough points, which the caller absorbs
// as a zero score rather than aborting the run.
func iterationScore(concA, concB, effect []float64) (float64, bool) {
	var aConc, aEff, bConc, bEff, cA, cB, cEff []float64
	for i := range effect {
		switch {
		case concB[i] == 0 && concA[i] > 0:
			aConc = append(aConc, concA[i])
			aEff = append(aEff, effect[i])
		case concA[i] == 0 && concB[i] > 0:
			bConc = append(bConc, concB[i])
			bEff = append(bEff, effect[i])
		case concA[i] > 0 && concB[i] > 0:
			cA = append(cA, concA[i])
			cB = append(cB, concB[i])
			cEff = append(cEff, effect[i])
		}
		// Points with both concentrations zero carry no dose information.
	}

	pa, ok := fitMarginal(aConc, aEff)
	if !ok {
		return 0, false
	}
	pb, ok := fitMarginal(bConc, bEff)
	if !ok {
		return 0, false
	}

	if len(cEff) == 0 {
		return 0.0, true
	}

	var sum float64
	for i := range cEff {
		ea := doseresponse.FourPL(cA[i], pa.Top, pa.Bottom, pa.EC50, pa.Hill)
		eb := doseresponse.FourPL(cB[i], pb.Top, pb.Bottom, pb.EC50, pb.Hill)
		sum += cEff[i] - synergy.BlissIndependence(ea, eb)
	}
	return sum / float64(len(cEff)), true
}

// fitMarginal fits a 4PL to one agent's resampled controls. A solver that
// cannot converge degrades to the heuristic seed, mirroring the tolerant
// marginal fit used for surface scoring; too few points is a hard miss.
func fitMarginal(conc, eff []float64) (doseresponse.Params, bool) {
	res, err := doseresponse.Fit4PL(conc, eff)
	if err == nil {
		return res.Params, true
	}

	var ce *doseresponse.ConvergenceError
	if errors.As(err, &ce) {
		return doseresponse.Initial4PL(conc, eff), true
	}
	return doseresponse.Params{}, false
}
