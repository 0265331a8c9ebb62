package doseresponse

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Fit configuration defaults.
const (
	min4PLPoints      = 4
	min5PLPoints      = 5
	defaultMaxIter    = 500
	topSeedQuantile   = 0.95
	botSeedQuantile   = 0.05
	ec50LowerBound    = 1e-9
	ec50UpperFactor   = 100.0
	hillLowerBound    = 0.01
	hillUpperBound    = 5.0
	asymLowerBound    = 0.1
	asymUpperBound    = 10.0
	asymptotePadding  = 10.0
	asymptoteFarBound = 1e6
)

// Option applies a configuration option to a fit.
type Option func(*fitConfig)

type fitConfig struct {
	bounded bool
	maxIter int
}

// WithoutBounds disables the parameter box constraints.
func WithoutBounds() Option {
	return func(c *fitConfig) {
		c.bounded = false
	}
}

// WithMaxIterations overrides the solver iteration budget.
func WithMaxIterations(n int) Option {
	return func(c *fitConfig) {
		if n > 0 {
			c.maxIter = n
		}
	}
}

func newFitConfig(opts []Option) fitConfig {
	c := fitConfig{bounded: true, maxIter: defaultMaxIter}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Fit4PL fits the four-parameter logistic to concentration/response data.
// Points with non-finite values or non-positive concentration are dropped
// before fitting.
func Fit4PL(conc, resp []float64, opts ...Option) (FitResult, error) {
	cfg := newFitConfig(opts)

	x, y := clean(conc, resp)
	if len(x) < min4PLPoints {
		return FitResult{}, insufficientData(min4PLPoints, len(x), Model4PL)
	}

	p0 := seed4PL(x, y)
	lower, upper := bounds4PL(x, y)

	return fitModel(Model4PL, x, y, p0, lower, upper, cfg)
}

// Fit5PL fits the five-parameter logistic. The seed comes from a prior 4PL
// fit with asymmetry 1, so any 4PL failure surfaces here as well.
func Fit5PL(conc, resp []float64, opts ...Option) (FitResult, error) {
	cfg := newFitConfig(opts)

	x, y := clean(conc, resp)
	if len(x) < min5PLPoints {
		return FitResult{}, insufficientData(min5PLPoints, len(x), Model5PL)
	}

	prior, err := Fit4PL(x, y, opts...)
	if err != nil {
		return FitResult{}, err
	}

	p0 := []float64{prior.Params.Top, prior.Params.Bottom, prior.Params.EC50, prior.Params.Hill, 1.0}
	lower, upper := bounds4PL(x, y)
	lower = append(lower, asymLowerBound)
	upper = append(upper, asymUpperBound)

	return fitModel(Model5PL, x, y, p0, lower, upper, cfg)
}

// Initial4PL returns the heuristic 4PL seed for already-cleaned data:
// top = p95(y), bottom = p5(y), ec50 = median(x), hill = 1. Used by callers
// that degrade to the seed when a fit cannot converge.
func Initial4PL(conc, resp []float64) Params {
	x, y := clean(conc, resp)
	if len(x) == 0 {
		return Params{Hill: 1.0, Asym: 1.0, EC50: math.NaN(), Top: math.NaN(), Bottom: math.NaN()}
	}
	p := seed4PL(x, y)
	return Params{Top: p[0], Bottom: p[1], EC50: p[2], Hill: p[3], Asym: 1.0}
}

// UsablePoints reports how many points survive preprocessing.
func UsablePoints(conc, resp []float64) int {
	x, _ := clean(conc, resp)
	return len(x)
}

func fitModel(model ModelKind, x, y, p0, lower, upper []float64, cfg fitConfig) (FitResult, error) {
	f := eval4PL
	if model == Model5PL {
		f = eval5PL
	}

	prob := &lmProblem{f: f, x: x, y: y, maxIter: cfg.maxIter}
	if cfg.bounded {
		prob.lower, prob.upper = lower, upper
	}

	popt, ssr, err := prob.solve(p0)
	if err != nil {
		var ce *ConvergenceError
		if errors.As(err, &ce) {
			ce.Model = model
		}
		return FitResult{}, err
	}

	stderr := prob.covarianceDiag(popt, ssr)

	return FitResult{
		Model:   model,
		Params:  paramsFromVector(model, popt),
		StdErrs: stdErrsFromVector(model, stderr),
		R2:      rSquared(y, ssr),
		N:       len(x),
	}, nil
}

func eval4PL(x float64, p []float64) float64 {
	return FourPL(x, p[0], p[1], p[2], p[3])
}

func eval5PL(x float64, p []float64) float64 {
	return FivePL(x, p[0], p[1], p[2], p[3], p[4])
}

func paramsFromVector(model ModelKind, p []float64) Params {
	out := Params{Top: p[0], Bottom: p[1], EC50: p[2], Hill: p[3], Asym: 1.0}
	if model == Model5PL {
		out.Asym = p[4]
	}
	return out
}

func stdErrsFromVector(model ModelKind, se []float64) StdErrs {
	out := StdErrs{Top: se[0], Bottom: se[1], EC50: se[2], Hill: se[3], Asym: math.NaN()}
	if model == Model5PL {
		out.Asym = se[4]
	}
	return out
}

// clean drops non-finite pairs and non-positive concentrations.
func clean(conc, resp []float64) ([]float64, []float64) {
	n := len(conc)
	if len(resp) < n {
		n = len(resp)
	}
	x := make([]float64, 0, n)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		cx, cy := conc[i], resp[i]
		if math.IsNaN(cx) || math.IsInf(cx, 0) || math.IsNaN(cy) || math.IsInf(cy, 0) || cx <= 0 {
			continue
		}
		x = append(x, cx)
		y = append(y, cy)
	}
	return x, y
}

func seed4PL(x, y []float64) []float64 {
	return []float64{
		quantile(y, topSeedQuantile),
		quantile(y, botSeedQuantile),
		quantile(x, 0.5),
		1.0,
	}
}

func bounds4PL(x, y []float64) ([]float64, []float64) {
	minY, maxY := minMax(y)
	_, maxX := minMax(x)
	lower := []float64{minY - asymptotePadding, -asymptoteFarBound, ec50LowerBound, hillLowerBound}
	upper := []float64{asymptoteFarBound, maxY + asymptotePadding, maxX * ec50UpperFactor, hillUpperBound}
	return lower, upper
}

// quantile computes the p-quantile with linear interpolation, matching the
// convention used throughout the analysis stack.
func quantile(xs []float64, p float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

func minMax(xs []float64) (float64, float64) {
	lo, hi := xs[0], xs[0]
	for _, v := range xs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// rSquared is 1 - SS_res/SS_tot, zero when the responses are constant.
func rSquared(y []float64, ssr float64) float64 {
	mean := stat.Mean(y, nil)
	var sstot float64
	for _, v := range y {
		d := v - mean
		sstot += d * d
	}
	if sstot <= 0 {
		return 0.0
	}
	return 1.0 - ssr/sstot
}
