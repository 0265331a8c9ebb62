package doseresponse

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/phytokit/screen/pkg/logger"
)

// Preference selects the model family for AutoFit.
type Preference string

// Model preferences.
const (
	Prefer4PL  Preference = "4PL"
	Prefer5PL  Preference = "5PL"
	PreferAuto Preference = "auto"
)

// ParsePreference normalizes a preference string; anything unrecognized
// (including empty) means auto selection.
func ParsePreference(s string) Preference {
	switch Preference(s) {
	case Prefer4PL, Prefer5PL:
		return Preference(s)
	default:
		return PreferAuto
	}
}

// aicMargin is the standard "meaningfully better" AIC gap: the 5PL must beat
// the 4PL by at least this much to justify its extra parameter.
const aicMargin = 2.0

// SelectOption configures AutoFit.
type SelectOption func(*selectConfig)

type selectConfig struct {
	log     logger.Logger
	fitOpts []Option
}

// WithSelectLogger attaches a logger for fallback diagnostics. Without one,
// fallbacks are silent.
func WithSelectLogger(log logger.Logger) SelectOption {
	return func(c *selectConfig) {
		c.log = log
	}
}

// WithFitOptions passes fit options through to the underlying fits.
func WithFitOptions(opts ...Option) SelectOption {
	return func(c *selectConfig) {
		c.fitOpts = opts
	}
}

// AutoFit fits the preferred model, or in auto mode fits both and keeps the
// 5PL only when its AIC is at least 2 lower than the 4PL's. Fewer than 5
// usable points always forces the 4PL. A fit failure in auto mode falls back
// to whichever model succeeded; it only returns an error when neither does.
func AutoFit(ctx context.Context, conc, resp []float64, prefer Preference, opts ...SelectOption) (FitResult, error) {
	cfg := selectConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if prefer == Prefer4PL || UsablePoints(conc, resp) < min5PLPoints {
		return Fit4PL(conc, resp, cfg.fitOpts...)
	}

	if prefer == Prefer5PL {
		return Fit5PL(conc, resp, cfg.fitOpts...)
	}

	r4, err4 := Fit4PL(conc, resp, cfg.fitOpts...)
	r5, err5 := Fit5PL(conc, resp, cfg.fitOpts...)

	switch {
	case err4 != nil && err5 != nil:
		return FitResult{}, err4
	case err5 != nil:
		if cfg.log != nil {
			cfg.log.Warn(ctx, "auto fit falling back to 4PL", logger.Error(err5))
		}
		return r4, nil
	case err4 != nil:
		if cfg.log != nil {
			cfg.log.Warn(ctx, "auto fit keeping 5PL; 4PL failed", logger.Error(err4))
		}
		return r5, nil
	}

	aic4 := aic(r4.N, r4.R2, 4)
	aic5 := aic(r5.N, r5.R2, 5)
	if aic5 <= aic4-aicMargin {
		return r5, nil
	}
	return r4, nil
}

// aic is the approximation n*ln(1-R^2) + 2k; lower is better. The lack-of-fit
// term is floored so a perfect fit stays finite and the parameter-count
// penalty still separates the models.
func aic(n int, r2 float64, k int) float64 {
	lack := math.Max(1.0-r2, 1e-15)
	return float64(n)*math.Log(lack) + 2.0*float64(k)
}

// CI95 is the t-based 95% confidence interval for a fitted parameter with n
// data points. Returns NaNs when fewer than two points back the estimate.
func CI95(value, stderr float64, n int) (float64, float64) {
	if n < 2 {
		return math.NaN(), math.NaN()
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	margin := t.Quantile(0.975) * stderr
	return value - margin, value + margin
}
