// Package synthetic generates deterministic screening data and drives the
// full triage pipeline with it. It backs the synth command and doubles as an
// end-to-end smoke harness.
package synthetic

import "time"

// Default campaign sizes.
const (
	DefaultCurves       = 200
	DefaultCombinations = 20
	DefaultSpectra      = 50
	DefaultSeed         = 1
	DefaultNoiseSD      = 1.5
	DefaultWaitTimeout  = 2 * time.Minute
)

// Config controls a synthetic campaign run.
type Config struct {
	Curves       int           // dose-response curves to submit
	Combinations int           // combination checkerboards to analyze
	Spectra      int           // spectra to index (pairs of near-duplicates)
	Seed         int64         // rng seed for reproducible campaigns
	NoiseSD      float64       // gaussian response noise, response units
	Workers      int           // fitting workers
	WaitTimeout  time.Duration // how long to wait for async fits
	Verbose      bool
}

// NewConfig fills in defaults for unset fields.
func NewConfig(cfg Config) Config {
	if cfg.Curves <= 0 {
		cfg.Curves = DefaultCurves
	}
	if cfg.Combinations <= 0 {
		cfg.Combinations = DefaultCombinations
	}
	if cfg.Spectra <= 0 {
		cfg.Spectra = DefaultSpectra
	}
	if cfg.Seed == 0 {
		cfg.Seed = DefaultSeed
	}
	if cfg.NoiseSD <= 0 {
		cfg.NoiseSD = DefaultNoiseSD
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	return cfg
}

// Stats summarizes a campaign run.
type Stats struct {
	CurvesSubmitted int
	FitsCompleted   int
	SynergyCalls    map[string]int
	SimilarityEdges int
	GraphNodes      int
	GraphEdges      int
	Duration        time.Duration
}
