// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load() layers file/env.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the metrics/health HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory fit job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of curve-fitting workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// SynergyThreshold is the mean-delta band treated as additive.
	SynergyThreshold float64 `koanf:"synergy_threshold"`

	// BootstrapIterations and BootstrapSeed control ZIP bootstrap runs.
	BootstrapIterations int   `koanf:"bootstrap_iterations"`
	BootstrapSeed       int64 `koanf:"bootstrap_seed"`

	// EnableLSH gates spectral near-duplicate detection.
	EnableLSH bool `koanf:"enable_lsh"`

	// EnableZIPBootstrap gates bootstrap synergy estimation.
	EnableZIPBootstrap bool `koanf:"enable_zip_bootstrap"`

	// Spectral matching tunables.
	LSHTopK        int     `koanf:"lsh_top_k"`
	LSHRoundDa     float64 `koanf:"lsh_round_da"`
	LSHNPerm       int     `koanf:"lsh_n_perm"`
	LSHBands       int     `koanf:"lsh_bands"`
	LSHBandSize    int     `koanf:"lsh_band_size"`
	LSHSeed        int64   `koanf:"lsh_seed"`
	LSHBucketDa    float64 `koanf:"lsh_bucket_da"`
	LSHToleranceDa float64 `koanf:"lsh_tolerance_da"`
	LSHThreshold   float64 `koanf:"lsh_threshold"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9090",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          50_000,
		SynergyThreshold:    0.1,
		BootstrapIterations: 100,
		BootstrapSeed:       42,
		EnableLSH:           true,
		EnableZIPBootstrap:  true,
		LSHTopK:             30,
		LSHRoundDa:          0.1,
		LSHNPerm:            64,
		LSHBands:            16,
		LSHBandSize:         4,
		LSHSeed:             7,
		LSHBucketDa:         1.0,
		LSHToleranceDa:      0.02,
		LSHThreshold:        0.75,
	}
}
