package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if SCREEN_CONFIG is set
//  3. env (prefix SCREEN_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("SCREEN_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: SCREEN_ADDR, SCREEN_QUEUE_SIZE, ...
	// Map env keys like SCREEN_QUEUE_SIZE -> queue_size (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("SCREEN_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "screen_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with. It fails
// fast so misconfiguration surfaces at startup, not mid-campaign.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	}
	if c.SynergyThreshold <= 0 {
		return fmt.Errorf("%w: synergy_threshold must be positive, got %g", ErrInvalidConfig, c.SynergyThreshold)
	}
	if c.BootstrapIterations <= 0 {
		return fmt.Errorf("%w: bootstrap_iterations must be positive, got %d", ErrInvalidConfig, c.BootstrapIterations)
	}
	if c.EnableLSH {
		if c.LSHNPerm <= 0 || c.LSHBands <= 0 || c.LSHBandSize <= 0 {
			return fmt.Errorf("%w: lsh_n_perm, lsh_bands, and lsh_band_size must be positive", ErrInvalidConfig)
		}
		if c.LSHBands*c.LSHBandSize != c.LSHNPerm {
			return fmt.Errorf("%w: lsh_bands (%d) * lsh_band_size (%d) must equal lsh_n_perm (%d)",
				ErrInvalidConfig, c.LSHBands, c.LSHBandSize, c.LSHNPerm)
		}
		if c.LSHRoundDa <= 0 {
			return fmt.Errorf("%w: lsh_round_da must be positive, got %g", ErrInvalidConfig, c.LSHRoundDa)
		}
		if c.LSHThreshold <= 0 || c.LSHThreshold > 1 {
			return fmt.Errorf("%w: lsh_threshold must be in (0, 1], got %g", ErrInvalidConfig, c.LSHThreshold)
		}
	}
	return nil
}
