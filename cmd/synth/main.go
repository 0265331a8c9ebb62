package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/phytokit/screen/internal/synthetic"
	"github.com/phytokit/screen/pkg/logger"
)

// Default campaign configuration.
const (
	defaultCampaignTimeout = 10 * time.Minute
	defaultWorkerFactor    = 2
)

func main() {
	var (
		curves       = flag.Int("curves", synthetic.DefaultCurves, "Number of dose-response curves to generate and fit")
		combinations = flag.Int("combinations", synthetic.DefaultCombinations, "Number of combination checkerboards to analyze")
		spectraN     = flag.Int("spectra", synthetic.DefaultSpectra, "Number of spectra to index")
		seed         = flag.Int64("seed", synthetic.DefaultSeed, "Random seed for reproducible campaigns")
		noise        = flag.Float64("noise", synthetic.DefaultNoiseSD, "Gaussian response noise (response units)")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkerFactor, "Number of fitting workers")
		verbose      = flag.Bool("verbose", false, "Log each combination verdict")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultCampaignTimeout)
	defer cancel()

	cfg := synthetic.Config{
		Curves:       *curves,
		Combinations: *combinations,
		Spectra:      *spectraN,
		Seed:         *seed,
		NoiseSD:      *noise,
		Workers:      *workers,
		Verbose:      *verbose,
	}

	if _, err := synthetic.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("campaign failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
