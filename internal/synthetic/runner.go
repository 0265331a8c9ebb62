package synthetic

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	service "github.com/phytokit/screen/internal/app"
	"github.com/phytokit/screen/internal/domain/model"
	"github.com/phytokit/screen/pkg/logger"
)

// outcomePollInterval paces the wait for asynchronous fits; settleWindow is
// how long the completed count must hold still before an empty queue is
// treated as done.
const (
	outcomePollInterval = 25 * time.Millisecond
	settleWindow        = 2 * time.Second
)

// Run executes a complete synthetic campaign: async curve fits, combination
// analysis, and spectral matching, all against one service instance.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	cfg = NewConfig(cfg)
	log := logger.Get().Named("synthetic")
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // deterministic seed for reproducible campaigns

	stats := &Stats{SynergyCalls: make(map[string]int)}
	start := time.Now()

	log.Info(ctx, "starting synthetic campaign",
		logger.Int("curves", cfg.Curves),
		logger.Int("combinations", cfg.Combinations),
		logger.Int("spectra", cfg.Spectra),
		logger.Any("seed", cfg.Seed),
	)

	opts := []service.Option{service.WithLogger(log)}
	if cfg.Workers > 0 {
		opts = append(opts, service.WithWorkerCount(cfg.Workers))
	}
	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return nil, fmt.Errorf("service start failed: %w", err)
	}
	defer svc.Stop()

	// Stage 1: asynchronous dose-response fits.
	jobs := Curves(cfg, rng)
	for _, job := range jobs {
		if !svc.SubmitFit(ctx, job) {
			log.Warn(ctx, "fit job rejected", logger.String("jobID", job.JobID))
			continue
		}
		stats.CurvesSubmitted++
	}
	if err := waitForFits(ctx, svc, jobs, cfg.WaitTimeout); err != nil {
		return nil, err
	}
	for _, job := range jobs {
		if _, ok := svc.Outcome(job.CurveID); ok {
			stats.FitsCompleted++
		}
	}

	// Stage 2: combination analysis.
	for _, ds := range Combinations(cfg, rng) {
		report, err := svc.AnalyzeCombination(ctx, ds)
		if err != nil {
			return nil, fmt.Errorf("combination analysis failed for %s: %w", ds.PairID, err)
		}
		stats.SynergyCalls[string(report.Call)]++
		if cfg.Verbose {
			log.Info(ctx, "combination analyzed",
				logger.String("pair", ds.PairID),
				logger.String("call", string(report.Call)),
				logger.Float64("meanDelta", report.Bliss.MeanDelta),
			)
		}
	}

	// Stage 3: spectral matching.
	edges, err := svc.MatchSpectra(ctx, Spectra(cfg, rng))
	if err != nil {
		return nil, fmt.Errorf("spectral matching failed: %w", err)
	}
	stats.SimilarityEdges = len(edges)

	stats.GraphNodes = svc.Graph().NodeCount()
	stats.GraphEdges = svc.Graph().EdgeCount()
	stats.Duration = time.Since(start)

	log.Info(ctx, "campaign complete",
		logger.Int("curvesSubmitted", stats.CurvesSubmitted),
		logger.Int("fitsCompleted", stats.FitsCompleted),
		logger.Any("synergyCalls", stats.SynergyCalls),
		logger.Int("similarityEdges", stats.SimilarityEdges),
		logger.Int("graphNodes", stats.GraphNodes),
		logger.Int("graphEdges", stats.GraphEdges),
		logger.String("duration", stats.Duration.String()),
	)
	return stats, nil
}

// waitForFits blocks until every submitted curve has an outcome or the
// timeout passes. Curves whose fits failed never produce an outcome, so the
// wait also settles once the queue has drained and the completed count has
// stopped moving.
func waitForFits(ctx context.Context, svc *service.Service, jobs []model.FitJob, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	lastCount := -1
	stableSince := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		count := 0
		for _, job := range jobs {
			if _, ok := svc.Outcome(job.CurveID); ok {
				count++
			}
		}
		if count == len(jobs) {
			return nil
		}

		if count != lastCount {
			lastCount = count
			stableSince = time.Now()
		} else if time.Since(stableSince) > settleWindow {
			if qLen, ok := svc.GetStats()["queueLength"].(int); ok && qLen == 0 {
				return nil
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for fits: %d/%d complete", count, len(jobs))
		}
		time.Sleep(outcomePollInterval)
	}
}
