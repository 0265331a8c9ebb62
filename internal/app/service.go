// Package service provides the core triage service that wires dose-response
// fitting, synergy analysis, and spectral matching into the knowledge graph.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/phytokit/screen/internal/adapters/kg"
	jobqueue "github.com/phytokit/screen/internal/adapters/mq/queue"
	workerpool "github.com/phytokit/screen/internal/adapters/mq/worker"
	"github.com/phytokit/screen/internal/domain/dedupe"
	"github.com/phytokit/screen/internal/domain/doseresponse"
	"github.com/phytokit/screen/internal/domain/model"
	"github.com/phytokit/screen/internal/domain/spectra"
	"github.com/phytokit/screen/internal/domain/synergy"
	"github.com/phytokit/screen/internal/domain/zipboot"
	"github.com/phytokit/screen/pkg/logger"
	"github.com/phytokit/screen/pkg/metrics"
)

// CombinationReport is the result of a full combination analysis.
type CombinationReport struct {
	PairID    string
	Bliss     synergy.GridScore
	HSA       synergy.GridScore
	Call      synergy.Call
	Bootstrap *zipboot.Result // nil when bootstrap is disabled
}

// Service implements the triage pipeline for a screening campaign.
type Service struct {
	mu sync.RWMutex

	// Core components
	graph      *kg.Graph
	deduper    dedupe.Deduper
	jobQueue   jobqueue.Queue
	workerPool *workerpool.Pool

	// Completed asynchronous fits, by curve ID.
	results map[string]workerpool.Outcome

	// Configuration
	workerCount         int
	queueSize           int
	dedupeSize          int
	synergyThreshold    float64
	bootstrapIterations int
	bootstrapSeed       int64
	enableLSH           bool
	enableZIPBootstrap  bool
	spectraCfg          spectra.Config

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of fitting workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the fit job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSynergyThreshold sets the mean-delta band treated as additive.
func WithSynergyThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.synergyThreshold = threshold
		}
	}
}

// WithBootstrap configures ZIP bootstrap iterations and seed.
func WithBootstrap(iterations int, seed int64) Option {
	return func(s *Service) {
		if iterations > 0 {
			s.bootstrapIterations = iterations
		}
		s.bootstrapSeed = seed
	}
}

// WithFeatureFlags gates the LSH and ZIP bootstrap stages.
func WithFeatureFlags(lsh, zipBootstrap bool) Option {
	return func(s *Service) {
		s.enableLSH = lsh
		s.enableZIPBootstrap = zipBootstrap
	}
}

// WithSpectraConfig sets the spectral matching tunables.
func WithSpectraConfig(cfg spectra.Config) Option {
	return func(s *Service) {
		s.spectraCfg = cfg
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:         4,
		queueSize:           10_000,
		dedupeSize:          50_000,
		synergyThreshold:    0.1,
		bootstrapIterations: zipboot.DefaultIterations,
		bootstrapSeed:       zipboot.DefaultSeed,
		enableLSH:           true,
		enableZIPBootstrap:  true,
		spectraCfg:          spectra.NewConfig(),
		logger:              nil, // replaced when the service starts
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting triage service...")

	s.graph = kg.NewGraph()
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.jobQueue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)
	s.results = make(map[string]workerpool.Outcome)

	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, s)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "triage service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Any("capabilities", s.capabilitiesLocked()),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping triage service...")

	if q, ok := s.jobQueue.(*jobqueue.InMemoryQueue); ok {
		_ = q.Close()
	}
	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	s.started = false
	s.logger.Info(context.Background(), "triage service stopped")
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// SubmitFit queues a curve fit for asynchronous processing. Duplicate job
// IDs are reported as accepted without being re-queued.
func (s *Service) SubmitFit(ctx context.Context, job model.FitJob) bool {
	if !s.isStarted() {
		return false
	}
	if s.deduper.SeenAndRecord(ctx, job.JobID) {
		s.logger.Debug(ctx, "duplicate fit job, skipping",
			logger.String("jobID", job.JobID),
		)
		return true
	}

	ok := s.jobQueue.Enqueue(ctx, job)
	if !ok {
		// Allow a retry once the queue has capacity again.
		s.deduper.Unrecord(ctx, job.JobID)
		s.logger.Warn(ctx, "fit job rejected by queue",
			logger.String("jobID", job.JobID),
		)
	}
	return ok
}

// RecordOutcome stores a completed asynchronous fit. It implements the
// worker pool's Recorder interface.
func (s *Service) RecordOutcome(_ context.Context, out workerpool.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[out.CurveID] = out
	metrics.RecordModelSelected(string(out.Result.Model))
	return nil
}

// Outcome returns the completed fit for a curve, if any.
func (s *Service) Outcome(curveID string) (workerpool.Outcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out, ok := s.results[curveID]
	return out, ok
}

// FitCurve fits one dose-response curve synchronously.
func (s *Service) FitCurve(ctx context.Context, sample model.CurveSample, prefer string) (doseresponse.FitResult, error) {
	start := time.Now()
	res, err := doseresponse.AutoFit(ctx, sample.Conc, sample.Resp,
		doseresponse.ParsePreference(prefer),
		doseresponse.WithSelectLogger(s.logger),
	)
	metrics.RecordFitDuration(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordFitFailure("sync")
		return doseresponse.FitResult{}, err
	}

	metrics.RecordFit(string(res.Model))
	metrics.RecordFitR2(res.R2)
	metrics.RecordModelSelected(string(res.Model))
	return res, nil
}

// AnalyzeCombination scores a two-agent combination against the Bliss and
// HSA references, classifies the interaction, and optionally attaches a ZIP
// bootstrap estimate. Synergistic verdicts land in the knowledge graph as a
// SYNERGY_WITH edge between the two compounds.
func (s *Service) AnalyzeCombination(ctx context.Context, ds model.CombinationDataset) (CombinationReport, error) {
	if !s.isStarted() {
		return CombinationReport{}, ErrNotStarted
	}
	if err := ds.Validate(); err != nil {
		return CombinationReport{}, err
	}

	grid := gridFromDataset(ds)
	report := CombinationReport{
		PairID: ds.PairID,
		Bliss:  synergy.ScoreGrid(grid, synergy.BlissIndependence),
		HSA:    synergy.ScoreGrid(grid, synergy.HSAReference),
	}
	report.Call = synergy.Classify(report.Bliss.MeanDelta, s.synergyThreshold)

	if s.enableZIPBootstrap {
		start := time.Now()
		boot, err := zipboot.Bootstrap(ctx, ds,
			zipboot.WithIterations(s.bootstrapIterations),
			zipboot.WithSeed(s.bootstrapSeed),
			zipboot.WithLogger(s.logger),
		)
		metrics.RecordBootstrapDuration(float64(time.Since(start).Milliseconds()))
		if err != nil {
			return CombinationReport{}, err
		}
		metrics.RecordBootstrapRun()
		metrics.RecordBootstrapIterations(boot.Iterations)
		metrics.RecordDegenerateMarginals(boot.Degenerate)
		report.Bootstrap = &boot
	}

	if err := s.recordSynergyEdge(ctx, report); err != nil {
		return CombinationReport{}, err
	}
	return report, nil
}

// recordSynergyEdge writes synergistic verdicts into the graph, once per
// pair. Additive and antagonistic calls leave the graph untouched.
func (s *Service) recordSynergyEdge(ctx context.Context, report CombinationReport) error {
	if report.Call != synergy.CallSynergy {
		return nil
	}

	idA, idB := splitPairID(report.PairID)

	if s.deduper.SeenAndRecord(ctx, "synergy|"+idA+"|"+idB) {
		return nil
	}

	src, err := s.graph.AddNode(kg.NodeCompound, idA, nil)
	if err != nil {
		return err
	}
	dst, err := s.graph.AddNode(kg.NodeCompound, idB, nil)
	if err != nil {
		return err
	}

	evidence := map[string]any{
		"source":     "combination-screen",
		"call":       string(report.Call),
		"mean_delta": report.Bliss.MeanDelta,
	}
	if report.Bootstrap != nil {
		evidence["zip_mean"] = report.Bootstrap.Mean
		evidence["zip_ci_low"] = report.Bootstrap.CILow
		evidence["zip_ci_high"] = report.Bootstrap.CIHigh
	}
	return s.graph.AddEdge(src, dst, kg.EdgeSynergyWith, report.Bliss.MeanDelta, evidence)
}

// EC50Shift fits an agent alone and in combination and reports the potency
// shift between the two curves.
func (s *Service) EC50Shift(ctx context.Context, alone, combined model.CurveSample) (float64, synergy.Shift, error) {
	aloneFit, err := doseresponse.Fit4PL(alone.Conc, alone.Resp)
	if err != nil {
		return 0, synergy.ShiftInvalid, err
	}
	comboFit, err := doseresponse.Fit4PL(combined.Conc, combined.Resp)
	if err != nil {
		return 0, synergy.ShiftInvalid, err
	}

	fold, shift := synergy.EC50Shift(aloneFit.Params.EC50, comboFit.Params.EC50)
	return fold, shift, nil
}

// MatchSpectra runs the two-stage near-duplicate pipeline and records every
// confirmed pair as a SIMILAR_TO edge. Pairs already recorded in an earlier
// batch are skipped.
func (s *Service) MatchSpectra(ctx context.Context, specs []spectra.Spectrum) ([]spectra.Edge, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	if !s.enableLSH {
		return nil, ErrFeatureDisabled
	}

	metrics.RecordSpectraIndexed(len(specs))
	metrics.UpdateLSHBuckets(spectra.Buckets(specs, s.spectraCfg))
	candidates, err := spectra.CandidatePairs(specs, s.spectraCfg)
	if err != nil {
		return nil, err
	}
	metrics.RecordLSHCandidates(len(candidates))

	byID := make(map[string]spectra.Spectrum, len(specs))
	for _, sp := range specs {
		byID[sp.ID] = sp
	}

	var edges []spectra.Edge
	for _, p := range candidates {
		score := spectra.CosineGreedy(byID[p.A], byID[p.B], s.spectraCfg.ToleranceDa)
		if score < s.spectraCfg.Threshold {
			continue
		}
		edge := spectra.Edge{A: p.A, B: p.B, Score: score}
		edges = append(edges, edge)

		if s.deduper.SeenAndRecord(ctx, "similar|"+p.A+"|"+p.B) {
			continue
		}
		if err := s.recordSimilarityEdge(edge); err != nil {
			return nil, err
		}
	}

	s.logger.Info(ctx, "spectral matching complete",
		logger.Int("spectra", len(specs)),
		logger.Int("candidates", len(candidates)),
		logger.Int("edges", len(edges)),
	)
	return edges, nil
}

func (s *Service) recordSimilarityEdge(edge spectra.Edge) error {
	src, err := s.graph.AddNode(kg.NodeCompound, edge.A, nil)
	if err != nil {
		return err
	}
	dst, err := s.graph.AddNode(kg.NodeCompound, edge.B, nil)
	if err != nil {
		return err
	}

	evidence := map[string]any{
		"source":       "lsh",
		"method":       "cosine",
		"tolerance_da": s.spectraCfg.ToleranceDa,
	}
	if err := s.graph.AddEdge(src, dst, kg.EdgeSimilarTo, edge.Score, evidence); err != nil {
		return err
	}
	metrics.RecordSimilarityEdge()
	return nil
}

// Graph exposes the knowledge graph for downstream reasoning.
func (s *Service) Graph() *kg.Graph {
	return s.graph
}

// Capabilities reports which optional pipeline stages are active.
func (s *Service) Capabilities() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capabilitiesLocked()
}

func (s *Service) capabilitiesLocked() map[string]bool {
	return map[string]bool{
		"lsh":           s.enableLSH,
		"zip_bootstrap": s.enableZIPBootstrap,
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if s.started {
		stats["queueLength"] = s.jobQueue.Len(context.Background())
		stats["completedFits"] = len(s.results)
		stats["graphNodes"] = s.graph.NodeCount()
		stats["graphEdges"] = s.graph.EdgeCount()
	}
	return stats
}

// gridFromDataset partitions combination observations into single-agent
// effect maps and the combination grid. Later observations of the same
// concentration overwrite earlier ones.
func gridFromDataset(ds model.CombinationDataset) synergy.Grid {
	g := synergy.Grid{
		EffectA: make(map[float64]float64),
		EffectB: make(map[float64]float64),
		Combo:   make(map[synergy.Pair]float64),
	}
	for i := 0; i < ds.Len(); i++ {
		ca, cb, eff := ds.ConcA[i], ds.ConcB[i], ds.Effect[i]
		switch {
		case ca > 0 && cb == 0:
			g.EffectA[ca] = eff
		case ca == 0 && cb > 0:
			g.EffectB[cb] = eff
		case ca > 0 && cb > 0:
			g.Combo[synergy.Pair{ConcA: ca, ConcB: cb}] = eff
		}
	}
	return g
}

// splitPairID resolves "compoundA|compoundB" pair identifiers; identifiers
// without a separator get positional suffixes.
func splitPairID(pairID string) (string, string) {
	if a, b, ok := strings.Cut(pairID, "|"); ok && a != "" && b != "" {
		return a, b
	}
	return pairID + ":A", pairID + ":B"
}
