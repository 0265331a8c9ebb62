package service_test

import (
	"context"
	"math"
	"testing"
	"time"

	kg "github.com/phytokit/screen/internal/adapters/kg"
	service "github.com/phytokit/screen/internal/app"
	"github.com/phytokit/screen/internal/domain/model"
	"github.com/phytokit/screen/internal/domain/spectra"
	"github.com/phytokit/screen/internal/domain/synergy"
	"github.com/phytokit/screen/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func fourPL(c, top, bottom, ec50, hill float64) float64 {
	return bottom + (top-bottom)/(1.0+math.Pow(c/ec50, hill))
}

func curveSample(id string) model.CurveSample {
	conc := []float64{0.01, 0.03, 0.1, 0.3, 1, 3, 10, 30, 100}
	resp := make([]float64, len(conc))
	for i, c := range conc {
		resp[i] = fourPL(c, 100, 0, 2.0, 1.1)
	}
	return model.CurveSample{CurveID: id, Conc: conc, Resp: resp}
}

// combinationDataset builds a checkerboard with single-agent controls and a
// combination grid shifted above Bliss independence by shift.
func combinationDataset(pairID string, shift float64) model.CombinationDataset {
	singles := []float64{0.1, 0.3, 1, 3, 10, 30, 60, 100}
	ds := model.CombinationDataset{PairID: pairID}

	effA := func(c float64) float64 { return c / (c + 5.0) }
	effB := func(c float64) float64 { return c / (c + 10.0) }

	for _, c := range singles {
		ds.ConcA = append(ds.ConcA, c)
		ds.ConcB = append(ds.ConcB, 0)
		ds.Effect = append(ds.Effect, effA(c))
	}
	for _, c := range singles {
		ds.ConcA = append(ds.ConcA, 0)
		ds.ConcB = append(ds.ConcB, c)
		ds.Effect = append(ds.Effect, effB(c))
	}

	grid := []float64{0.3, 1, 3, 10}
	for _, ca := range grid {
		for _, cb := range grid {
			bliss := synergy.BlissIndependence(effA(ca), effB(cb))
			eff := math.Min(bliss+shift, 0.99)
			ds.ConcA = append(ds.ConcA, ca)
			ds.ConcB = append(ds.ConcB, cb)
			ds.Effect = append(ds.Effect, eff)
		}
	}
	return ds
}

func startedService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	s := service.New(opts...)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a triage service", t, func() {
		s := service.New(service.WithWorkerCount(2), service.WithQueueSize(10))

		Convey("Start is idempotent", func() {
			So(s.Start(context.Background()), ShouldBeNil)
			So(s.Start(context.Background()), ShouldBeNil)
			s.Stop()
		})

		Convey("Stats reflect configuration once started", func() {
			So(s.Start(context.Background()), ShouldBeNil)
			defer s.Stop()

			stats := s.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["queueSize"], ShouldEqual, 10)
		})

		Convey("Operations before Start are rejected", func() {
			cold := service.New()
			So(cold.SubmitFit(context.Background(), model.FitJob{JobID: "j1"}), ShouldBeFalse)

			_, err := cold.AnalyzeCombination(context.Background(), combinationDataset("a|b", 0))
			So(err, ShouldWrap, service.ErrNotStarted)

			_, err = cold.MatchSpectra(context.Background(), nil)
			So(err, ShouldWrap, service.ErrNotStarted)
		})

		Convey("Capabilities mirror the feature flags", func() {
			off := service.New(service.WithFeatureFlags(false, true))
			caps := off.Capabilities()
			So(caps["lsh"], ShouldBeFalse)
			So(caps["zip_bootstrap"], ShouldBeTrue)
		})
	})
}

func TestFitCurve(t *testing.T) {
	Convey("Given a started service", t, func() {
		s := startedService(t)

		Convey("A clean curve fits with a high R squared", func() {
			res, err := s.FitCurve(context.Background(), curveSample("c1"), "auto")
			So(err, ShouldBeNil)
			So(res.R2, ShouldBeGreaterThan, 0.99)
			So(res.Params.EC50, ShouldAlmostEqual, 2.0, 0.2)
		})

		Convey("Too little data surfaces the fit error", func() {
			bad := model.CurveSample{CurveID: "bad", Conc: []float64{1, 10}, Resp: []float64{80, 20}}
			_, err := s.FitCurve(context.Background(), bad, "4PL")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSubmitFit(t *testing.T) {
	Convey("Given a started service with workers", t, func() {
		s := startedService(t, service.WithWorkerCount(2))

		sample := curveSample("async-1")
		job := model.FitJob{
			JobID:   "job-1",
			CurveID: sample.CurveID,
			Conc:    sample.Conc,
			Resp:    sample.Resp,
			Prefer:  "4PL",
		}

		Convey("A submitted job eventually yields an outcome", func() {
			So(s.SubmitFit(context.Background(), job), ShouldBeTrue)

			deadline := time.Now().Add(10 * time.Second)
			for {
				if _, ok := s.Outcome(sample.CurveID); ok {
					break
				}
				if time.Now().After(deadline) {
					t.Fatal("no outcome before deadline")
				}
				time.Sleep(10 * time.Millisecond)
			}

			out, ok := s.Outcome(sample.CurveID)
			So(ok, ShouldBeTrue)
			So(out.JobID, ShouldEqual, "job-1")
			So(out.Result.R2, ShouldBeGreaterThan, 0.99)
		})

		Convey("Resubmitting the same job ID is absorbed as a duplicate", func() {
			So(s.SubmitFit(context.Background(), job), ShouldBeTrue)
			So(s.SubmitFit(context.Background(), job), ShouldBeTrue)
		})
	})
}

func TestAnalyzeCombination(t *testing.T) {
	Convey("Given a started service", t, func() {
		s := startedService(t, service.WithBootstrap(50, 42))

		Convey("A synergistic checkerboard is called as synergy", func() {
			report, err := s.AnalyzeCombination(context.Background(),
				combinationDataset("artemisinin|curcumin", 0.15))
			So(err, ShouldBeNil)
			So(report.Bliss.MeanDelta, ShouldAlmostEqual, 0.15, 0.02)
			So(report.Call, ShouldEqual, synergy.CallSynergy)
			So(report.Bliss.NPoints, ShouldEqual, 16)

			Convey("The bootstrap interval excludes zero", func() {
				So(report.Bootstrap, ShouldNotBeNil)
				So(report.Bootstrap.Mean, ShouldBeGreaterThan, 0)
				So(report.Bootstrap.Iterations, ShouldEqual, 50)
			})

			Convey("The verdict lands in the knowledge graph", func() {
				src := kg.NodeID{Type: kg.NodeCompound, ID: "artemisinin"}
				edges, err := s.Graph().EdgesByType(src, kg.EdgeSynergyWith, kg.DirectionOut)
				So(err, ShouldBeNil)
				So(edges, ShouldHaveLength, 1)
				So(edges[0].Dst.ID, ShouldEqual, "curcumin")
				So(edges[0].Evidence["call"], ShouldEqual, string(synergy.CallSynergy))
			})
		})

		Convey("An additive checkerboard is called additive", func() {
			report, err := s.AnalyzeCombination(context.Background(),
				combinationDataset("a|b", 0.0))
			So(err, ShouldBeNil)
			So(report.Call, ShouldEqual, synergy.CallAdditive)

			Convey("And leaves no trace in the knowledge graph", func() {
				src := kg.NodeID{Type: kg.NodeCompound, ID: "a"}
				_, found := s.Graph().GetNode(src)
				So(found, ShouldBeFalse)
				So(s.Graph().EdgeCount(), ShouldEqual, 0)
			})
		})

		Convey("With bootstrap disabled, no estimate is attached", func() {
			plain := startedService(t, service.WithFeatureFlags(true, false))
			report, err := plain.AnalyzeCombination(context.Background(),
				combinationDataset("c|d", 0.15))
			So(err, ShouldBeNil)
			So(report.Bootstrap, ShouldBeNil)
		})

		Convey("An invalid dataset is rejected up front", func() {
			_, err := s.AnalyzeCombination(context.Background(), model.CombinationDataset{
				PairID: "x|y",
				ConcA:  []float64{1},
				ConcB:  []float64{1, 2},
				Effect: []float64{0.5},
			})
			So(err, ShouldWrap, model.ErrInvalidDataset)
		})
	})
}

func TestEC50Shift(t *testing.T) {
	Convey("Given a started service", t, func() {
		s := startedService(t)

		conc := []float64{0.01, 0.03, 0.1, 0.3, 1, 3, 10, 30, 100}
		build := func(ec50 float64) model.CurveSample {
			resp := make([]float64, len(conc))
			for i, c := range conc {
				resp[i] = fourPL(c, 100, 0, ec50, 1.0)
			}
			return model.CurveSample{Conc: conc, Resp: resp}
		}

		Convey("A leftward shift in combination reads as potentiation", func() {
			fold, shift, err := s.EC50Shift(context.Background(), build(8.0), build(1.0))
			So(err, ShouldBeNil)
			So(fold, ShouldAlmostEqual, 8.0, 0.8)
			So(shift, ShouldEqual, synergy.ShiftPotentiation)
		})

		Convey("No movement reads as none", func() {
			_, shift, err := s.EC50Shift(context.Background(), build(5.0), build(5.0))
			So(err, ShouldBeNil)
			So(shift, ShouldEqual, synergy.ShiftNone)
		})
	})
}

func TestMatchSpectra(t *testing.T) {
	Convey("Given a started service", t, func() {
		s := startedService(t)

		mz := []float64{101.1, 155.2, 203.3, 255.4, 301.5}
		in := []float64{10, 50, 30, 20, 40}
		specs := []spectra.Spectrum{
			{ID: "spec-a", PrecursorMZ: 400.2, IonMode: "positive", PeaksMZ: mz, PeaksInt: in},
			{ID: "spec-b", PrecursorMZ: 400.3, IonMode: "positive", PeaksMZ: mz, PeaksInt: in},
		}

		Convey("Near-duplicates produce similarity edges in the graph", func() {
			edges, err := s.MatchSpectra(context.Background(), specs)
			So(err, ShouldBeNil)
			So(edges, ShouldHaveLength, 1)
			So(edges[0].Score, ShouldAlmostEqual, 1.0, 1e-9)

			src := kg.NodeID{Type: kg.NodeCompound, ID: "spec-a"}
			graphEdges, err := s.Graph().EdgesByType(src, kg.EdgeSimilarTo, kg.DirectionOut)
			So(err, ShouldBeNil)
			So(graphEdges, ShouldHaveLength, 1)
			So(graphEdges[0].Evidence["source"], ShouldEqual, "lsh")

			Convey("A repeated batch does not duplicate the edge", func() {
				again, err := s.MatchSpectra(context.Background(), specs)
				So(err, ShouldBeNil)
				So(again, ShouldHaveLength, 1)
				So(s.Graph().EdgeCount(), ShouldEqual, 1)
			})
		})

		Convey("With LSH disabled the operation is gated", func() {
			off := startedService(t, service.WithFeatureFlags(false, true))
			_, err := off.MatchSpectra(context.Background(), specs)
			So(err, ShouldWrap, service.ErrFeatureDisabled)
		})
	})
}
