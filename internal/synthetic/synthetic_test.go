package synthetic_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/phytokit/screen/internal/synthetic"
	"github.com/phytokit/screen/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestGenerators(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		cfg := synthetic.NewConfig(synthetic.Config{Curves: 10, Combinations: 4, Spectra: 6, Seed: 3})

		Convey("Curve jobs have full dose series and distinct curve IDs", func() {
			jobs := synthetic.Curves(cfg, rand.New(rand.NewSource(cfg.Seed)))
			So(jobs, ShouldHaveLength, 10)

			seen := make(map[string]bool)
			for _, j := range jobs {
				So(len(j.Conc), ShouldEqual, len(j.Resp))
				So(len(j.Conc), ShouldBeGreaterThanOrEqualTo, 5)
				So(seen[j.CurveID], ShouldBeFalse)
				seen[j.CurveID] = true
			}
		})

		Convey("The same seed reproduces the same responses", func() {
			a := synthetic.Curves(cfg, rand.New(rand.NewSource(cfg.Seed)))
			b := synthetic.Curves(cfg, rand.New(rand.NewSource(cfg.Seed)))
			So(a[0].Resp, ShouldResemble, b[0].Resp)
			So(a[len(a)-1].Resp, ShouldResemble, b[len(b)-1].Resp)
		})

		Convey("Combination datasets validate and include controls", func() {
			for _, ds := range synthetic.Combinations(cfg, rand.New(rand.NewSource(cfg.Seed))) {
				So(ds.Validate(), ShouldBeNil)

				controls := 0
				for i := range ds.Effect {
					if ds.ConcA[i] == 0 || ds.ConcB[i] == 0 {
						controls++
					}
				}
				So(controls, ShouldBeGreaterThan, 0)
			}
		})

		Convey("Spectra come in near-duplicate pairs", func() {
			specs := synthetic.Spectra(cfg, rand.New(rand.NewSource(cfg.Seed)))
			So(specs, ShouldHaveLength, 6)
			So(specs[1].ID, ShouldEqual, specs[0].ID+"-dup")
			So(len(specs[1].PeaksMZ), ShouldEqual, len(specs[0].PeaksMZ))
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a small synthetic campaign", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		stats, err := synthetic.Run(ctx, synthetic.Config{
			Curves:       12,
			Combinations: 4,
			Spectra:      8,
			Seed:         7,
			NoiseSD:      1.0,
			Workers:      4,
		})

		Convey("The pipeline completes end to end", func() {
			So(err, ShouldBeNil)
			So(stats.CurvesSubmitted, ShouldEqual, 12)
			So(stats.FitsCompleted, ShouldBeGreaterThan, 0)
		})

		Convey("Both synergy calls appear across the alternating pairs", func() {
			So(err, ShouldBeNil)
			So(stats.SynergyCalls["synergy"], ShouldBeGreaterThan, 0)
			So(stats.SynergyCalls["additive"], ShouldBeGreaterThan, 0)
		})

		Convey("Near-duplicate spectra end up linked in the graph", func() {
			So(err, ShouldBeNil)
			So(stats.SimilarityEdges, ShouldBeGreaterThan, 0)
			So(stats.GraphEdges, ShouldBeGreaterThan, 0)
		})
	})
}
