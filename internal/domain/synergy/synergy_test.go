package synergy_test

import (
	"math"
	"testing"

	"github.com/phytokit/screen/internal/domain/synergy"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBlissIndependence(t *testing.T) {
	Convey("Given fractional single-agent effects", t, func() {
		Convey("Then Bliss independence matches the reference values", func() {
			So(synergy.BlissIndependence(0.5, 0.5), ShouldAlmostEqual, 0.75, 1e-12)
			So(synergy.BlissIndependence(0.0, 0.0), ShouldEqual, 0.0)
			So(synergy.BlissIndependence(1.0, 1.0), ShouldEqual, 1.0)
			So(synergy.BlissIndependence(0.3, 0.4), ShouldAlmostEqual, 0.58, 1e-12)
		})
	})
}

func TestHSAReference(t *testing.T) {
	Convey("Given fractional single-agent effects", t, func() {
		Convey("Then HSA returns the stronger one", func() {
			So(synergy.HSAReference(0.5, 0.3), ShouldEqual, 0.5)
			So(synergy.HSAReference(0.2, 0.8), ShouldEqual, 0.8)
			So(synergy.HSAReference(0.0, 0.0), ShouldEqual, 0.0)
		})
	})
}

func TestCombinationIndexLoewe(t *testing.T) {
	Convey("Given the additive reference case", t, func() {
		ci := synergy.CombinationIndexLoewe(5, 10, 10, 20, 0.5)

		Convey("Then CI is about 1", func() {
			So(ci, ShouldAlmostEqual, 1.0, 0.1)
		})
	})

	Convey("Given proportionally reduced concentrations", t, func() {
		ci := synergy.CombinationIndexLoewe(2, 5, 10, 20, 0.5)

		Convey("Then CI falls below 1", func() {
			So(ci, ShouldBeLessThan, 1.0)
		})
	})

	Convey("Given a saturated fraction affected", t, func() {
		Convey("Then CI is +Inf", func() {
			So(math.IsInf(synergy.CombinationIndexLoewe(5, 10, 10, 20, 1.0), 1), ShouldBeTrue)
		})
	})

	Convey("Given a zero EC50", t, func() {
		Convey("Then the required dose is zero and CI is +Inf", func() {
			So(math.IsInf(synergy.CombinationIndexLoewe(5, 10, 0, 20, 0.5), 1), ShouldBeTrue)
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given a classification threshold of 0.1", t, func() {
		Convey("Then deltas map to the expected calls", func() {
			So(synergy.Classify(0.15, 0.1), ShouldEqual, synergy.CallSynergy)
			So(synergy.Classify(0.05, 0.1), ShouldEqual, synergy.CallAdditive)
			So(synergy.Classify(-0.15, 0.1), ShouldEqual, synergy.CallAntagonism)
			So(synergy.Classify(-0.05, 0.1), ShouldEqual, synergy.CallAdditive)
		})
	})
}

func TestEC50Shift(t *testing.T) {
	Convey("Given an EC50 reduced by combination", t, func() {
		fold, shift := synergy.EC50Shift(20, 5)

		Convey("Then the shift is a 4-fold potentiation", func() {
			So(fold, ShouldAlmostEqual, 4.0, 1e-12)
			So(shift, ShouldEqual, synergy.ShiftPotentiation)
		})
	})

	Convey("Given an EC50 raised by combination", t, func() {
		fold, shift := synergy.EC50Shift(10, 30)

		Convey("Then the shift is antagonism", func() {
			So(fold, ShouldBeLessThan, 0.5)
			So(shift, ShouldEqual, synergy.ShiftAntagonism)
		})
	})

	Convey("Given a marginal change", t, func() {
		_, shift := synergy.EC50Shift(10, 12)

		So(shift, ShouldEqual, synergy.ShiftNone)
	})

	Convey("Given a zero EC50 on either side", t, func() {
		Convey("Then the shift is undefined", func() {
			fold, shift := synergy.EC50Shift(0, 5)
			So(math.IsNaN(fold), ShouldBeTrue)
			So(shift, ShouldEqual, synergy.ShiftInvalid)

			fold, shift = synergy.EC50Shift(10, 0)
			So(math.IsNaN(fold), ShouldBeTrue)
			So(shift, ShouldEqual, synergy.ShiftInvalid)
		})
	})
}

func TestScoreGrid(t *testing.T) {
	Convey("Given a synergistic combination grid", t, func() {
		g := synergy.Grid{
			EffectA: map[float64]float64{1: 0.2, 10: 0.5, 100: 0.8},
			EffectB: map[float64]float64{1: 0.3, 10: 0.6, 100: 0.9},
			Combo: map[synergy.Pair]float64{
				{ConcA: 1, ConcB: 1}:   0.6, // Bliss expects 0.44
				{ConcA: 10, ConcB: 10}: 0.9, // Bliss expects 0.80
			},
		}

		Convey("When scoring against Bliss", func() {
			score := synergy.ScoreGrid(g, synergy.BlissIndependence)

			Convey("Then both points resolve with positive mean delta", func() {
				So(score.NPoints, ShouldEqual, 2)
				So(score.MeanDelta, ShouldAlmostEqual, 0.13, 1e-9)
				So(score.MaxDelta, ShouldAlmostEqual, 0.16, 1e-9)
				So(score.MinDelta, ShouldAlmostEqual, 0.10, 1e-9)
				So(score.StdDelta, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When scoring against HSA", func() {
			score := synergy.ScoreGrid(g, synergy.HSAReference)

			Convey("Then the combination beats the strongest single agent", func() {
				So(score.NPoints, ShouldEqual, 2)
				So(score.MeanDelta, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When a combination point has no matching single-agent effect", func() {
			g.Combo[synergy.Pair{ConcA: 3, ConcB: 3}] = 0.7
			score := synergy.ScoreGrid(g, synergy.BlissIndependence)

			Convey("Then the point is skipped, not interpolated", func() {
				So(score.NPoints, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a single resolvable point", t, func() {
		g := synergy.Grid{
			EffectA: map[float64]float64{1: 0.2},
			EffectB: map[float64]float64{1: 0.3},
			Combo:   map[synergy.Pair]float64{{ConcA: 1, ConcB: 1}: 0.5},
		}

		Convey("Then the spread is zero by convention", func() {
			score := synergy.ScoreGrid(g, synergy.BlissIndependence)
			So(score.NPoints, ShouldEqual, 1)
			So(score.StdDelta, ShouldEqual, 0.0)
		})
	})

	Convey("Given an empty grid", t, func() {
		score := synergy.ScoreGrid(synergy.Grid{}, synergy.BlissIndependence)

		Convey("Then aggregates are NaN and the count is zero", func() {
			So(score.NPoints, ShouldEqual, 0)
			So(math.IsNaN(score.MeanDelta), ShouldBeTrue)
			So(math.IsNaN(score.StdDelta), ShouldBeTrue)
			So(math.IsNaN(score.MaxDelta), ShouldBeTrue)
			So(math.IsNaN(score.MinDelta), ShouldBeTrue)
		})
	})
}
