package doseresponse_test

import (
	"math"
	"testing"

	dr "github.com/phytokit/screen/internal/domain/doseresponse"
	. "github.com/smartystreets/goconvey/convey"
)

// logspace concentrations spanning the transition region.
var testConc = []float64{0.01, 0.03, 0.1, 0.3, 1, 3, 10, 30, 100}

func gen4PL(conc []float64, top, bottom, ec50, hill float64) []float64 {
	resp := make([]float64, len(conc))
	for i, c := range conc {
		resp[i] = dr.FourPL(c, top, bottom, ec50, hill)
	}
	return resp
}

func TestFourPL(t *testing.T) {
	Convey("Given valid 4PL parameters", t, func() {
		top, bottom, ec50, hill := 95.0, 5.0, 1.5, 1.2

		Convey("When evaluating at x = ec50", func() {
			y := dr.FourPL(ec50, top, bottom, ec50, hill)

			Convey("Then the response is the midpoint of the asymptotes", func() {
				So(y, ShouldAlmostEqual, (top+bottom)/2.0, 1e-9)
			})
		})

		Convey("When evaluating far below and far above ec50", func() {
			low := dr.FourPL(1e-9, top, bottom, ec50, hill)
			high := dr.FourPL(1e9, top, bottom, ec50, hill)

			Convey("Then the curve approaches top and bottom", func() {
				So(low, ShouldAlmostEqual, top, 1e-3)
				So(high, ShouldAlmostEqual, bottom, 1e-3)
			})
		})
	})

	Convey("Given 5PL parameters with asymmetry 1", t, func() {
		Convey("Then FivePL should reduce to FourPL", func() {
			for _, x := range testConc {
				So(dr.FivePL(x, 95, 5, 1.5, 1.2, 1.0), ShouldAlmostEqual, dr.FourPL(x, 95, 5, 1.5, 1.2), 1e-12)
			}
		})
	})
}

func TestFit4PL(t *testing.T) {
	Convey("Given noiseless 4PL data", t, func() {
		top, bottom, ec50, hill := 95.0, 5.0, 1.5, 1.2
		resp := gen4PL(testConc, top, bottom, ec50, hill)

		Convey("When fitting a 4PL model", func() {
			res, err := dr.Fit4PL(testConc, resp)

			Convey("Then the generating parameters are recovered", func() {
				So(err, ShouldBeNil)
				So(res.Model, ShouldEqual, dr.Model4PL)
				So(res.Params.Top, ShouldAlmostEqual, top, top*0.1)
				So(res.Params.Bottom, ShouldAlmostEqual, bottom, math.Max(bottom*0.1, 0.5))
				So(res.Params.EC50, ShouldAlmostEqual, ec50, ec50*0.1)
				So(res.Params.Hill, ShouldAlmostEqual, hill, hill*0.1)
				So(res.R2, ShouldBeGreaterThan, 0.99)
				So(res.N, ShouldEqual, len(testConc))
			})

			Convey("Then prediction at ec50 hits the midpoint", func() {
				So(err, ShouldBeNil)
				So(res.Predict(res.Params.EC50), ShouldAlmostEqual, (res.Params.Top+res.Params.Bottom)/2.0, 1e-6)
			})
		})

		Convey("When the data contains junk entries", func() {
			conc := append([]float64{math.NaN(), -1, 0}, testConc...)
			r := append([]float64{50, 50, math.Inf(1)}, resp...)
			res, err := dr.Fit4PL(conc, r)

			Convey("Then they are dropped before fitting", func() {
				So(err, ShouldBeNil)
				So(res.N, ShouldEqual, len(testConc))
				So(res.R2, ShouldBeGreaterThan, 0.99)
			})
		})
	})

	Convey("Given too few usable points", t, func() {
		Convey("When fitting two points", func() {
			_, err := dr.Fit4PL([]float64{1, 10}, []float64{80, 20})

			Convey("Then it fails with the insufficient-data sentinel", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, dr.ErrInsufficientData)
				So(err.Error(), ShouldContainSubstring, "at least 4")
			})
		})

		Convey("When junk reduces a longer input below the minimum", func() {
			_, err := dr.Fit4PL([]float64{0, -5, 1, 10, math.NaN()}, []float64{90, 85, 80, 20, 10})

			So(err, ShouldWrap, dr.ErrInsufficientData)
		})
	})

	Convey("Given an increasing fractional-effect curve", t, func() {
		// Effect runs 0 -> 1 with dose, the orientation ZIP marginals use.
		conc := []float64{0.1, 0.3, 1, 3, 10, 30, 100}
		resp := make([]float64, len(conc))
		for i, c := range conc {
			resp[i] = c / (c + 5.0)
		}

		Convey("When fitting", func() {
			res, err := dr.Fit4PL(conc, resp)

			Convey("Then the fit converges with swapped asymptotes", func() {
				So(err, ShouldBeNil)
				So(res.R2, ShouldBeGreaterThan, 0.99)
				So(res.Predict(5.0), ShouldAlmostEqual, 0.5, 0.05)
			})
		})
	})
}

func TestFit5PL(t *testing.T) {
	Convey("Given noiseless asymmetric 5PL data", t, func() {
		conc := []float64{0.01, 0.03, 0.1, 0.3, 1, 3, 10, 30, 100, 300, 1000}
		resp := make([]float64, len(conc))
		for i, c := range conc {
			resp[i] = dr.FivePL(c, 90, 2, 4.0, 1.0, 3.0)
		}

		Convey("When fitting a 5PL model", func() {
			res, err := dr.Fit5PL(conc, resp)

			Convey("Then the fit is excellent and asymmetric", func() {
				So(err, ShouldBeNil)
				So(res.Model, ShouldEqual, dr.Model5PL)
				So(res.R2, ShouldBeGreaterThan, 0.999)
				So(res.Params.Asym, ShouldBeGreaterThan, 1.0)
			})
		})
	})

	Convey("Given only four usable points", t, func() {
		Convey("Then Fit5PL refuses with the 5PL minimum in the message", func() {
			_, err := dr.Fit5PL([]float64{1, 3, 10, 30}, []float64{80, 60, 40, 20})
			So(err, ShouldWrap, dr.ErrInsufficientData)
			So(err.Error(), ShouldContainSubstring, "at least 5")
		})
	})
}

func TestInitial4PL(t *testing.T) {
	Convey("Given cleaned response data", t, func() {
		resp := gen4PL(testConc, 95, 5, 1.5, 1.2)

		Convey("When computing the heuristic seed", func() {
			p := dr.Initial4PL(testConc, resp)

			Convey("Then it brackets the data with hill 1", func() {
				So(p.Hill, ShouldEqual, 1.0)
				So(p.Asym, ShouldEqual, 1.0)
				So(p.Top, ShouldBeGreaterThan, p.Bottom)
				So(p.EC50, ShouldBeGreaterThan, 0)
			})
		})
	})
}
