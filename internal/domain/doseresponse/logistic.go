// Package doseresponse fits logistic dose-response models to single-agent
// concentration/response data and selects between them.
//
// The two model families are the four-parameter logistic
//
//	f(x) = bottom + (top-bottom) / (1 + (x/ec50)^hill)
//
// and the five-parameter logistic, which adds an asymmetry exponent
//
//	f(x) = bottom + (top-bottom) / ((1 + (x/ec50)^hill)^asym)
//
// Fits are bounded nonlinear least squares; parameter uncertainty comes from
// the covariance of the linearized problem at the optimum.
package doseresponse

import "math"

// ModelKind identifies the fitted model family.
type ModelKind string

// Supported model kinds.
const (
	Model4PL ModelKind = "4PL"
	Model5PL ModelKind = "5PL"
)

// Params holds logistic curve parameters. Asym is 1 for 4PL fits.
type Params struct {
	Top    float64
	Bottom float64
	EC50   float64
	Hill   float64
	Asym   float64
}

// StdErrs holds the standard error of each parameter, NaN when the
// covariance could not be estimated.
type StdErrs struct {
	Top    float64
	Bottom float64
	EC50   float64
	Hill   float64
	Asym   float64
}

// FitResult is the immutable outcome of a curve fit.
type FitResult struct {
	Model   ModelKind
	Params  Params
	StdErrs StdErrs
	R2      float64
	N       int // usable points after preprocessing
}

// FourPL evaluates the four-parameter logistic at x.
func FourPL(x, top, bottom, ec50, hill float64) float64 {
	return bottom + (top-bottom)/(1.0+math.Pow(x/ec50, hill))
}

// FivePL evaluates the five-parameter logistic at x.
func FivePL(x, top, bottom, ec50, hill, asym float64) float64 {
	return bottom + (top-bottom)/math.Pow(1.0+math.Pow(x/ec50, hill), asym)
}

// Predict evaluates the fitted curve at concentration x.
func (r FitResult) Predict(x float64) float64 {
	if r.Model == Model5PL {
		return FivePL(x, r.Params.Top, r.Params.Bottom, r.Params.EC50, r.Params.Hill, r.Params.Asym)
	}
	return FourPL(x, r.Params.Top, r.Params.Bottom, r.Params.EC50, r.Params.Hill)
}
