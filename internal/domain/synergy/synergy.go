// Package synergy provides reference models for multi-drug combination
// analysis: expected combined effects under independence assumptions and
// deviation-based synergy classification.
//
// Effects are fractional: 0 means no effect, 1 means maximal effect. Callers
// must normalize raw assay readouts before use.
package synergy

import "math"

// Call classifies a combination relative to an independence reference.
type Call string

// Classification calls.
const (
	CallSynergy    Call = "synergy"
	CallAntagonism Call = "antagonism"
	CallAdditive   Call = "additive"
)

// Shift interprets an EC50 fold-change.
type Shift string

// EC50 shift interpretations.
const (
	ShiftPotentiation Shift = "potentiation"
	ShiftAntagonism   Shift = "antagonism"
	ShiftNone         Shift = "no_shift"
	ShiftInvalid      Shift = "invalid"
)

// Fold-change thresholds for EC50 shift interpretation.
const (
	potentiationFold = 2.0
	antagonismFold   = 0.5
)

// Reference computes the expected combined effect of two single-agent
// effects under an independence assumption.
type Reference func(ea, eb float64) float64

// BlissIndependence is the Bliss reference: E = ea + eb - ea*eb.
func BlissIndependence(ea, eb float64) float64 {
	return ea + eb - ea*eb
}

// HSAReference is the highest-single-agent reference: E = max(ea, eb).
func HSAReference(ea, eb float64) float64 {
	return math.Max(ea, eb)
}

// CombinationIndexLoewe computes the Loewe additivity combination index
//
//	CI = conc_a/D_a + conc_b/D_b
//
// where D is the dose of each agent alone producing effect fa, assuming a
// Hill slope of 1. CI < 1 indicates synergy, 1 additivity, > 1 antagonism.
// Returns +Inf when fa >= 1 or either required dose is zero.
func CombinationIndexLoewe(concA, concB, ec50A, ec50B, fa float64) float64 {
	if fa >= 1 {
		return math.Inf(1)
	}
	da := ec50A * (fa / (1 - fa))
	db := ec50B * (fa / (1 - fa))
	if da == 0 || db == 0 {
		return math.Inf(1)
	}
	return concA/da + concB/db
}

// Classify calls a combination from its mean deviation against a reference
// model. Deviations within the threshold are additive.
func Classify(meanDelta, threshold float64) Call {
	if math.Abs(meanDelta) < threshold {
		return CallAdditive
	}
	if meanDelta > 0 {
		return CallSynergy
	}
	return CallAntagonism
}

// EC50Shift computes the fold-change in EC50 caused by combination and its
// interpretation. A zero EC50 on either side is invalid and yields NaN.
func EC50Shift(ec50Alone, ec50Combination float64) (float64, Shift) {
	if ec50Alone == 0 || ec50Combination == 0 {
		return math.NaN(), ShiftInvalid
	}

	fold := ec50Alone / ec50Combination
	switch {
	case fold > potentiationFold:
		return fold, ShiftPotentiation
	case fold < antagonismFold:
		return fold, ShiftAntagonism
	default:
		return fold, ShiftNone
	}
}
