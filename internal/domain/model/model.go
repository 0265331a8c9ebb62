// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDataset indicates a dataset whose arrays cannot be analyzed.
var ErrInvalidDataset = errors.New("invalid dataset")

// CurveSample is a single-agent concentration/response series supplied by
// the tabular layer, already materialized in memory.
type CurveSample struct {
	CurveID string    // identifies the compound/assay pair
	Conc    []float64 // concentrations, uM
	Resp    []float64 // raw responses, same length as Conc
}

// FitJob is a unit of curve-fitting work flowing through the queue.
type FitJob struct {
	JobID   string // unique id for tracking
	CurveID string
	Conc    []float64
	Resp    []float64
	Prefer  string // "4PL", "5PL", or "auto"
}

// CombinationDataset holds paired dose-effect observations for a two-agent
// combination. Points with a zero concentration on either axis are
// single-agent controls; effects are fractional in [0, 1].
type CombinationDataset struct {
	PairID string
	ConcA  []float64
	ConcB  []float64
	Effect []float64
}

// Validate checks array shape and value sanity before analysis.
func (d CombinationDataset) Validate() error {
	n := len(d.Effect)
	if n == 0 {
		return fmt.Errorf("%w: empty dataset", ErrInvalidDataset)
	}
	if len(d.ConcA) != n || len(d.ConcB) != n {
		return fmt.Errorf("%w: array lengths differ (concA=%d concB=%d effect=%d)",
			ErrInvalidDataset, len(d.ConcA), len(d.ConcB), n)
	}
	for i := 0; i < n; i++ {
		if !isFinite(d.ConcA[i]) || !isFinite(d.ConcB[i]) || !isFinite(d.Effect[i]) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrInvalidDataset, i)
		}
		if d.ConcA[i] < 0 || d.ConcB[i] < 0 {
			return fmt.Errorf("%w: negative concentration at index %d", ErrInvalidDataset, i)
		}
	}
	return nil
}

// Len returns the number of observations.
func (d CombinationDataset) Len() int {
	return len(d.Effect)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
