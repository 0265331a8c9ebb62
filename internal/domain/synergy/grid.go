package synergy

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Pair is a combination concentration point.
type Pair struct {
	ConcA float64
	ConcB float64
}

// Grid holds single-agent response maps and the combination response map for
// one agent pair. Effects are fractional in [0, 1].
type Grid struct {
	EffectA map[float64]float64 // concentration of A -> effect
	EffectB map[float64]float64 // concentration of B -> effect
	Combo   map[Pair]float64    // (concA, concB) -> observed effect
}

// GridScore aggregates observed-minus-expected deltas over a grid. All
// aggregates are NaN when no combination point could be resolved.
type GridScore struct {
	MeanDelta float64
	StdDelta  float64
	MaxDelta  float64
	MinDelta  float64
	NPoints   int
}

// ScoreGrid scores every combination point whose single-agent effects are
// both known at that exact concentration. Unresolvable points are skipped,
// never interpolated.
func ScoreGrid(g Grid, ref Reference) GridScore {
	deltas := make([]float64, 0, len(g.Combo))
	for pt, observed := range g.Combo {
		ea, okA := g.EffectA[pt.ConcA]
		eb, okB := g.EffectB[pt.ConcB]
		if !okA || !okB {
			continue
		}
		deltas = append(deltas, observed-ref(ea, eb))
	}

	if len(deltas) == 0 {
		nan := math.NaN()
		return GridScore{MeanDelta: nan, StdDelta: nan, MaxDelta: nan, MinDelta: nan, NPoints: 0}
	}

	std := 0.0
	if len(deltas) > 1 {
		std = stat.StdDev(deltas, nil)
	}

	lo, hi := deltas[0], deltas[0]
	for _, d := range deltas[1:] {
		if d < lo {
			lo = d
		}
		if d > hi {
			hi = d
		}
	}

	return GridScore{
		MeanDelta: stat.Mean(deltas, nil),
		StdDelta:  std,
		MaxDelta:  hi,
		MinDelta:  lo,
		NPoints:   len(deltas),
	}
}
