package spectra

// Edge is a confirmed similarity between two spectra, in canonical
// (smaller-id, larger-id) order.
type Edge struct {
	A     string
	B     string
	Score float64
}

// Match runs the full two-stage pipeline: candidate generation via bucketed
// banded LSH, then exact greedy cosine confirmation against the configured
// threshold. Edges come back in candidate order, which is deterministic for
// a fixed input and seed.
func Match(specs []Spectrum, cfg Config) ([]Edge, error) {
	candidates, err := CandidatePairs(specs, cfg)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Spectrum, len(specs))
	for _, s := range specs {
		byID[s.ID] = s
	}

	var edges []Edge
	for _, p := range candidates {
		score := CosineGreedy(byID[p.A], byID[p.B], cfg.ToleranceDa)
		if score >= cfg.Threshold {
			edges = append(edges, Edge{A: p.A, B: p.B, Score: score})
		}
	}
	return edges, nil
}
