package spectra

import (
	"math"
	"math/rand"
	"sort"
)

// hashPrime is the universal-hashing modulus, 2^31 - 1.
const hashPrime uint64 = 2147483647

// sentinelValue fills the signature of an empty peak list. It never takes
// part in matching because empty spectra are excluded from indexing.
const sentinelValue uint64 = 1<<63 - 1

// Signer holds a fixed family of universal hash functions
// h_i(t) = (a_i*t + b_i) mod p, derived deterministically from the seed.
type Signer struct {
	a       []uint64
	b       []uint64
	topK    int
	roundDa float64
}

// NewSigner derives the hash family for the configured signature length.
// The same seed always yields the same family, so signatures are stable
// across runs.
func NewSigner(cfg Config) *Signer {
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // deterministic seed for a stable hash family
	s := &Signer{
		a:       make([]uint64, cfg.NPerm),
		b:       make([]uint64, cfg.NPerm),
		topK:    cfg.TopK,
		roundDa: cfg.RoundDa,
	}
	for i := 0; i < cfg.NPerm; i++ {
		s.a[i] = uint64(rng.Int63n(int64(hashPrime)-1)) + 1 // a in [1, p-1]
		s.b[i] = uint64(rng.Int63n(int64(hashPrime)))       // b in [0, p-1]
	}
	return s
}

// Signature converts a peak list into a fixed-length MinHash-style vector:
// the top-K peaks by intensity become rounded-m/z tokens, and each component
// is the minimum of one hash function over the token set. An empty peak
// list yields the all-sentinel signature.
func (s *Signer) Signature(peaksMZ, peaksInt []float64) []uint64 {
	sig := make([]uint64, len(s.a))
	for i := range sig {
		sig[i] = sentinelValue
	}
	if len(peaksMZ) == 0 {
		return sig
	}

	for _, t := range s.tokens(peaksMZ, peaksInt) {
		for i := range sig {
			if h := (s.a[i]*t + s.b[i]) % hashPrime; h < sig[i] {
				sig[i] = h
			}
		}
	}
	return sig
}

// tokens selects the top-K peaks by intensity and deduplicates their
// grid-rounded m/z values.
func (s *Signer) tokens(peaksMZ, peaksInt []float64) []uint64 {
	n := len(peaksMZ)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return peaksInt[order[i]] > peaksInt[order[j]]
	})

	k := s.topK
	if k > n {
		k = n
	}

	seen := make(map[uint64]struct{}, k)
	toks := make([]uint64, 0, k)
	for _, idx := range order[:k] {
		t := uint64(math.Round(peaksMZ[idx] / s.roundDa))
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		toks = append(toks, t)
	}
	return toks
}
