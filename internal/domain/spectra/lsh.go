package spectra

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Pair is an unordered candidate pair in canonical (smaller-id, larger-id)
// order. Candidates are not confirmed matches.
type Pair struct {
	A string
	B string
}

// bucketKey partitions spectra by ionization mode and coarse precursor
// mass, bounding candidate generation to chemically plausible pairs.
type bucketKey struct {
	ionMode string
	bin     int64
}

func makeBucketKey(s Spectrum, widthDa float64) bucketKey {
	mode := s.IonMode
	if mode == "" {
		mode = "unknown"
	}
	return bucketKey{ionMode: mode, bin: int64(math.Floor(s.PrecursorMZ / widthDa))}
}

// CandidatePairs runs the cheap half of the pipeline: precursor bucketing
// followed by banded LSH over MinHash-style signatures. Each unordered pair
// is yielded at most once. Spectra without peaks never enter the index.
// Fails fast with ErrBandConfig before any hashing when the banding layout
// is inconsistent.
func CandidatePairs(specs []Spectrum, cfg Config) ([]Pair, error) {
	if err := cfg.validateBanding(); err != nil {
		return nil, err
	}

	buckets := make(map[bucketKey][]Spectrum)
	for _, s := range specs {
		if len(s.PeaksMZ) == 0 {
			continue
		}
		key := makeBucketKey(s, cfg.BucketDa)
		buckets[key] = append(buckets[key], s)
	}

	// Deterministic bucket traversal.
	keys := make([]bucketKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ionMode != keys[j].ionMode {
			return keys[i].ionMode < keys[j].ionMode
		}
		return keys[i].bin < keys[j].bin
	})

	signer := NewSigner(cfg)
	seen := make(map[Pair]struct{})
	var pairs []Pair

	for _, key := range keys {
		members := buckets[key]
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })

		sigs := make(map[string][]uint64, len(members))
		for _, s := range members {
			sigs[s.ID] = signer.Signature(s.PeaksMZ, s.PeaksInt)
		}

		hashes := make([]uint64, len(members))
		for band := 0; band < cfg.NBands; band++ {
			for i, s := range members {
				hashes[i] = bandHash(sigs[s.ID], band, cfg.BandSize)
			}
			// Pairwise over the ID-sorted members, so candidate order is
			// stable across runs.
			for i := 0; i < len(members); i++ {
				for j := i + 1; j < len(members); j++ {
					if hashes[i] != hashes[j] {
						continue
					}
					p := canonicalPair(members[i].ID, members[j].ID)
					if _, dup := seen[p]; dup {
						continue
					}
					seen[p] = struct{}{}
					pairs = append(pairs, p)
				}
			}
		}
	}
	return pairs, nil
}

// Buckets reports how many precursor buckets a set of spectra occupies,
// excluding empty-peak spectra.
func Buckets(specs []Spectrum, cfg Config) int {
	seen := make(map[bucketKey]struct{})
	for _, s := range specs {
		if len(s.PeaksMZ) == 0 {
			continue
		}
		seen[makeBucketKey(s, cfg.BucketDa)] = struct{}{}
	}
	return len(seen)
}

// bandHash collapses one contiguous band of the signature into a single
// bucket key.
func bandHash(sig []uint64, band, bandSize int) uint64 {
	start := band * bandSize
	h := xxhash.New()
	var buf [8]byte
	for i := start; i < start+bandSize; i++ {
		binary.LittleEndian.PutUint64(buf[:], sig[i])
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func canonicalPair(id1, id2 string) Pair {
	if id1 < id2 {
		return Pair{A: id1, B: id2}
	}
	return Pair{A: id2, B: id1}
}
