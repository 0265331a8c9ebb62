// Package spectra detects near-duplicate mass spectra without all-pairs
// comparison.
//
// The pipeline is two-staged on purpose: spectra are first partitioned into
// cheap precursor-mass buckets and screened with banded MinHash-style
// signatures, and only the surviving candidate pairs are scored with exact
// greedy peak-matching cosine similarity. Skipping either stage collapses
// the cost back to O(n^2) exact comparison.
package spectra

// Defaults for signature generation, banding, and confirmation.
const (
	DefaultTopK        = 30   // peaks kept per spectrum, by intensity
	DefaultRoundDa     = 0.1  // m/z rounding grid for tokens
	DefaultNPerm       = 64   // signature length
	DefaultSeed        = 7    // hash-family seed
	DefaultBands       = 16   // LSH bands
	DefaultBandSize    = 4    // signature rows per band
	DefaultBucketDa    = 1.0  // precursor bucket width
	DefaultToleranceDa = 0.02 // peak-match tolerance for cosine scoring
	DefaultThreshold   = 0.75 // similarity needed to confirm a pair
)

// Spectrum is a peak-list record owned by the dataset layer. The package
// reads these by reference and never mutates them.
type Spectrum struct {
	ID          string
	PrecursorMZ float64
	IonMode     string // "positive", "negative", or empty
	PeaksMZ     []float64
	PeaksInt    []float64
}

// Config carries all tunables explicitly so results stay deterministic and
// testable in isolation.
type Config struct {
	TopK        int
	RoundDa     float64
	NPerm       int
	Seed        int64
	NBands      int
	BandSize    int
	BucketDa    float64
	ToleranceDa float64
	Threshold   float64
}

// Option applies a configuration option.
type Option func(*Config)

// NewConfig builds a Config from the defaults and options.
func NewConfig(opts ...Option) Config {
	c := Config{
		TopK:        DefaultTopK,
		RoundDa:     DefaultRoundDa,
		NPerm:       DefaultNPerm,
		Seed:        DefaultSeed,
		NBands:      DefaultBands,
		BandSize:    DefaultBandSize,
		BucketDa:    DefaultBucketDa,
		ToleranceDa: DefaultToleranceDa,
		Threshold:   DefaultThreshold,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithTopK sets how many peaks feed the signature.
func WithTopK(k int) Option {
	return func(c *Config) {
		if k > 0 {
			c.TopK = k
		}
	}
}

// WithRound sets the m/z rounding grid for signature tokens.
func WithRound(da float64) Option {
	return func(c *Config) {
		if da > 0 {
			c.RoundDa = da
		}
	}
}

// WithNPerm sets the signature length.
func WithNPerm(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.NPerm = n
		}
	}
}

// WithBands sets the banding layout. More bands lower false negatives;
// larger bands lower false positives.
func WithBands(nBands, bandSize int) Option {
	return func(c *Config) {
		if nBands > 0 && bandSize > 0 {
			c.NBands = nBands
			c.BandSize = bandSize
		}
	}
}

// WithSeed sets the hash-family seed.
func WithSeed(seed int64) Option {
	return func(c *Config) {
		c.Seed = seed
	}
}

// WithBucketWidth sets the precursor bucket width in Da.
func WithBucketWidth(da float64) Option {
	return func(c *Config) {
		if da > 0 {
			c.BucketDa = da
		}
	}
}

// WithTolerance sets the m/z tolerance for cosine peak matching.
func WithTolerance(da float64) Option {
	return func(c *Config) {
		if da > 0 {
			c.ToleranceDa = da
		}
	}
}

// WithThreshold sets the similarity needed to confirm a candidate pair.
func WithThreshold(threshold float64) Option {
	return func(c *Config) {
		if threshold > 0 {
			c.Threshold = threshold
		}
	}
}
