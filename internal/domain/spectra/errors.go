package spectra

import (
	"errors"
	"fmt"
)

// ErrBandConfig indicates an inconsistent banding layout. It is raised
// before any hashing work is done.
var ErrBandConfig = errors.New("inconsistent LSH banding")

func (c Config) validateBanding() error {
	if c.NBands*c.BandSize != c.NPerm {
		return fmt.Errorf("%w: n_bands (%d) * band_size (%d) must equal n_perm (%d)",
			ErrBandConfig, c.NBands, c.BandSize, c.NPerm)
	}
	return nil
}
