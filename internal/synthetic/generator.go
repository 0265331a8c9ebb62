package synthetic

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/phytokit/screen/internal/domain/model"
	"github.com/phytokit/screen/internal/domain/spectra"
	"github.com/phytokit/screen/internal/domain/synergy"
)

// Parameter ranges for generated dose-response curves.
const (
	topMin     = 85.0
	topRange   = 15.0
	bottomMax  = 10.0
	ec50Min    = 0.1
	ec50Range  = 20.0
	hillMin    = 0.6
	hillRange  = 1.8
	synergyGap = 0.15 // bliss excess injected into synergistic checkerboards
)

var concentrations = []float64{0.01, 0.03, 0.1, 0.3, 1, 3, 10, 30, 100}

func fourPL(c, top, bottom, ec50, hill float64) float64 {
	return bottom + (top-bottom)/(1.0+math.Pow(c/ec50, hill))
}

// Curves generates noisy 4PL dose-response fit jobs with randomized but
// plausible parameters.
func Curves(cfg Config, rng *rand.Rand) []model.FitJob {
	jobs := make([]model.FitJob, cfg.Curves)
	for i := range jobs {
		top := topMin + rng.Float64()*topRange
		bottom := rng.Float64() * bottomMax
		ec50 := ec50Min + rng.Float64()*ec50Range
		hill := hillMin + rng.Float64()*hillRange

		resp := make([]float64, len(concentrations))
		for j, c := range concentrations {
			resp[j] = fourPL(c, top, bottom, ec50, hill) + rng.NormFloat64()*cfg.NoiseSD
		}

		jobs[i] = model.FitJob{
			JobID:   uuid.New().String(),
			CurveID: fmt.Sprintf("cmpd-%03d", i),
			Conc:    append([]float64(nil), concentrations...),
			Resp:    resp,
			Prefer:  "auto",
		}
	}
	return jobs
}

// Combinations generates checkerboard datasets, alternating additive and
// synergistic pairs so both calls show up downstream.
func Combinations(cfg Config, rng *rand.Rand) []model.CombinationDataset {
	singles := []float64{0.1, 0.3, 1, 3, 10, 30, 60, 100}
	grid := []float64{0.3, 1, 3, 10}

	datasets := make([]model.CombinationDataset, cfg.Combinations)
	for i := range datasets {
		ecA := 2.0 + rng.Float64()*8.0
		ecB := 2.0 + rng.Float64()*8.0
		effA := func(c float64) float64 { return c / (c + ecA) }
		effB := func(c float64) float64 { return c / (c + ecB) }

		shift := 0.0
		if i%2 == 1 {
			shift = synergyGap
		}

		ds := model.CombinationDataset{
			PairID: fmt.Sprintf("cmpd-%03da|cmpd-%03db", i, i),
		}
		for _, c := range singles {
			ds.ConcA = append(ds.ConcA, c)
			ds.ConcB = append(ds.ConcB, 0)
			ds.Effect = append(ds.Effect, effA(c))
		}
		for _, c := range singles {
			ds.ConcA = append(ds.ConcA, 0)
			ds.ConcB = append(ds.ConcB, c)
			ds.Effect = append(ds.Effect, effB(c))
		}
		for _, ca := range grid {
			for _, cb := range grid {
				eff := synergy.BlissIndependence(effA(ca), effB(cb)) + shift
				ds.ConcA = append(ds.ConcA, ca)
				ds.ConcB = append(ds.ConcB, cb)
				ds.Effect = append(ds.Effect, math.Min(eff, 0.99))
			}
		}
		datasets[i] = ds
	}
	return datasets
}

// Spectra generates pairs of near-duplicate spectra: a base spectrum and a
// jittered copy whose peaks move well within matching tolerance.
func Spectra(cfg Config, rng *rand.Rand) []spectra.Spectrum {
	specs := make([]spectra.Spectrum, 0, cfg.Spectra)
	for i := 0; len(specs) < cfg.Spectra; i++ {
		precursor := 200.0 + rng.Float64()*600.0
		nPeaks := 8 + rng.Intn(12)

		mz := make([]float64, nPeaks)
		intens := make([]float64, nPeaks)
		for j := range mz {
			mz[j] = 50.0 + rng.Float64()*(precursor-50.0)
			intens[j] = rng.Float64() * 100.0
		}

		specs = append(specs, spectra.Spectrum{
			ID:          fmt.Sprintf("spec-%03d", i),
			PrecursorMZ: precursor,
			IonMode:     "positive",
			PeaksMZ:     mz,
			PeaksInt:    intens,
		})
		if len(specs) == cfg.Spectra {
			break
		}

		// Jittered duplicate: same peaks within a fraction of the match
		// tolerance, same precursor bucket.
		dupMZ := make([]float64, nPeaks)
		for j := range mz {
			dupMZ[j] = mz[j] + (rng.Float64()-0.5)*0.01
		}
		specs = append(specs, spectra.Spectrum{
			ID:          fmt.Sprintf("spec-%03d-dup", i),
			PrecursorMZ: precursor + 0.01,
			IonMode:     "positive",
			PeaksMZ:     dupMZ,
			PeaksInt:    append([]float64(nil), intens...),
		})
	}
	return specs
}
