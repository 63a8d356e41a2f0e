package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-tempo/algorithms/common"
	"github.com/RyanBlaney/sonido-tempo/algorithms/spectral"
)

// AutocorrelationTempo estimates tempo from a frame energy envelope sampled at
// frameRate frames per second, independently of onset picking. The positive
// energy flux is autocorrelated and the strongest local peak with a period
// inside [minBPM, maxBPM] wins. strength is the normalized autocorrelation at
// that lag (0..1). Returns (0, 0) when no periodicity is found.
func AutocorrelationTempo(envelope []float64, frameRate, minBPM, maxBPM float64) (bpm, strength float64) {
	if len(envelope) < 10 || frameRate <= 0 || minBPM <= 0 || maxBPM <= minBPM {
		return 0.0, 0.0
	}

	flux := make([]float64, len(envelope))
	for i := 1; i < len(envelope); i++ {
		if d := envelope[i] - envelope[i-1]; d > 0 {
			flux[i] = d
		}
	}

	ac := spectral.NewFFT().Autocorrelation(common.RemoveMean(flux))

	minLag := max(int(math.Ceil(frameRate*60.0/maxBPM)), 1)
	maxLag := min(int(math.Floor(frameRate*60.0/minBPM)), len(ac)-2)

	bestLag := 0
	for lag := minLag; lag <= maxLag; lag++ {
		if ac[lag] > ac[lag-1] && ac[lag] >= ac[lag+1] && ac[lag] > strength {
			strength = ac[lag]
			bestLag = lag
		}
	}

	if bestLag == 0 {
		return 0.0, 0.0
	}

	return 60.0 * frameRate / float64(bestLag), strength
}

// TempoAgreement scores how well two tempo estimates agree, 1 for identical
// and 0 at 10% relative difference or more. Estimates an octave apart count
// as agreeing at the folded tempo. Either estimate being 0 scores 0.
func TempoAgreement(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0.0
	}

	best := 0.0
	for _, ratio := range []float64{0.5, 1, 2} {
		rel := math.Abs(a-b*ratio) / a
		best = math.Max(best, 1.0-rel/0.1)
	}

	return math.Max(0.0, math.Min(1.0, best))
}
