package tempo

import (
	"errors"
	"fmt"
)

// MaxRatio is the fastest supported playback speed
const MaxRatio = 4.0

// ErrInvalidRatio is returned for playback ratios outside (0, MaxRatio]
var ErrInvalidRatio = errors.New("invalid playback ratio")

// BPMSource is anything that publishes a tempo estimate
type BPMSource interface {
	CurrentBPM() float64
	Ready() bool
}

// RateAdapter scales an estimated tempo by the playback speed
type RateAdapter struct {
	ratio float64
}

// NewRateAdapter creates an adapter at normal speed
func NewRateAdapter() *RateAdapter {
	return &RateAdapter{ratio: 1.0}
}

// SetRatio changes the playback speed. Invalid ratios are rejected and the
// previous ratio is kept.
func (r *RateAdapter) SetRatio(ratio float64) error {
	if !(ratio > 0 && ratio <= MaxRatio) {
		return fmt.Errorf("%w: %v not in (0, %v]", ErrInvalidRatio, ratio, MaxRatio)
	}
	r.ratio = ratio
	return nil
}

// Ratio returns the playback speed
func (r *RateAdapter) Ratio() float64 {
	return r.ratio
}

// EffectiveBPM returns the tempo heard at the current playback speed
func (r *RateAdapter) EffectiveBPM(estimated float64) float64 {
	return estimated * r.ratio
}

// Report returns the effective tempo of source and whether it is usable
func (r *RateAdapter) Report(source BPMSource) (float64, bool) {
	if source == nil || !source.Ready() {
		return 0.0, false
	}
	return r.EffectiveBPM(source.CurrentBPM()), true
}
