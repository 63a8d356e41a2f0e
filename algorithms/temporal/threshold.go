package temporal

import (
	"github.com/RyanBlaney/sonido-tempo/algorithms/common"
)

// AdaptiveThreshold tracks recent frame energies and derives an onset
// threshold from their mean. The threshold lags the signal so slow loudness
// drift raises or lowers it without calibration.
type AdaptiveThreshold struct {
	history   *common.History
	factor    float64
	warmup    int
	threshold float64
}

// NewAdaptiveThreshold creates a tracker over the last historySize energies.
// The threshold is factor * mean once more than warmup energies are held.
func NewAdaptiveThreshold(historySize int, factor float64, warmup int) *AdaptiveThreshold {
	return &AdaptiveThreshold{
		history: common.NewHistory(historySize),
		factor:  factor,
		warmup:  warmup,
	}
}

// Push records a frame energy and returns the updated threshold.
// Before warm-up the previous threshold (0 initially) is held.
func (at *AdaptiveThreshold) Push(energy float64) float64 {
	at.history.Push(energy)

	if at.history.Len() > at.warmup {
		at.threshold = common.Mean(at.history.Unordered()) * at.factor
	}

	return at.threshold
}

// Threshold returns the current threshold
func (at *AdaptiveThreshold) Threshold() float64 {
	return at.threshold
}

// Len returns the number of energies held
func (at *AdaptiveThreshold) Len() int {
	return at.history.Len()
}

// Values returns the held energies oldest first
func (at *AdaptiveThreshold) Values() []float64 {
	return at.history.Values()
}

// Reset clears the history and threshold
func (at *AdaptiveThreshold) Reset() {
	at.history.Clear()
	at.threshold = 0
}
