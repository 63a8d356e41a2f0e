package temporal

import (
	"github.com/RyanBlaney/sonido-tempo/algorithms/common"
)

// TempoSmoother damps estimate jitter with a linearly weighted average of the
// last few accepted estimates. The newest estimate carries the largest weight.
type TempoSmoother struct {
	history *common.History
	values  []float64
	weights []float64
	value   float64
}

// NewTempoSmoother creates a smoother over the last size estimates
func NewTempoSmoother(size int) *TempoSmoother {
	h := common.NewHistory(size)
	return &TempoSmoother{
		history: h,
		values:  make([]float64, h.Cap()),
		weights: common.LinearWeights(make([]float64, h.Cap())),
	}
}

// Update adds an estimate and returns the smoothed tempo
func (s *TempoSmoother) Update(bpm float64) float64 {
	s.history.Push(bpm)

	n := s.history.CopyTo(s.values)
	if n == 1 {
		s.value = bpm
		return s.value
	}

	s.value = common.WeightedMean(s.values[:n], s.weights[:n])
	return s.value
}

// Value returns the last smoothed tempo, 0 before any update
func (s *TempoSmoother) Value() float64 {
	return s.value
}

// Len returns the number of retained estimates
func (s *TempoSmoother) Len() int {
	return s.history.Len()
}

// Reset clears the smoother state
func (s *TempoSmoother) Reset() {
	s.history.Clear()
	s.value = 0
}
