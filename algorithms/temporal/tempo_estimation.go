package temporal

import (
	"maps"
	"math"
	"slices"
)

// HistogramParams configures interval-histogram tempo derivation
type HistogramParams struct {
	MinOnsets        int     // fewer onsets give no estimate
	MinInterval      float64 // exclusive lower bound on a usable beat period, seconds
	MaxInterval      float64 // exclusive upper bound, seconds
	BucketsPerSecond float64 // histogram resolution, 200 = 5 ms buckets
	MinBucketCount   int     // evidence required for the winning bucket
	MinBPM           float64
	MaxBPM           float64
}

// DefaultHistogramParams returns the stock derivation parameters
func DefaultHistogramParams() HistogramParams {
	return HistogramParams{
		MinOnsets:        4,
		MinInterval:      0.25,
		MaxInterval:      2.0,
		BucketsPerSecond: 200,
		MinBucketCount:   3,
		MinBPM:           60,
		MaxBPM:           200,
	}
}

// IntervalHistogram maps a quantized inter-onset interval bucket to its count
type IntervalHistogram map[int]int

// BuildIntervalHistogram quantizes the usable intervals between consecutive
// onsets. Intervals outside (MinInterval, MaxInterval) are discarded.
func BuildIntervalHistogram(onsets []float64, params HistogramParams) IntervalHistogram {
	hist := make(IntervalHistogram)

	for i := 1; i < len(onsets); i++ {
		interval := onsets[i] - onsets[i-1]
		if interval <= params.MinInterval || interval >= params.MaxInterval {
			continue
		}
		bucket := int(math.Floor(interval * params.BucketsPerSecond))
		hist[bucket]++
	}

	return hist
}

// Total returns the number of intervals in the histogram
func (h IntervalHistogram) Total() int {
	total := 0
	for _, c := range h {
		total += c
	}
	return total
}

// Peak returns the most frequent bucket and its count. Ties go to the lowest
// bucket. An empty histogram returns (0, 0).
func (h IntervalHistogram) Peak() (bucket, count int) {
	for _, b := range slices.Sorted(maps.Keys(h)) {
		if h[b] > count {
			bucket, count = b, h[b]
		}
	}
	return bucket, count
}

// IntervalHistogramTempo derives BPM from onset times (seconds, ascending)
// using the dominant inter-onset interval. Returns 0 when there is not enough
// evidence for a tempo.
func IntervalHistogramTempo(onsets []float64, params HistogramParams) float64 {
	if len(onsets) < params.MinOnsets {
		return 0.0
	}

	hist := BuildIntervalHistogram(onsets, params)
	if len(hist) == 0 {
		return 0.0
	}

	bucket, count := hist.Peak()
	if count < params.MinBucketCount || bucket <= 0 {
		return 0.0
	}

	interval := float64(bucket) / params.BucketsPerSecond
	bpm := 60.0 / interval

	return CorrectOctave(bpm, params.MinBPM, params.MaxBPM)
}

// CorrectOctave doubles a tempo below minBPM or halves one above maxBPM,
// once. Returns 0 if the result is still out of range.
func CorrectOctave(bpm, minBPM, maxBPM float64) float64 {
	if bpm < minBPM {
		bpm *= 2.0
	} else if bpm > maxBPM {
		bpm /= 2.0
	}

	if bpm >= minBPM && bpm <= maxBPM {
		return bpm
	}
	return 0.0
}

// ClassifyTempoCategory classifies tempo into broad categories
func ClassifyTempoCategory(tempo float64) string {
	switch {
	case tempo <= 0:
		return "unknown"
	case tempo < 60:
		return "very_slow"
	case tempo < 90:
		return "slow"
	case tempo < 120:
		return "moderate"
	case tempo < 150:
		return "fast"
	default:
		return "very_fast"
	}
}
