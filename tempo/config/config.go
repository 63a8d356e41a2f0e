package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("invalid estimator config")

// EstimatorConfig holds every tunable of the onset detector and tempo derivation
type EstimatorConfig struct {
	// Framing
	DefaultSampleRate float64 `json:"default_sample_rate"`
	FrameSize         int     `json:"frame_size"` // samples per energy frame

	// Adaptive threshold
	EnergyHistorySize int     `json:"energy_history_size"`
	ThresholdFactor   float64 `json:"threshold_factor"`
	ThresholdWarmup   int     `json:"threshold_warmup"` // history must exceed this before the threshold adapts

	// Onset detection
	OnsetEnergyRatio  float64 `json:"onset_energy_ratio"` // current must exceed ratio * previous
	OnsetWarmup       int     `json:"onset_warmup"`       // energies observed before any onset
	RefractorySeconds float64 `json:"refractory_seconds"`
	WindowSeconds     float64 `json:"window_seconds"` // onset window span

	// Tempo derivation
	UpdateOnsets     int     `json:"update_onsets"`      // window size that triggers a live update
	MinOnsets        int     `json:"min_onsets"`         // minimum onsets for any estimate
	MinInterval      float64 `json:"min_interval"`       // exclusive, seconds
	MaxInterval      float64 `json:"max_interval"`       // exclusive, seconds
	BucketsPerSecond float64 `json:"buckets_per_second"` // 200 = 5 ms buckets
	MinBucketCount   int     `json:"min_bucket_count"`
	MinBPM           float64 `json:"min_bpm"`
	MaxBPM           float64 `json:"max_bpm"`

	// Smoothing
	SmoothingSize int `json:"smoothing_size"`

	// Bulk analysis
	MaxAnalysisDuration time.Duration `json:"max_analysis_duration"` // 0 analyses everything
	BlockSize           int           `json:"block_size"`
}

// DefaultEstimatorConfig returns the stock tuning
func DefaultEstimatorConfig() *EstimatorConfig {
	return &EstimatorConfig{
		DefaultSampleRate: 44100,
		FrameSize:         512,

		EnergyHistorySize: 200,
		ThresholdFactor:   1.3,
		ThresholdWarmup:   10,

		OnsetEnergyRatio:  1.5,
		OnsetWarmup:       6,
		RefractorySeconds: 0.2,
		WindowSeconds:     20,

		UpdateOnsets:     8,
		MinOnsets:        4,
		MinInterval:      0.25,
		MaxInterval:      2.0,
		BucketsPerSecond: 200,
		MinBucketCount:   3,
		MinBPM:           60,
		MaxBPM:           200,

		SmoothingSize: 5,

		MaxAnalysisDuration: 30 * time.Second,
		BlockSize:           4096,
	}
}

// Validate checks the config for values the estimator cannot run with
func (c *EstimatorConfig) Validate() error {
	switch {
	case c.DefaultSampleRate <= 0:
		return fmt.Errorf("%w: default sample rate must be positive: %v", ErrInvalidConfig, c.DefaultSampleRate)
	case c.FrameSize <= 0:
		return fmt.Errorf("%w: frame size must be positive: %d", ErrInvalidConfig, c.FrameSize)
	case c.EnergyHistorySize <= 0:
		return fmt.Errorf("%w: energy history size must be positive: %d", ErrInvalidConfig, c.EnergyHistorySize)
	case c.ThresholdFactor <= 0:
		return fmt.Errorf("%w: threshold factor must be positive: %v", ErrInvalidConfig, c.ThresholdFactor)
	case c.OnsetEnergyRatio < 1:
		return fmt.Errorf("%w: onset energy ratio must be at least 1: %v", ErrInvalidConfig, c.OnsetEnergyRatio)
	case c.RefractorySeconds < 0:
		return fmt.Errorf("%w: refractory period cannot be negative: %v", ErrInvalidConfig, c.RefractorySeconds)
	case c.WindowSeconds <= 0:
		return fmt.Errorf("%w: onset window must be positive: %v", ErrInvalidConfig, c.WindowSeconds)
	case c.MinOnsets < 2:
		return fmt.Errorf("%w: min onsets must be at least 2: %d", ErrInvalidConfig, c.MinOnsets)
	case c.UpdateOnsets < c.MinOnsets:
		return fmt.Errorf("%w: update onsets (%d) below min onsets (%d)", ErrInvalidConfig, c.UpdateOnsets, c.MinOnsets)
	case c.MinInterval <= 0 || c.MaxInterval <= c.MinInterval:
		return fmt.Errorf("%w: interval range (%v, %v) is empty", ErrInvalidConfig, c.MinInterval, c.MaxInterval)
	case c.BucketsPerSecond <= 0:
		return fmt.Errorf("%w: buckets per second must be positive: %v", ErrInvalidConfig, c.BucketsPerSecond)
	case c.MinBucketCount < 1:
		return fmt.Errorf("%w: min bucket count must be at least 1: %d", ErrInvalidConfig, c.MinBucketCount)
	case c.MinBPM <= 0 || c.MaxBPM < 2*c.MinBPM:
		// octave correction needs at least one full octave to land in
		return fmt.Errorf("%w: bpm range [%v, %v] must span an octave", ErrInvalidConfig, c.MinBPM, c.MaxBPM)
	case c.SmoothingSize <= 0:
		return fmt.Errorf("%w: smoothing size must be positive: %d", ErrInvalidConfig, c.SmoothingSize)
	case c.MaxAnalysisDuration < 0:
		return fmt.Errorf("%w: max analysis duration cannot be negative: %v", ErrInvalidConfig, c.MaxAnalysisDuration)
	case c.BlockSize <= 0:
		return fmt.Errorf("%w: block size must be positive: %d", ErrInvalidConfig, c.BlockSize)
	}
	return nil
}
