package config

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultEstimatorConfigIsValid(t *testing.T) {
	if err := DefaultEstimatorConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestDefaultEstimatorConfigValues(t *testing.T) {
	c := DefaultEstimatorConfig()
	if c.FrameSize != 512 || c.EnergyHistorySize != 200 || c.SmoothingSize != 5 {
		t.Errorf("framing constants = %d/%d/%d, want 512/200/5", c.FrameSize, c.EnergyHistorySize, c.SmoothingSize)
	}
	if c.BucketsPerSecond != 200 || c.MinBucketCount != 3 {
		t.Errorf("histogram constants = %v/%d, want 200/3", c.BucketsPerSecond, c.MinBucketCount)
	}
	if c.MaxAnalysisDuration != 30*time.Second {
		t.Errorf("MaxAnalysisDuration = %v, want 30s", c.MaxAnalysisDuration)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *EstimatorConfig)
	}{
		{"zero frame size", func(c *EstimatorConfig) { c.FrameSize = 0 }},
		{"zero history", func(c *EstimatorConfig) { c.EnergyHistorySize = 0 }},
		{"ratio below one", func(c *EstimatorConfig) { c.OnsetEnergyRatio = 0.5 }},
		{"empty interval range", func(c *EstimatorConfig) { c.MaxInterval = c.MinInterval }},
		{"update below min onsets", func(c *EstimatorConfig) { c.UpdateOnsets = 3 }},
		{"bpm range under an octave", func(c *EstimatorConfig) { c.MaxBPM = 100 }},
		{"negative duration", func(c *EstimatorConfig) { c.MaxAnalysisDuration = -time.Second }},
		{"zero smoothing", func(c *EstimatorConfig) { c.SmoothingSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultEstimatorConfig()
			tt.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}
