package tempo

import (
	"errors"
	"math"
	"testing"
)

func TestRateAdapterEffectiveBPM(t *testing.T) {
	r := NewRateAdapter()
	if r.Ratio() != 1 || r.EffectiveBPM(120) != 120 {
		t.Fatalf("default ratio = %v", r.Ratio())
	}

	if err := r.SetRatio(1.5); err != nil {
		t.Fatalf("SetRatio(1.5): %v", err)
	}
	if got := r.EffectiveBPM(120); got != 180 {
		t.Errorf("EffectiveBPM(120) at 1.5x = %v, want 180", got)
	}
	if got := r.EffectiveBPM(0); got != 0 {
		t.Errorf("EffectiveBPM(0) = %v, want 0", got)
	}

	if err := r.SetRatio(MaxRatio); err != nil {
		t.Errorf("SetRatio(MaxRatio): %v", err)
	}
}

func TestRateAdapterRejectsInvalidRatio(t *testing.T) {
	for _, ratio := range []float64{0, -1, 4.01, math.NaN(), math.Inf(1)} {
		r := NewRateAdapter()
		if err := r.SetRatio(0.5); err != nil {
			t.Fatal(err)
		}
		if err := r.SetRatio(ratio); !errors.Is(err, ErrInvalidRatio) {
			t.Errorf("SetRatio(%v) err = %v, want ErrInvalidRatio", ratio, err)
		}
		if r.Ratio() != 0.5 {
			t.Errorf("SetRatio(%v) changed the ratio to %v", ratio, r.Ratio())
		}
	}
}

func TestRateAdapterReport(t *testing.T) {
	r := NewRateAdapter()
	if err := r.SetRatio(0.5); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		source    BPMSource
		want      float64
		wantReady bool
	}{
		{"ready", fixedSource(128), 64, true},
		{"not ready", fixedSource(0), 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ready := r.Report(tt.source)
			if got != tt.want || ready != tt.wantReady {
				t.Errorf("Report = (%v, %v), want (%v, %v)", got, ready, tt.want, tt.wantReady)
			}
		})
	}

	e := newTestEstimator(t)
	e.IngestFloat64(clickTrack(120, 12))
	if got, ready := r.Report(e); got != 60 || !ready {
		t.Errorf("Report(estimator) = (%v, %v), want (60, true)", got, ready)
	}
}
