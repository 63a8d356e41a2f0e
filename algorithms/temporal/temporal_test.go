package temporal

import (
	"slices"
	"testing"
)

func TestFrameEnergy(t *testing.T) {
	tests := []struct {
		name  string
		frame []float64
		want  float64
	}{
		{"alternating unit", []float64{1, -1, 1, -1}, 1},
		{"constant half", []float64{0.5, 0.5, 0.5, 0.5}, 0.25},
		{"silence", make([]float64, 512), 0},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FrameEnergy(tt.frame); got != tt.want {
				t.Errorf("FrameEnergy = %v, want %v", got, tt.want)
			}
		})
	}

	if got := FrameEnergy([]float32{0.5, -0.5}); got != 0.25 {
		t.Errorf("FrameEnergy(float32) = %v, want 0.25", got)
	}
}

func TestFrameEnergiesIncludesPartialFrame(t *testing.T) {
	signal := []float64{1, 1, 1, 1, 0.5, 0.5}
	got := FrameEnergies(signal, 4)
	want := []float64{1, 0.25}
	if !slices.Equal(got, want) {
		t.Errorf("FrameEnergies = %v, want %v", got, want)
	}
}

func TestAdaptiveThresholdWarmup(t *testing.T) {
	at := NewAdaptiveThreshold(200, 1.3, 10)

	for i := range 10 {
		if th := at.Push(1.0); th != 0 {
			t.Fatalf("push %d: threshold = %v, want 0 before warm-up", i+1, th)
		}
	}

	th := at.Push(1.0)
	if !approxEqual(th, 1.3, 1e-12) {
		t.Errorf("threshold after 11 pushes = %v, want 1.3", th)
	}
}

func TestAdaptiveThresholdTracksMean(t *testing.T) {
	at := NewAdaptiveThreshold(200, 1.3, 10)
	for i := range 20 {
		at.Push(float64(i % 2)) // mean 0.5
	}
	if !approxEqual(at.Threshold(), 0.65, 1e-12) {
		t.Errorf("Threshold = %v, want 0.65", at.Threshold())
	}
}

func TestAdaptiveThresholdEviction(t *testing.T) {
	at := NewAdaptiveThreshold(200, 1.3, 10)
	for i := range 201 {
		at.Push(float64(i))
	}

	if at.Len() != 200 {
		t.Fatalf("Len = %d, want 200", at.Len())
	}
	values := at.Values()
	if values[0] != 1 {
		t.Errorf("oldest = %v, want 1", values[0])
	}
	if slices.Contains(values, 0) {
		t.Error("first energy still present after 201 pushes")
	}
	// mean of 1..200 = 100.5
	if !approxEqual(at.Threshold(), 100.5*1.3, 1e-9) {
		t.Errorf("Threshold = %v, want %v", at.Threshold(), 100.5*1.3)
	}

	at.Reset()
	if at.Len() != 0 || at.Threshold() != 0 {
		t.Errorf("after Reset: len=%d threshold=%v", at.Len(), at.Threshold())
	}
}

func newTestDetector() *OnsetDetector {
	return NewOnsetDetector(OnsetParams{
		EnergyRatio:       1.5,
		Warmup:            6,
		RefractorySeconds: 0.2,
		WindowSeconds:     20,
	}, 1000)
}

func TestOnsetDetectorConditions(t *testing.T) {
	tests := []struct {
		name      string
		energy    float64
		previous  float64
		threshold float64
		observed  int
		index     int64
		want      bool
	}{
		{"accepted", 1.0, 0.1, 0.5, 20, 1000, true},
		{"below threshold", 0.4, 0.1, 0.5, 20, 1000, false},
		{"sustained loudness", 1.0, 0.7, 0.5, 20, 1000, false},
		{"ratio boundary", 1.5, 1.0, 0.5, 20, 1000, false},
		{"warming up", 1.0, 0.1, 0.5, 5, 1000, false},
		{"six observed", 1.0, 0.1, 0.5, 6, 1000, true},
		{"inside initial refractory", 1.0, 0.1, 0.5, 20, 200, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			od := newTestDetector()
			_, got := od.Process(tt.energy, tt.previous, tt.threshold, tt.observed, tt.index)
			if got != tt.want {
				t.Errorf("Process = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOnsetDetectorRefractory(t *testing.T) {
	od := newTestDetector()

	// 1 kHz clock: sample index == milliseconds
	accept := func(ms int64) bool {
		_, ok := od.Process(1, 0, 0.5, 100, ms)
		return ok
	}

	if !accept(1000) {
		t.Fatal("first onset rejected")
	}
	if accept(1100) || accept(1150) || accept(1200) {
		t.Error("onsets within 0.2 s collapsed incorrectly: a burst was accepted")
	}
	if !accept(1201) {
		t.Error("onset 0.201 s after the last one rejected")
	}

	if got := od.Onsets(); !slices.Equal(got, []float64{1.0, 1.201}) {
		t.Errorf("Onsets = %v, want [1 1.201]", got)
	}
	if od.LastOnset() != 1.201 {
		t.Errorf("LastOnset = %v", od.LastOnset())
	}
}

func TestOnsetDetectorWindowEviction(t *testing.T) {
	od := newTestDetector()
	for _, ms := range []int64{1000, 5000, 10000, 21500} {
		if _, ok := od.Process(1, 0, 0.5, 100, ms); !ok {
			t.Fatalf("onset at %d ms rejected", ms)
		}
	}

	want := []float64{5, 10, 21.5}
	if got := od.Onsets(); !slices.Equal(got, want) {
		t.Errorf("Onsets = %v, want %v", got, want)
	}
	for _, o := range od.Onsets() {
		if 21.5-o > 20 {
			t.Errorf("onset %v outside the 20 s window", o)
		}
	}

	od.Reset()
	if od.Len() != 0 || od.LastOnset() != 0 {
		t.Error("Reset did not clear the detector")
	}
}

func TestIntervalHistogramTempo(t *testing.T) {
	params := DefaultHistogramParams()

	tests := []struct {
		name   string
		onsets []float64
		want   float64
		tol    float64
	}{
		{"no onsets", nil, 0, 0},
		{"three onsets", onsetTrain(1, 0.5, 3), 0, 0},
		{"120 bpm click", onsetTrain(1, 0.5, 10), 120, 0.5},
		{"45 bpm doubled", onsetTrain(1, 60.0/45.0, 8), 90, 0.5},
		{"280 bpm filtered", onsetTrain(1, 60.0/280.0, 12), 0, 0},
		{"300 bpm filtered", onsetTrain(1, 0.2, 12), 0, 0},
		{"above range halved", onsetTrain(1, 0.2625, 10), 60.0 / 0.26 / 2, 1e-9},
		{"too little evidence", onsetsFromIntervals(0.5025, 0.5025, 0.7025, 0.9025), 0, 0},
		{"tie goes to lowest bucket", onsetsFromIntervals(0.6025, 0.5025, 0.6025, 0.5025, 0.6025, 0.5025), 120, 1e-9},
		{"outliers ignored", onsetsFromIntervals(0.5025, 0.1, 0.5025, 3.0, 0.5025, 0.5025), 120, 1e-9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IntervalHistogramTempo(tt.onsets, params)
			if !approxEqual(got, tt.want, tt.tol) {
				t.Errorf("IntervalHistogramTempo = %v, want %v ± %v", got, tt.want, tt.tol)
			}
		})
	}
}

func TestIntervalHistogramPeak(t *testing.T) {
	hist := IntervalHistogram{120: 3, 100: 3, 90: 1}
	bucket, count := hist.Peak()
	if bucket != 100 || count != 3 {
		t.Errorf("Peak = (%d, %d), want (100, 3)", bucket, count)
	}
	if hist.Total() != 7 {
		t.Errorf("Total = %d, want 7", hist.Total())
	}

	if b, c := (IntervalHistogram{}).Peak(); b != 0 || c != 0 {
		t.Errorf("empty Peak = (%d, %d)", b, c)
	}
}

func TestBuildIntervalHistogramQuantizes(t *testing.T) {
	hist := BuildIntervalHistogram(onsetsFromIntervals(0.5025, 0.5040, 0.5010, 0.2625), DefaultHistogramParams())
	if hist[100] != 3 {
		t.Errorf("bucket 100 = %d, want 3 (jitter within 5 ms)", hist[100])
	}
	if hist[52] != 1 {
		t.Errorf("bucket 52 = %d, want 1", hist[52])
	}
}

func TestCorrectOctave(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{120, 120},
		{45, 90},
		{230, 115},
		{25, 0},  // doubled to 50, still too slow
		{450, 0}, // halved to 225, still too fast
		{60, 60},
		{200, 200},
	}
	for _, tt := range tests {
		if got := CorrectOctave(tt.in, 60, 200); got != tt.want {
			t.Errorf("CorrectOctave(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTempoSmoother(t *testing.T) {
	s := NewTempoSmoother(5)

	if got := s.Update(100); got != 100 {
		t.Fatalf("single value = %v, want 100 unchanged", got)
	}
	for _, v := range []float64{100, 100, 100} {
		s.Update(v)
	}
	got := s.Update(120)
	if !approxEqual(got, 104, 1e-9) {
		t.Errorf("smoothed [100 100 100 100 120] = %v, want 104", got)
	}

	// a sixth value evicts the oldest
	s.Reset()
	for _, v := range []float64{200, 100, 100, 100, 100, 120} {
		got = s.Update(v)
	}
	if s.Len() != 5 {
		t.Errorf("Len = %d, want 5", s.Len())
	}
	if !approxEqual(got, 104, 1e-9) {
		t.Errorf("smoothed after eviction = %v, want 104", got)
	}
	if s.Value() != got {
		t.Errorf("Value = %v, want %v", s.Value(), got)
	}
}

func TestAutocorrelationTempo(t *testing.T) {
	// 100 frames/s envelope with a spike every 50 frames: 120 BPM
	envelope := make([]float64, 1000)
	for i := 25; i < len(envelope); i += 50 {
		envelope[i] = 1
	}

	bpm, strength := AutocorrelationTempo(envelope, 100, 60, 200)
	if !approxEqual(bpm, 120, 1e-9) {
		t.Errorf("bpm = %v, want 120", bpm)
	}
	if strength <= 0 || strength > 1 {
		t.Errorf("strength = %v, want (0, 1]", strength)
	}

	if bpm, _ := AutocorrelationTempo(make([]float64, 1000), 100, 60, 200); bpm != 0 {
		t.Errorf("silence bpm = %v, want 0", bpm)
	}
	if bpm, _ := AutocorrelationTempo(envelope[:5], 100, 60, 200); bpm != 0 {
		t.Errorf("short envelope bpm = %v, want 0", bpm)
	}
}

func TestTempoAgreement(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{120, 120, 1},
		{120, 60, 1},
		{120, 240, 1},
		{120, 0, 0},
		{120, 140, 0},
	}
	for _, tt := range tests {
		if got := TempoAgreement(tt.a, tt.b); !approxEqual(got, tt.want, 1e-9) {
			t.Errorf("TempoAgreement(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestClassifyTempoCategory(t *testing.T) {
	tests := map[float64]string{0: "unknown", 45: "very_slow", 75: "slow", 100: "moderate", 128: "fast", 174: "very_fast"}
	for bpm, want := range tests {
		if got := ClassifyTempoCategory(bpm); got != want {
			t.Errorf("ClassifyTempoCategory(%v) = %q, want %q", bpm, got, want)
		}
	}
}
