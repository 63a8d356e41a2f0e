package tempo

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-tempo/algorithms/temporal"
	"github.com/RyanBlaney/sonido-tempo/internal/synth"
	"github.com/RyanBlaney/sonido-tempo/tempo/config"
	"github.com/RyanBlaney/sonido-tempo/transcode"
)

func TestNewEstimatorRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultEstimatorConfig()
	cfg.FrameSize = 0
	if _, err := NewEstimator(cfg); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestEstimatorClickTrack(t *testing.T) {
	tests := []struct {
		name   string
		bpm    float64
		secs   float64
		want   float64
		onsets int
	}{
		{"120 bpm", 120, 12, 120, 22},
		{"40 bpm doubled into range", 40, 14, 80, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEstimator(t)
			e.IngestFloat64(clickTrack(tt.bpm, tt.secs))

			if got := e.CurrentBPM(); got != tt.want {
				t.Errorf("CurrentBPM = %v, want %v", got, tt.want)
			}
			if !e.Ready() {
				t.Error("Ready = false with a usable estimate")
			}
			if got := e.FinalEstimate(); got != tt.want {
				t.Errorf("FinalEstimate = %v, want %v", got, tt.want)
			}
			if got := len(e.Onsets()); got != tt.onsets {
				t.Errorf("onsets = %d, want %d", got, tt.onsets)
			}
		})
	}
}

func TestEstimatorOnsetTimes(t *testing.T) {
	e := newTestEstimator(t)
	e.IngestFloat64(clickTrack(120, 4))

	want := []float64{1.0, 1.5, 2.0, 2.5, 3.0, 3.5}
	if got := e.Onsets(); !slices.Equal(got, want) {
		t.Errorf("Onsets = %v, want %v", got, want)
	}
	// six onsets: not enough for a live update
	if e.CurrentBPM() != 0 || e.Ready() {
		t.Errorf("CurrentBPM = %v before eight onsets", e.CurrentBPM())
	}
	if e.State() != StateWarming {
		t.Errorf("State = %v, want warming", e.State())
	}
}

func TestEstimatorOnsetsReturnsCopy(t *testing.T) {
	e := newTestEstimator(t)
	e.IngestFloat64(clickTrack(120, 12))

	bpm := e.FinalEstimate()
	if bpm != 120 {
		t.Fatalf("FinalEstimate = %v, want 120", bpm)
	}
	onsets := e.Onsets()
	saved := slices.Clone(onsets)
	for i := range onsets {
		onsets[i] = float64(i) * 0.3
	}

	if got := e.FinalEstimate(); got != bpm {
		t.Errorf("FinalEstimate after editing returned onsets = %v, want %v", got, bpm)
	}
	if got := e.Onsets(); !slices.Equal(got, saved) {
		t.Errorf("Onsets = %v, want %v", got, saved)
	}
}

func TestEstimatorSilence(t *testing.T) {
	e := newTestEstimator(t)
	e.IngestFloat64(make([]float64, 10*testSampleRate))

	if e.CurrentBPM() != 0 || e.Ready() || len(e.Onsets()) != 0 {
		t.Errorf("silence produced bpm=%v onsets=%d", e.CurrentBPM(), len(e.Onsets()))
	}
	if e.FinalEstimate() != 0 {
		t.Errorf("FinalEstimate = %v, want 0", e.FinalEstimate())
	}
}

func TestEstimatorStates(t *testing.T) {
	e := newTestEstimator(t)
	if e.State() != StateIdle {
		t.Fatalf("initial State = %v, want idle", e.State())
	}

	e.Ingest(nil)
	if e.State() != StateIdle {
		t.Errorf("State after empty ingest = %v, want idle", e.State())
	}

	track := clickTrack(120, 12)
	e.IngestFloat64(track[:testSampleRate/2])
	if e.State() != StateWarming {
		t.Errorf("State after half a second = %v, want warming", e.State())
	}

	e.IngestFloat64(track[testSampleRate/2:])
	if e.State() != StateEstimating {
		t.Errorf("State after 22 onsets = %v, want estimating", e.State())
	}

	e.Reset()
	if e.State() != StateIdle || e.CurrentBPM() != 0 || len(e.Onsets()) != 0 || e.SamplesIngested() != 0 {
		t.Errorf("after Reset: state=%v bpm=%v onsets=%d clock=%d",
			e.State(), e.CurrentBPM(), len(e.Onsets()), e.SamplesIngested())
	}
	if e.SampleRate() != testSampleRate {
		t.Errorf("Reset changed the sample rate to %v", e.SampleRate())
	}
}

func TestEstimatorDeterministicAfterReset(t *testing.T) {
	e := newTestEstimator(t)
	samples := toFloat32(clickTrack(120, 15))

	run := func() []float64 {
		var seq []float64
		for start := 0; start < len(samples); start += 4096 {
			e.Ingest(samples[start:min(start+4096, len(samples))])
			seq = append(seq, e.CurrentBPM())
		}
		return seq
	}

	first := run()
	e.Reset()
	second := run()

	if !slices.Equal(first, second) {
		t.Error("BPM sequence differs after Reset")
	}
}

func TestEstimatorChunkSizeIndependent(t *testing.T) {
	samples := toFloat32(clickTrack(120, 12))

	ref := newTestEstimator(t)
	ingestChunked(ref, samples, len(samples))

	for _, chunk := range []int{1, 100, 511, 512, 777, 4096} {
		e := newTestEstimator(t)
		ingestChunked(e, samples, chunk)

		if !slices.Equal(e.Onsets(), ref.Onsets()) {
			t.Errorf("chunk %d: onsets differ from single-call ingest", chunk)
		}
		if e.CurrentBPM() != ref.CurrentBPM() {
			t.Errorf("chunk %d: CurrentBPM = %v, want %v", chunk, e.CurrentBPM(), ref.CurrentBPM())
		}
		if e.SamplesIngested() != int64(len(samples)) {
			t.Errorf("chunk %d: sample clock = %d, want %d", chunk, e.SamplesIngested(), len(samples))
		}
	}
}

func TestEstimatorFlushAnalysesPartialFrame(t *testing.T) {
	e := newTestEstimator(t)

	// 1 s of silence then a click in a 100-sample tail
	signal := make([]float64, testSampleRate+100)
	synth.AddClick(signal, testSampleRate, 0.8)
	e.IngestFloat64(signal)

	if len(e.Onsets()) != 0 {
		t.Fatal("partial frame analysed before Flush")
	}
	e.Flush()
	if got := e.Onsets(); !slices.Equal(got, []float64{1.0}) {
		t.Errorf("Onsets after Flush = %v, want [1]", got)
	}

	e.Flush() // nothing pending
	if len(e.Onsets()) != 1 {
		t.Error("second Flush changed the onset window")
	}
}

func TestEstimatorIgnoresInvalidSampleRate(t *testing.T) {
	e := newTestEstimator(t)
	for _, rate := range []float64{0, -44100} {
		e.SetSampleRate(rate)
		if e.SampleRate() != testSampleRate {
			t.Errorf("SetSampleRate(%v) changed the rate to %v", rate, e.SampleRate())
		}
	}
}

func TestAnalyseData(t *testing.T) {
	mono := clickTrack(120, 12)

	tests := []struct {
		name string
		data *transcode.AudioData
		want float64
	}{
		{"mono", &transcode.AudioData{PCM: mono, SampleRate: testSampleRate, Channels: 1}, 120},
		{"stereo downmixed", &transcode.AudioData{PCM: synth.Interleave(mono, 2), SampleRate: testSampleRate, Channels: 2}, 120},
		{"no sample rate", &transcode.AudioData{PCM: mono, Channels: 1}, 0},
		{"nil", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEstimator(t)
			if got := e.AnalyseData(tt.data); got != tt.want {
				t.Errorf("AnalyseData = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyseDataResetsPreviousSource(t *testing.T) {
	e := newTestEstimator(t)
	e.IngestFloat64(clickTrack(40, 14))
	if e.CurrentBPM() != 80 {
		t.Fatalf("setup: CurrentBPM = %v", e.CurrentBPM())
	}

	data := &transcode.AudioData{PCM: clickTrack(120, 12), SampleRate: testSampleRate, Channels: 1}
	if got := e.AnalyseData(data); got != 120 {
		t.Errorf("AnalyseData = %v, want 120", got)
	}
	if e.CurrentBPM() != 120 {
		t.Errorf("CurrentBPM = %v, smoothing history leaked across sources", e.CurrentBPM())
	}
}

func TestAnalyseDataCapsDuration(t *testing.T) {
	e := newTestEstimator(t)
	data := &transcode.AudioData{PCM: clickTrack(120, 60), SampleRate: testSampleRate, Channels: 1}

	report := e.AnalyseDataReport(data)
	if report.Analysed != 30*time.Second {
		t.Errorf("Analysed = %v, want 30s", report.Analysed)
	}
	onsets := e.Onsets()
	if newest := onsets[len(onsets)-1]; newest >= 30 {
		t.Errorf("newest onset %v lies beyond the analysis cap", newest)
	}
	if report.BPM != 120 {
		t.Errorf("BPM = %v, want 120", report.BPM)
	}
}

func TestAnalyseDataReport(t *testing.T) {
	e := newTestEstimator(t)
	data := &transcode.AudioData{PCM: clickTrack(120, 12), SampleRate: testSampleRate, Channels: 1}

	report := e.AnalyseDataReport(data)
	if report.BPM != 120 || report.SmoothedBPM != 120 {
		t.Errorf("BPM = %v smoothed = %v, want 120", report.BPM, report.SmoothedBPM)
	}
	if report.Onsets != 22 {
		t.Errorf("Onsets = %d, want 22", report.Onsets)
	}
	if report.Category != temporal.ClassifyTempoCategory(120) {
		t.Errorf("Category = %q", report.Category)
	}
	if report.CrossCheckBPM != 120 {
		t.Errorf("CrossCheckBPM = %v, want 120", report.CrossCheckBPM)
	}
	if report.Agreement != 1 {
		t.Errorf("Agreement = %v, want 1", report.Agreement)
	}
	if report.SampleRate != testSampleRate || report.Channels != 1 {
		t.Errorf("layout = %d x %d", report.SampleRate, report.Channels)
	}
}

func TestAnalyseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "click.wav")
	if err := transcode.WriteWAV(path, clickTrack(120, 12), testSampleRate); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}

	e := newTestEstimator(t)
	if got := e.AnalyseFile(path); got != 120 {
		t.Errorf("AnalyseFile = %v, want 120", got)
	}
	if e.SampleRate() != testSampleRate {
		t.Errorf("SampleRate = %v, want the file rate", e.SampleRate())
	}

	report, err := e.AnalyseFileReport(path)
	if err != nil {
		t.Fatalf("AnalyseFileReport: %v", err)
	}
	if report.Source != path || report.BPM != 120 {
		t.Errorf("report = %+v", report)
	}
}

func TestAnalyseFileUnreadable(t *testing.T) {
	e := newTestEstimator(t)
	if got := e.AnalyseFile(filepath.Join(t.TempDir(), "missing.wav")); got != 0 {
		t.Errorf("AnalyseFile(missing) = %v, want 0", got)
	}

	failing := newTestEstimator(t, WithDecoder(&memoryDecoder{err: errDecode}))
	if got := failing.AnalyseFile("any.mp3"); got != 0 {
		t.Errorf("AnalyseFile with failing decoder = %v, want 0", got)
	}
	if _, err := failing.AnalyseFileReport("any.mp3"); !errors.Is(err, errDecode) {
		t.Errorf("err = %v, want wrapped decode error", err)
	}
}

func TestAnalyseFileUsesDecoder(t *testing.T) {
	dec := &memoryDecoder{data: &transcode.AudioData{
		PCM:        synth.Interleave(clickTrack(40, 14), 2),
		SampleRate: testSampleRate,
		Channels:   2,
	}}
	e := newTestEstimator(t, WithDecoder(dec))

	if got := e.AnalyseFile("song.flac"); got != 80 {
		t.Errorf("AnalyseFile = %v, want 80", got)
	}
	if dec.path != "song.flac" {
		t.Errorf("decoder called with %q", dec.path)
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		StateIdle: "idle", StateWarming: "warming", StateEstimating: "estimating", State(9): "state(9)",
	} {
		if got := state.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
