package tempo

import (
	"errors"
	"testing"

	"github.com/RyanBlaney/sonido-tempo/internal/synth"
	"github.com/RyanBlaney/sonido-tempo/logging"
	"github.com/RyanBlaney/sonido-tempo/transcode"
)

// 51200 Hz makes a 512-sample frame exactly 10 ms, so clicks on multiples of
// 10 ms start frames and onset timestamps are exact.
const testSampleRate = 51200

func newTestEstimator(t *testing.T, opts ...Option) *Estimator {
	t.Helper()
	opts = append([]Option{WithLogger(&logging.NoOpLogger{})}, opts...)
	e, err := NewEstimator(nil, opts...)
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	e.SetSampleRate(testSampleRate)
	return e
}

// clickTrack renders a click every 60/bpm seconds starting at 1 s
func clickTrack(bpm, seconds float64) []float64 {
	return synth.ClickTrack(bpm, seconds, 1.0, 0.8, testSampleRate)
}

func toFloat32(samples []float64) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s)
	}
	return out
}

func ingestChunked(e *Estimator, samples []float32, chunk int) {
	for start := 0; start < len(samples); start += chunk {
		e.Ingest(samples[start:min(start+chunk, len(samples))])
	}
}

// memoryDecoder serves preloaded audio for any path
type memoryDecoder struct {
	data *transcode.AudioData
	err  error
	path string
}

func (m *memoryDecoder) DecodeFile(path string) (*transcode.AudioData, error) {
	m.path = path
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

var errDecode = errors.New("decode failed")

// fixedSource is a BPMSource with a constant estimate
type fixedSource float64

func (f fixedSource) CurrentBPM() float64 { return float64(f) }
func (f fixedSource) Ready() bool         { return f > 0 }
