// Package tempo estimates the tempo of a mono audio stream from energy onsets.
// An Estimator is single-owner: feed it from one goroutine and hand results
// to other goroutines through your own synchronization (see package live).
package tempo

import (
	"fmt"
	"slices"

	"github.com/RyanBlaney/sonido-tempo/algorithms/temporal"
	"github.com/RyanBlaney/sonido-tempo/logging"
	"github.com/RyanBlaney/sonido-tempo/tempo/config"
	"github.com/RyanBlaney/sonido-tempo/transcode"
)

// State is the estimator lifecycle stage
type State int

const (
	// StateIdle means no samples have been ingested since the last reset
	StateIdle State = iota
	// StateWarming means samples are flowing but the onset window is too small
	StateWarming
	// StateEstimating means the onset window is large enough for live updates
	StateEstimating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWarming:
		return "warming"
	case StateEstimating:
		return "estimating"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Option configures an Estimator
type Option func(*Estimator)

// WithDecoder sets the collaborator used by AnalyseFile
func WithDecoder(decoder transcode.FileDecoder) Option {
	return func(e *Estimator) {
		if decoder != nil {
			e.decoder = decoder
		}
	}
}

// WithLogger overrides the component logger
func WithLogger(logger logging.Logger) Option {
	return func(e *Estimator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Estimator turns a sample stream into a smoothed BPM estimate
type Estimator struct {
	config     *config.EstimatorConfig
	histogram  temporal.HistogramParams
	threshold  *temporal.AdaptiveThreshold
	detector   *temporal.OnsetDetector
	smoother   *temporal.TempoSmoother
	decoder    transcode.FileDecoder
	logger     logging.Logger
	sampleRate float64

	frame      []float64 // pending partial frame
	frameStart int64     // sample index of frame[0]
	previous   float64   // energy of the last complete frame
	current    float64
	ingested   bool
	state      State
}

// NewEstimator creates an estimator. A nil config uses the defaults.
func NewEstimator(cfg *config.EstimatorConfig, opts ...Option) (*Estimator, error) {
	if cfg == nil {
		cfg = config.DefaultEstimatorConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Estimator{
		config: cfg,
		histogram: temporal.HistogramParams{
			MinOnsets:        cfg.MinOnsets,
			MinInterval:      cfg.MinInterval,
			MaxInterval:      cfg.MaxInterval,
			BucketsPerSecond: cfg.BucketsPerSecond,
			MinBucketCount:   cfg.MinBucketCount,
			MinBPM:           cfg.MinBPM,
			MaxBPM:           cfg.MaxBPM,
		},
		threshold: temporal.NewAdaptiveThreshold(cfg.EnergyHistorySize, cfg.ThresholdFactor, cfg.ThresholdWarmup),
		detector: temporal.NewOnsetDetector(temporal.OnsetParams{
			EnergyRatio:       cfg.OnsetEnergyRatio,
			Warmup:            cfg.OnsetWarmup,
			RefractorySeconds: cfg.RefractorySeconds,
			WindowSeconds:     cfg.WindowSeconds,
		}, cfg.DefaultSampleRate),
		smoother:   temporal.NewTempoSmoother(cfg.SmoothingSize),
		sampleRate: cfg.DefaultSampleRate,
		frame:      make([]float64, 0, cfg.FrameSize),
		logger:     logging.WithFields(logging.Fields{"component": "tempo_estimator"}),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.decoder == nil {
		decoderConfig := transcode.DefaultDecoderConfig()
		decoderConfig.MaxDuration = cfg.MaxAnalysisDuration
		e.decoder = transcode.NewAutoDecoder(decoderConfig)
	}

	return e, nil
}

// Config returns the estimator configuration
func (e *Estimator) Config() *config.EstimatorConfig {
	return e.config
}

// SetSampleRate sets the rate used to timestamp onsets. Non-positive rates
// are ignored.
func (e *Estimator) SetSampleRate(sampleRate float64) {
	if sampleRate <= 0 {
		e.logger.Warn("Ignoring invalid sample rate", logging.Fields{
			"function":    "SetSampleRate",
			"sample_rate": sampleRate,
		})
		return
	}
	e.sampleRate = sampleRate
	e.detector.SetSampleRate(sampleRate)
}

// SampleRate returns the current sample rate
func (e *Estimator) SampleRate() float64 {
	return e.sampleRate
}

// Reset discards all analysis state and returns the estimator to idle. The
// sample rate is kept.
func (e *Estimator) Reset() {
	e.threshold.Reset()
	e.detector.Reset()
	e.smoother.Reset()
	e.frame = e.frame[:0]
	e.frameStart = 0
	e.previous = 0
	e.current = 0
	e.ingested = false
	e.state = StateIdle
}

// Ingest pushes live mono samples. Frames that straddle calls are completed
// on the next call, so results do not depend on how the stream is chunked.
func (e *Estimator) Ingest(samples []float32) {
	ingest(e, samples)
}

// IngestFloat64 is Ingest for float64 samples
func (e *Estimator) IngestFloat64(samples []float64) {
	ingest(e, samples)
}

func ingest[T float32 | float64](e *Estimator, samples []T) {
	if len(samples) == 0 {
		return
	}
	if !e.ingested {
		e.ingested = true
		e.setState(StateWarming)
	}

	size := e.config.FrameSize

	if len(e.frame) > 0 {
		n := min(size-len(e.frame), len(samples))
		for _, s := range samples[:n] {
			e.frame = append(e.frame, float64(s))
		}
		samples = samples[n:]
		if len(e.frame) < size {
			return
		}
		e.processFrame(temporal.FrameEnergy(e.frame), size)
		e.frame = e.frame[:0]
	}

	for len(samples) >= size {
		e.processFrame(temporal.FrameEnergy(samples[:size]), size)
		samples = samples[size:]
	}

	for _, s := range samples {
		e.frame = append(e.frame, float64(s))
	}
}

// Flush analyses a pending partial frame, as at the end of a file
func (e *Estimator) Flush() {
	if len(e.frame) == 0 {
		return
	}
	e.processFrame(temporal.FrameEnergy(e.frame), len(e.frame))
	e.frame = e.frame[:0]
}

func (e *Estimator) processFrame(energy float64, length int) {
	start := e.frameStart
	e.frameStart += int64(length)

	threshold := e.threshold.Push(energy)
	previous := e.previous
	e.previous = energy

	if _, ok := e.detector.Process(energy, previous, threshold, e.threshold.Len(), start); !ok {
		return
	}

	if e.detector.Len() < e.config.UpdateOnsets {
		e.setState(StateWarming)
		return
	}
	e.setState(StateEstimating)

	if bpm := temporal.IntervalHistogramTempo(e.detector.Onsets(), e.histogram); bpm > 0 {
		e.current = e.smoother.Update(bpm)
	}
}

func (e *Estimator) setState(state State) {
	if e.state == state {
		return
	}
	e.logger.Debug("Estimator state changed", logging.Fields{
		"from":       e.state.String(),
		"to":         state.String(),
		"onsets":     e.detector.Len(),
		"sample_pos": e.frameStart,
	})
	e.state = state
}

// CurrentBPM returns the smoothed estimate, 0 while unavailable
func (e *Estimator) CurrentBPM() float64 {
	return e.current
}

// Ready reports whether a usable estimate exists
func (e *Estimator) Ready() bool {
	return e.current > 0
}

// State returns the lifecycle stage
func (e *Estimator) State() State {
	return e.state
}

// FinalEstimate derives an unsmoothed tempo from the current onset window
func (e *Estimator) FinalEstimate() float64 {
	return temporal.IntervalHistogramTempo(e.detector.Onsets(), e.histogram)
}

// Onsets returns a copy of the onset window in seconds
func (e *Estimator) Onsets() []float64 {
	return slices.Clone(e.detector.Onsets())
}

// SamplesIngested returns the sample clock since the last reset
func (e *Estimator) SamplesIngested() int64 {
	return e.frameStart + int64(len(e.frame))
}
