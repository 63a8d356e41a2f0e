package tempo

import (
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-tempo/algorithms/temporal"
	"github.com/RyanBlaney/sonido-tempo/logging"
	"github.com/RyanBlaney/sonido-tempo/transcode"
)

// Report summarizes a bulk analysis
type Report struct {
	Source             string        `json:"source,omitempty"`
	BPM                float64       `json:"bpm"`          // final estimate over the onset window
	SmoothedBPM        float64       `json:"smoothed_bpm"` // live estimate at the end of the analysis
	Category           string        `json:"category"`
	Onsets             int           `json:"onsets"`
	Analysed           time.Duration `json:"analysed"`
	SampleRate         int           `json:"sample_rate"`
	Channels           int           `json:"channels"`
	CrossCheckBPM      float64       `json:"cross_check_bpm"`
	CrossCheckStrength float64       `json:"cross_check_strength"`
	Agreement          float64       `json:"agreement"` // 0..1 between BPM and CrossCheckBPM
}

// AnalyseFile decodes path and returns the tempo of its opening section, or
// 0 when the file cannot be decoded or carries no usable rhythm. The
// estimator is reset first and its state afterwards reflects the file.
func (e *Estimator) AnalyseFile(path string) float64 {
	report, err := e.AnalyseFileReport(path)
	if err != nil {
		return 0.0
	}
	return report.BPM
}

// AnalyseFileReport is AnalyseFile with the full analysis report
func (e *Estimator) AnalyseFileReport(path string) (*Report, error) {
	logger := e.logger.WithFields(logging.Fields{
		"function": "AnalyseFileReport",
		"path":     path,
	})

	data, err := e.decoder.DecodeFile(path)
	if err != nil {
		logger.Error(err, "Failed to decode audio file")
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	report := e.AnalyseDataReport(data)
	report.Source = path

	logger.Info("File analysis completed", logging.Fields{
		"bpm":             report.BPM,
		"smoothed_bpm":    report.SmoothedBPM,
		"onsets":          report.Onsets,
		"analysed":        report.Analysed.Seconds(),
		"cross_check_bpm": report.CrossCheckBPM,
		"agreement":       report.Agreement,
	})

	return report, nil
}

// AnalyseData runs bulk analysis over already decoded audio
func (e *Estimator) AnalyseData(data *transcode.AudioData) float64 {
	return e.AnalyseDataReport(data).BPM
}

// AnalyseDataReport runs bulk analysis over already decoded audio. Audio is
// downmixed to mono and capped at MaxAnalysisDuration.
func (e *Estimator) AnalyseDataReport(data *transcode.AudioData) *Report {
	report := &Report{Category: temporal.ClassifyTempoCategory(0)}
	if data == nil || data.SampleRate <= 0 {
		return report
	}
	report.SampleRate = data.SampleRate
	report.Channels = data.Channels

	e.SetSampleRate(float64(data.SampleRate))
	e.Reset()

	mono := data.Mono()
	if limit := e.config.MaxAnalysisDuration; limit > 0 {
		maxSamples := int(limit.Seconds() * float64(data.SampleRate))
		if len(mono) > maxSamples {
			mono = mono[:maxSamples]
		}
	}

	for start := 0; start < len(mono); start += e.config.BlockSize {
		end := min(start+e.config.BlockSize, len(mono))
		e.IngestFloat64(mono[start:end])
	}
	e.Flush()

	report.BPM = e.FinalEstimate()
	report.SmoothedBPM = e.CurrentBPM()
	report.Category = temporal.ClassifyTempoCategory(report.BPM)
	report.Onsets = len(e.Onsets())
	report.Analysed = time.Duration(float64(len(mono)) / float64(data.SampleRate) * float64(time.Second))

	frameRate := float64(data.SampleRate) / float64(e.config.FrameSize)
	envelope := temporal.FrameEnergies(mono, e.config.FrameSize)
	report.CrossCheckBPM, report.CrossCheckStrength = temporal.AutocorrelationTempo(
		envelope, frameRate, e.config.MinBPM, e.config.MaxBPM)
	report.Agreement = temporal.TempoAgreement(report.BPM, report.CrossCheckBPM)

	return report
}
