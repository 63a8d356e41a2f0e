package transcode

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/RyanBlaney/sonido-tempo/logging"
)

// ErrUnsupportedWAV is returned for WAV files the native decoder cannot read
// (non-PCM encodings such as IEEE float)
var ErrUnsupportedWAV = errors.New("unsupported wav encoding")

const (
	wavFormatPCM  = 1
	wavReadFrames = 4096
)

// WAVDecoder decodes PCM WAV files natively, without ffmpeg
type WAVDecoder struct {
	maxDuration time.Duration
}

// NewWAVDecoder creates a WAV decoder that stops after maxDuration (0 reads
// the whole file)
func NewWAVDecoder(maxDuration time.Duration) *WAVDecoder {
	return &WAVDecoder{maxDuration: maxDuration}
}

// DecodeFile decodes a PCM WAV file into normalized interleaved samples
func (w *WAVDecoder) DecodeFile(filename string) (*AudioData, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()

	data, err := w.Decode(f)
	if err != nil {
		return nil, err
	}
	data.Source = filename

	logging.Debug("WAV decode completed", logging.Fields{
		"component":   "wav_decoder",
		"filename":    filename,
		"sample_rate": data.SampleRate,
		"channels":    data.Channels,
		"duration":    data.Duration.Seconds(),
	})

	return data, nil
}

// Decode reads a PCM WAV stream
func (w *WAVDecoder) Decode(r io.ReadSeeker) (*AudioData, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file")
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedWAV, d.WavAudioFormat)
	}
	if d.NumChans == 0 || d.SampleRate == 0 || d.BitDepth == 0 {
		return nil, fmt.Errorf("%w: missing format information", ErrUnsupportedWAV)
	}

	channels := int(d.NumChans)
	sampleRate := int(d.SampleRate)
	scale := 1.0 / math.Pow(2, float64(d.BitDepth)-1)
	offset := 0
	if d.BitDepth == 8 {
		offset = 128 // 8-bit PCM is unsigned
	}

	maxSamples := -1
	if w.maxDuration > 0 {
		maxSamples = int(w.maxDuration.Seconds()*float64(sampleRate)) * channels
	}

	buf := &audio.IntBuffer{
		Format: d.Format(),
		Data:   make([]int, wavReadFrames*channels),
	}

	var pcm []float64
	for maxSamples < 0 || len(pcm) < maxSamples {
		n, err := d.PCMBuffer(buf)
		if err != nil {
			return nil, fmt.Errorf("failed to read wav samples: %w", err)
		}
		if n == 0 {
			break
		}
		for _, s := range buf.Data[:n] {
			pcm = append(pcm, float64(s-offset)*scale)
		}
	}

	if maxSamples >= 0 && len(pcm) > maxSamples {
		pcm = pcm[:maxSamples]
	}
	if len(pcm) == 0 {
		return nil, ErrNoAudio
	}

	data := &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   channels,
		Codec:      "pcm",
	}
	data.Duration = data.computeDuration()
	return data, nil
}

// WriteWAV writes mono samples in [-1, 1] to a 16-bit PCM WAV file
func WriteWAV(filename string, samples []float64, sampleRate int) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, wavFormatPCM)

	data := make([]int, len(samples))
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		data[i] = int(math.Round(s * math.MaxInt16))
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalize wav file: %w", err)
	}
	return f.Close()
}
