package transcode

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-tempo/logging"
)

var (
	// ErrNoAudio is returned when a source decodes to zero samples
	ErrNoAudio = errors.New("no audio samples decoded")
	// ErrNoAudioStream is returned when a container has no audio stream
	ErrNoAudioStream = errors.New("no audio streams found")
	// ErrFFmpegUnavailable is returned when ffmpeg or ffprobe cannot be run
	ErrFFmpegUnavailable = errors.New("ffmpeg is not available")
)

// FileDecoder is the decoded-audio provider the tempo estimator consumes
type FileDecoder interface {
	DecodeFile(filename string) (*AudioData, error)
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate"` // 0 keeps the source rate
	TargetChannels   int           `json:"target_channels"`    // 0 keeps the source layout
	MaxDuration      time.Duration `json:"max_duration"`       // 0 decodes everything
	FFmpegPath       string        `json:"ffmpeg_path"`
	FFprobePath      string        `json:"ffprobe_path"`
	Timeout          time.Duration `json:"timeout"` // per ffmpeg/ffprobe invocation
}

// DefaultDecoderConfig returns default decoder configuration. The source
// rate and layout are kept: downmixing happens in AudioData.Mono and the
// estimator is rate agnostic.
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate: 0,
		TargetChannels:   0,
		MaxDuration:      0,
		FFmpegPath:       "ffmpeg",  // Assume in PATH
		FFprobePath:      "ffprobe", // Assume in PATH
		Timeout:          30 * time.Second,
	}
}

// Decoder handles audio decoding using FFmpeg
type Decoder struct {
	config *DecoderConfig

	validateOnce sync.Once
	validateErr  error
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// NewDecoder creates a new FFmpeg audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// DecodeFile decodes an audio file and returns interleaved PCM data
func (d *Decoder) DecodeFile(filename string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  filename,
	})

	logger.Debug("Starting audio file decode")

	d.validateOnce.Do(func() { d.validateErr = d.Validate() })
	if d.validateErr != nil {
		return nil, d.validateErr
	}

	metadata, err := d.probeAudioFile(filename)
	if err != nil {
		logger.Error(err, "Failed to probe audio file")
		return nil, err
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
		"input_bitrate":     metadata.Bitrate,
	})

	return d.decodeFileWithFFmpeg(filename, metadata)
}

// probeAudioFile uses ffprobe to get audio information from a file
func (d *Decoder) probeAudioFile(filename string) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0", // First audio stream only
		filename,
	}

	ctx, cancel := d.commandContext()
	defer cancel()

	output, err := exec.CommandContext(ctx, d.config.FFprobePath, args...).Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, ErrNoAudioStream
	}

	stream := probe.Streams[0]

	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil {
		sampleRate = 44100 // Fallback to common sample rate
	}

	duration, err := strconv.ParseFloat(stream.Duration, 64)
	if err != nil {
		duration = 0
	}

	bitrate, err := strconv.Atoi(stream.BitRate)
	if err != nil {
		bitrate = 0
	}

	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// decodeFileWithFFmpeg performs the actual audio decoding from a file
func (d *Decoder) decodeFileWithFFmpeg(filename string, metadata *AudioMetadata) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "decodeFileWithFFmpeg",
		"filename":  filename,
	})

	sampleRate, channels := d.outputLayout(metadata)

	args := append([]string{"-i", filename}, d.buildFFmpegArgs(sampleRate, channels)...)
	args = append(args, "pipe:1")

	ctx, cancel := d.commandContext()
	defer cancel()

	logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	startTime := time.Now()
	output, err := exec.CommandContext(ctx, d.config.FFmpegPath, args...).Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			logger.Error(err, "Ffmpeg decode failed", logging.Fields{
				"stderr": string(exitError.Stderr),
			})
		}
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	samples := bytesToFloat64(output)
	if len(samples) == 0 {
		return nil, ErrNoAudio
	}

	audio := &AudioData{
		PCM:        samples,
		SampleRate: sampleRate,
		Channels:   channels,
		Source:     filename,
		Codec:      metadata.Codec,
	}
	audio.Duration = audio.computeDuration()

	logger.Debug("FFmpeg decode completed successfully", logging.Fields{
		"input_codec":     metadata.Codec,
		"output_samples":  len(samples),
		"output_duration": audio.Duration.Seconds(),
		"decode_time":     time.Since(startTime).Seconds(),
	})

	return audio, nil
}

// outputLayout resolves the configured target against the probed source
func (d *Decoder) outputLayout(metadata *AudioMetadata) (sampleRate, channels int) {
	sampleRate, channels = metadata.SampleRate, metadata.Channels
	if d.config.TargetSampleRate > 0 {
		sampleRate = d.config.TargetSampleRate
	}
	if d.config.TargetChannels > 0 {
		channels = d.config.TargetChannels
	}
	return sampleRate, channels
}

// buildFFmpegArgs builds the ffmpeg output arguments
func (d *Decoder) buildFFmpegArgs(sampleRate, channels int) []string {
	args := []string{
		"-vn",
		"-f", "f64le", // Output raw float64 little-endian
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
	}

	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", d.config.MaxDuration.Seconds()))
	}

	// Suppress ffmpeg output
	args = append(args, "-v", "error")

	return args
}

func (d *Decoder) commandContext() (context.Context, context.CancelFunc) {
	if d.config.Timeout > 0 {
		return context.WithTimeout(context.Background(), d.config.Timeout)
	}
	return context.WithCancel(context.Background())
}

// bytesToFloat64 converts raw float64 little-endian bytes to []float64
func bytesToFloat64(data []byte) []float64 {
	if len(data)%8 != 0 {
		// Trim to multiple of 8 bytes
		data = data[:len(data)-(len(data)%8)]
	}

	if len(data) == 0 {
		return nil
	}

	sampleCount := len(data) / 8
	samples := make([]float64, sampleCount)

	for i := range sampleCount {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}

	return samples
}

// Validate checks the configuration and that the ffmpeg and ffprobe
// binaries can be found
func (d *Decoder) Validate() error {
	switch {
	case d.config.TargetSampleRate < 0:
		return fmt.Errorf("target sample rate cannot be negative: %d", d.config.TargetSampleRate)
	case d.config.TargetChannels < 0 || d.config.TargetChannels > 8:
		return fmt.Errorf("target channels must be between 0 and 8: %d", d.config.TargetChannels)
	case d.config.Timeout < 0:
		return fmt.Errorf("timeout cannot be negative: %v", d.config.Timeout)
	}

	for _, bin := range []string{d.config.FFmpegPath, d.config.FFprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrFFmpegUnavailable, bin, err)
		}
	}
	return nil
}
