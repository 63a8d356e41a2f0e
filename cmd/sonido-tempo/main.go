package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"

	"github.com/RyanBlaney/sonido-tempo/internal/cli"
	"github.com/RyanBlaney/sonido-tempo/internal/synth"
	"github.com/RyanBlaney/sonido-tempo/live"
	"github.com/RyanBlaney/sonido-tempo/live/capture"
	"github.com/RyanBlaney/sonido-tempo/live/codec"
	"github.com/RyanBlaney/sonido-tempo/logging"
	"github.com/RyanBlaney/sonido-tempo/tempo"
	"github.com/RyanBlaney/sonido-tempo/tempo/config"
	"github.com/RyanBlaney/sonido-tempo/transcode"
)

var (
	version = "0.1.0"
)

// CLI defines the command-line interface
type CLI struct {
	Version  versionFlag `short:"v" help:"Show version information"`
	LogLevel string      `help:"Log level (debug, info, warn, error)" default:"warn" env:"TEMPO_LOG_LEVEL"`
	LogFile  string      `type:"path" help:"Write logs to a file instead of the terminal" env:"TEMPO_LOG_FILE"`
	NoColor  bool        `help:"Disable colored log output"`

	Estimator EstimatorFlags `embed:""`

	Analyse AnalyseCmd `cmd:"" aliases:"analyze" help:"Estimate the tempo of audio files"`
	Play    PlayCmd    `cmd:"" help:"Follow the tempo of a file at playback speed"`
	Listen  ListenCmd  `cmd:"" help:"Follow the tempo of the default input device"`
	Stream  StreamCmd  `cmd:"" help:"Follow the tempo of a length-prefixed Opus packet stream"`
	Click   ClickCmd   `cmd:"" help:"Write a calibration click track"`
}

// versionFlag prints the styled version banner and exits
type versionFlag bool

func (v versionFlag) BeforeReset(app *kong.Kong, vars kong.Vars) error {
	cli.PrintVersion(vars["version"])
	app.Exit(0)
	return nil
}

// EstimatorFlags exposes the estimator tuning
type EstimatorFlags struct {
	FrameSize       int           `help:"Samples per energy frame" default:"512" env:"TEMPO_FRAME_SIZE"`
	ThresholdFactor float64       `help:"Onset threshold as a multiple of mean energy" default:"1.3" env:"TEMPO_THRESHOLD_FACTOR"`
	OnsetRatio      float64       `help:"Required energy jump over the previous frame" default:"1.5" env:"TEMPO_ONSET_RATIO"`
	Refractory      float64       `help:"Minimum seconds between onsets" default:"0.2" env:"TEMPO_REFRACTORY"`
	Window          float64       `help:"Seconds of onsets used for estimation" default:"20" env:"TEMPO_WINDOW"`
	MinBPM          float64       `name:"min-bpm" help:"Slowest reported tempo" default:"60" env:"TEMPO_MIN_BPM"`
	MaxBPM          float64       `name:"max-bpm" help:"Fastest reported tempo" default:"200" env:"TEMPO_MAX_BPM"`
	MaxDuration     time.Duration `help:"Audio analysed per file (0 for all)" default:"30s" env:"TEMPO_MAX_DURATION"`
	FFmpeg          string        `name:"ffmpeg" help:"ffmpeg binary" default:"ffmpeg" env:"TEMPO_FFMPEG"`
	FFprobe         string        `name:"ffprobe" help:"ffprobe binary" default:"ffprobe" env:"TEMPO_FFPROBE"`
}

// Config builds the estimator configuration from the flags
func (f EstimatorFlags) Config() *config.EstimatorConfig {
	cfg := config.DefaultEstimatorConfig()
	cfg.FrameSize = f.FrameSize
	cfg.ThresholdFactor = f.ThresholdFactor
	cfg.OnsetEnergyRatio = f.OnsetRatio
	cfg.RefractorySeconds = f.Refractory
	cfg.WindowSeconds = f.Window
	cfg.MinBPM = f.MinBPM
	cfg.MaxBPM = f.MaxBPM
	cfg.MaxAnalysisDuration = f.MaxDuration
	return cfg
}

// DecoderConfig builds the decoder configuration from the flags
func (f EstimatorFlags) DecoderConfig(maxDuration time.Duration) *transcode.DecoderConfig {
	cfg := transcode.DefaultDecoderConfig()
	cfg.FFmpegPath = f.FFmpeg
	cfg.FFprobePath = f.FFprobe
	cfg.MaxDuration = maxDuration
	return cfg
}

func (f EstimatorFlags) newEstimator(maxDecode time.Duration) (*tempo.Estimator, error) {
	return tempo.NewEstimator(f.Config(),
		tempo.WithDecoder(transcode.NewAutoDecoder(f.DecoderConfig(maxDecode))))
}

// AnalyseCmd estimates file tempos in bulk
type AnalyseCmd struct {
	JSON  bool     `help:"Print reports as JSON lines"`
	Files []string `arg:"" name:"files" help:"Audio files to analyse" type:"existingfile"`
}

func (c *AnalyseCmd) Run(app *CLI) error {
	estimator, err := app.Estimator.newEstimator(app.Estimator.MaxDuration)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	failed := 0
	for _, path := range c.Files {
		report, err := estimator.AnalyseFileReport(path)
		if err != nil {
			cli.PrintError(err.Error())
			failed++
			continue
		}
		if c.JSON {
			if err := encoder.Encode(report); err != nil {
				return err
			}
			continue
		}
		cli.PrintReport(os.Stdout, report)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be analysed", failed, len(c.Files))
	}
	return nil
}

// LiveFlags are shared by the live commands
type LiveFlags struct {
	Speed float64 `help:"Playback speed ratio (0, 4]" default:"1.0"`
	NoUI  bool    `name:"no-ui" help:"Print updates as lines instead of the live readout"`
}

// PlayCmd paces a decoded file through the live monitor
type PlayCmd struct {
	LiveFlags `embed:""`
	Fast      bool          `help:"Feed audio as fast as possible instead of in real time"`
	ChunkSize int           `help:"Samples per delivered chunk" default:"1024"`
	Duration  time.Duration `help:"Play only the start of the file (0 for all)" default:"0s"`
	File      string        `arg:"" help:"Audio file to play" type:"existingfile"`
}

func (c *PlayCmd) Run(app *CLI) error {
	data, err := transcode.NewAutoDecoder(app.Estimator.DecoderConfig(0)).DecodeFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", c.File, err)
	}
	data.Truncate(c.Duration)

	session, err := newSession(app, c.LiveFlags, float64(data.SampleRate))
	if err != nil {
		return err
	}
	defer session.stop()

	scheduler := live.NewScheduler(session.monitor, data.SampleRate, c.ChunkSize, !c.Fast)
	mono := data.Mono()

	return session.run(filepath.Base(c.File), data.Duration, func(ctx context.Context) error {
		stopPosition := session.trackPosition(ctx, scheduler)
		defer stopPosition()
		return scheduler.Play(ctx, mono)
	})
}

// ListenCmd follows the default input device
type ListenCmd struct {
	LiveFlags  `embed:""`
	SampleRate float64 `help:"Capture sample rate" default:"44100" env:"TEMPO_SAMPLE_RATE"`
	Frames     int     `help:"Frames per device buffer" default:"512"`
	Channels   int     `help:"Input channels to capture" default:"1"`
}

func (c *ListenCmd) Run(app *CLI) error {
	if err := capture.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	defer capture.Terminate()

	session, err := newSession(app, c.LiveFlags, c.SampleRate)
	if err != nil {
		return err
	}
	defer session.stop()

	input, err := capture.Open(session.monitor, c.SampleRate, c.Frames, c.Channels)
	if err != nil {
		return err
	}
	defer input.Close()

	if err := input.Start(); err != nil {
		return err
	}

	return session.run("default input", 0, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
}

// StreamCmd decodes framed Opus packets from a file or stdin
type StreamCmd struct {
	LiveFlags  `embed:""`
	SampleRate int    `help:"Opus decode rate" default:"48000" enum:"8000,12000,16000,24000,48000"`
	Channels   int    `help:"Channels in the stream" default:"2"`
	Input      string `arg:"" help:"Packet stream path, or - for stdin" default:"-"`
}

func (c *StreamCmd) Run(app *CLI) error {
	decoder, err := codec.NewOpusDecoder(c.SampleRate, c.Channels)
	if err != nil {
		return err
	}

	var input io.Reader = os.Stdin
	name := "stdin"
	if c.Input != "-" {
		f, err := os.Open(c.Input)
		if err != nil {
			return fmt.Errorf("failed to open packet stream: %w", err)
		}
		defer f.Close()
		input = f
		name = filepath.Base(c.Input)
	}

	session, err := newSession(app, c.LiveFlags, float64(decoder.SampleRate()))
	if err != nil {
		return err
	}
	defer session.stop()

	return session.run(name, 0, func(ctx context.Context) error {
		err := live.ReadPackets(input, func(packet []byte) error {
			mono, err := decoder.Decode(packet)
			if err != nil {
				return err
			}
			return session.monitor.Send(ctx, mono)
		})
		if err != nil {
			return err
		}
		return session.monitor.Flush(ctx)
	})
}

// ClickCmd renders a click track to WAV
type ClickCmd struct {
	BPM        float64       `name:"bpm" help:"Click tempo" default:"120"`
	Duration   time.Duration `help:"Track length" default:"30s"`
	Offset     float64       `help:"Seconds before the first click" default:"1.0"`
	Amplitude  float64       `help:"Click peak amplitude" default:"0.8"`
	SampleRate int           `help:"Output sample rate" default:"44100"`
	Output     string        `arg:"" help:"WAV file to write" type:"path"`
}

func (c *ClickCmd) Run(app *CLI) error {
	samples := synth.ClickTrack(c.BPM, c.Duration.Seconds(), c.Offset, c.Amplitude, c.SampleRate)
	if err := transcode.WriteWAV(c.Output, samples, c.SampleRate); err != nil {
		return err
	}
	logging.Info("Click track written", logging.Fields{
		"path":   c.Output,
		"bpm":    c.BPM,
		"clicks": len(synth.ClickTimes(c.BPM, c.Duration.Seconds(), c.Offset)),
	})
	fmt.Printf("%s %s\n", cli.KeyStyle.Render("Wrote"), cli.ValueStyle.Render(c.Output))
	return nil
}

func main() {
	app := &CLI{}
	ctx := kong.Parse(app,
		kong.Name("sonido-tempo"),
		kong.Description("Streaming tempo estimation from energy onsets"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	closeLog, err := setupLogging(app)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	defer closeLog()

	if err := ctx.Run(app); err != nil {
		cli.PrintError(err.Error())
		closeLog()
		os.Exit(1)
	}
}

func setupLogging(app *CLI) (func(), error) {
	closeLog := func() {}
	if app.LogFile != "" {
		f, err := os.OpenFile(app.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return closeLog, fmt.Errorf("failed to open log file: %w", err)
		}
		logging.SetGlobalLogger(logging.NewWriterLogger(f))
		closeLog = func() { f.Close() }
	}
	if app.NoColor {
		logging.DisableColors()
	}
	logging.SetLevel(logging.ParseLevel(app.LogLevel))
	return closeLog, nil
}
