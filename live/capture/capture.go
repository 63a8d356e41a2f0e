// Package capture feeds audio input devices into a live monitor via PortAudio
package capture

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/RyanBlaney/sonido-tempo/live"
	"github.com/RyanBlaney/sonido-tempo/logging"
)

// Capture is an open input stream on the default device
type Capture struct {
	stream   *portaudio.Stream
	mono     []float32
	channels int
	sink     live.Pusher
	logger   logging.Logger
}

// Initialize must be called once before Open
func Initialize() error {
	return portaudio.Initialize()
}

// Terminate releases PortAudio after every Capture is closed
func Terminate() error {
	return portaudio.Terminate()
}

// Open opens the default input device. Each callback buffer is downmixed to
// mono and pushed to sink.
func Open(sink live.Pusher, sampleRate float64, framesPerBuffer, channels int) (*Capture, error) {
	if channels < 1 {
		channels = 1
	}

	c := &Capture{
		mono:     make([]float32, framesPerBuffer),
		channels: channels,
		sink:     sink,
		logger: logging.WithFields(logging.Fields{
			"component":   "audio_capture",
			"sample_rate": sampleRate,
			"channels":    channels,
		}),
	}

	stream, err := portaudio.OpenDefaultStream(channels, 0, sampleRate, framesPerBuffer, c.process)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	c.stream = stream

	return c, nil
}

// process runs on the PortAudio callback thread
func (c *Capture) process(in []float32) {
	c.mono = live.DownmixFloat32(c.mono, in, c.channels)
	c.sink.Push(c.mono)
}

// Start begins capturing
func (c *Capture) Start() error {
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	c.logger.Info("Audio capture started")
	return nil
}

// Stop pauses capturing
func (c *Capture) Stop() error {
	return c.stream.Stop()
}

// Close stops and releases the stream
func (c *Capture) Close() error {
	c.logger.Debug("Closing audio capture")
	return c.stream.Close()
}
