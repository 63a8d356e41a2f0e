// Package codec decodes compressed live audio packets into mono PCM
package codec

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/RyanBlaney/sonido-tempo/live"
)

// maxFrameSamples is 120 ms at 48 kHz, the longest Opus frame
const maxFrameSamples = 5760

// OpusDecoder turns Opus packets into mono float samples
type OpusDecoder struct {
	decoder    *opus.Decoder
	sampleRate int
	channels   int
	pcm        []float32
	mono       []float32
}

// NewOpusDecoder creates a decoder producing audio at sampleRate (8000,
// 12000, 16000, 24000 or 48000 Hz)
func NewOpusDecoder(sampleRate, channels int) (*OpusDecoder, error) {
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}
	return &OpusDecoder{
		decoder:    dec,
		sampleRate: sampleRate,
		channels:   channels,
		pcm:        make([]float32, maxFrameSamples*channels),
		mono:       make([]float32, maxFrameSamples),
	}, nil
}

// SampleRate returns the output sample rate
func (d *OpusDecoder) SampleRate() int {
	return d.sampleRate
}

// Decode decodes one packet. The returned slice is reused by the next call.
func (d *OpusDecoder) Decode(packet []byte) ([]float32, error) {
	n, err := d.decoder.DecodeFloat32(packet, d.pcm)
	if err != nil {
		return nil, fmt.Errorf("failed to decode opus packet: %w", err)
	}
	d.mono = live.DownmixFloat32(d.mono, d.pcm[:n*d.channels], d.channels)
	return d.mono, nil
}
