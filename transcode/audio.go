package transcode

import (
	"time"
)

// AudioData represents decoded audio data
type AudioData struct {
	PCM        []float64     `json:"-"` // Interleaved PCM, nominally [-1, 1]
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
	Source     string        `json:"source,omitempty"`
	Codec      string        `json:"codec,omitempty"`
}

// Frames returns the number of sample frames (samples per channel)
func (a *AudioData) Frames() int {
	if a == nil || a.Channels <= 0 {
		return 0
	}
	return len(a.PCM) / a.Channels
}

// Mono averages all channels into a single channel. Mono input is returned
// as a copy. A trailing incomplete frame is dropped.
func (a *AudioData) Mono() []float64 {
	frames := a.Frames()
	mono := make([]float64, frames)
	if frames == 0 {
		return mono
	}

	if a.Channels == 1 {
		copy(mono, a.PCM)
		return mono
	}

	scale := 1.0 / float64(a.Channels)
	for i := range frames {
		sum := 0.0
		for _, s := range a.PCM[i*a.Channels : (i+1)*a.Channels] {
			sum += s
		}
		mono[i] = sum * scale
	}
	return mono
}

// Truncate limits the audio to at most d, in place
func (a *AudioData) Truncate(d time.Duration) {
	if d <= 0 || a.SampleRate <= 0 || a.Channels <= 0 {
		return
	}
	maxFrames := int(d.Seconds() * float64(a.SampleRate))
	if a.Frames() > maxFrames {
		a.PCM = a.PCM[:maxFrames*a.Channels]
		a.Duration = a.computeDuration()
	}
}

func (a *AudioData) computeDuration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(a.Frames()) / float64(a.SampleRate) * float64(time.Second))
}
