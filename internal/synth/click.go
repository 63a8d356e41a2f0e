// Package synth generates calibration signals with a known tempo
package synth

import "math"

// ClickLength is the length of one click in samples
const ClickLength = 64

// ClickTrack returns seconds of mono audio at sampleRate with a click every
// 60/bpm seconds, the first at offset seconds. Each click is a short
// decaying burst of amplitude on silence.
func ClickTrack(bpm, seconds, offset, amplitude float64, sampleRate int) []float64 {
	n := int(seconds * float64(sampleRate))
	if n <= 0 || bpm <= 0 {
		return []float64{}
	}

	signal := make([]float64, n)
	for _, t := range ClickTimes(bpm, seconds, offset) {
		AddClick(signal, int(math.Round(t*float64(sampleRate))), amplitude)
	}
	return signal
}

// ClickTimes lists the click times of a ClickTrack, in seconds
func ClickTimes(bpm, seconds, offset float64) []float64 {
	if bpm <= 0 {
		return nil
	}
	period := 60.0 / bpm
	var times []float64
	for k := 0; ; k++ {
		t := offset + float64(k)*period
		if t >= seconds {
			break
		}
		times = append(times, t)
	}
	return times
}

// AddClick mixes a click starting at sample start into signal
func AddClick(signal []float64, start int, amplitude float64) {
	for i := range ClickLength {
		idx := start + i
		if idx < 0 || idx >= len(signal) {
			continue
		}
		decay := 1.0 - float64(i)/ClickLength
		sign := 1.0
		if i%2 == 1 {
			sign = -1.0
		}
		signal[idx] += sign * amplitude * decay
	}
}

// Interleave duplicates a mono signal into channels interleaved channels
func Interleave(mono []float64, channels int) []float64 {
	if channels < 1 {
		channels = 1
	}
	out := make([]float64, len(mono)*channels)
	for i, s := range mono {
		for c := range channels {
			out[i*channels+c] = s
		}
	}
	return out
}
