package live

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/RyanBlaney/sonido-tempo/logging"
)

// Sink receives paced audio. Monitor implements it.
type Sink interface {
	Send(ctx context.Context, samples []float32) error
	Flush(ctx context.Context) error
	Speed() float64
}

// Scheduler feeds decoded mono audio to a Sink in fixed-size chunks, paced
// like a playback device. At speed r a chunk is delivered every
// chunkDuration/r.
type Scheduler struct {
	sink       Sink
	sampleRate int
	chunkSize  int
	realtime   bool
	position   atomic.Int64 // samples delivered
	logger     logging.Logger
}

// NewScheduler creates a scheduler. With realtime false chunks are delivered
// as fast as the sink accepts them.
func NewScheduler(sink Sink, sampleRate, chunkSize int, realtime bool) *Scheduler {
	if chunkSize < 1 {
		chunkSize = 1024
	}
	return &Scheduler{
		sink:       sink,
		sampleRate: sampleRate,
		chunkSize:  chunkSize,
		realtime:   realtime,
		logger:     logging.WithFields(logging.Fields{"component": "live_scheduler"}),
	}
}

// Play delivers samples and flushes the sink at the end. Blocks until the
// audio is exhausted or ctx is cancelled.
func (s *Scheduler) Play(ctx context.Context, samples []float64) error {
	s.position.Store(0)

	var ticker *time.Ticker
	speed := s.sink.Speed()
	if s.realtime {
		ticker = time.NewTicker(s.interval(speed))
		defer ticker.Stop()
	}

	chunk := make([]float32, s.chunkSize)
	for start := 0; start < len(samples); start += s.chunkSize {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
			if current := s.sink.Speed(); current != speed {
				speed = current
				ticker.Reset(s.interval(speed))
			}
		}

		end := min(start+s.chunkSize, len(samples))
		n := end - start
		for i, v := range samples[start:end] {
			chunk[i] = float32(v)
		}
		if err := s.sink.Send(ctx, chunk[:n]); err != nil {
			return err
		}
		s.position.Add(int64(n))
	}

	s.logger.Debug("Playback finished", logging.Fields{
		"samples":  s.position.Load(),
		"realtime": s.realtime,
	})

	return s.sink.Flush(ctx)
}

func (s *Scheduler) interval(speed float64) time.Duration {
	if speed <= 0 {
		speed = 1
	}
	seconds := float64(s.chunkSize) / float64(s.sampleRate) / speed
	return max(time.Duration(seconds*float64(time.Second)), time.Microsecond)
}

// Position returns the playback position in source time
func (s *Scheduler) Position() time.Duration {
	if s.sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(s.position.Load()) / float64(s.sampleRate) * float64(time.Second))
}

// DownmixFloat32 averages interleaved channels into dst, growing it if
// needed, and returns the mono slice
func DownmixFloat32(dst, interleaved []float32, channels int) []float32 {
	if channels < 1 {
		channels = 1
	}
	frames := len(interleaved) / channels
	if cap(dst) < frames {
		dst = make([]float32, frames)
	}
	dst = dst[:frames]

	if channels == 1 {
		copy(dst, interleaved)
		return dst
	}

	scale := 1.0 / float32(channels)
	for i := range frames {
		var sum float32
		for _, s := range interleaved[i*channels : (i+1)*channels] {
			sum += s
		}
		dst[i] = sum * scale
	}
	return dst
}
