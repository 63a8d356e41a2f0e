// Package live runs a tempo estimator on its own goroutine and publishes the
// latest estimate to readers on other goroutines.
package live

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/RyanBlaney/sonido-tempo/logging"
	"github.com/RyanBlaney/sonido-tempo/tempo"
)

// Update is published whenever the estimate or the estimator state changes
type Update struct {
	BPM          float64
	EffectiveBPM float64
	Speed        float64
	State        tempo.State
	Ready        bool
}

// Pusher accepts mono chunks without blocking. Monitor implements it.
type Pusher interface {
	Push(samples []float32) bool
}

type message struct {
	samples []float32
	pooled  bool // samples is returned to the free list once ingested
	control func(*tempo.Estimator)
	done    chan struct{}
}

// Monitor owns an Estimator. Audio and control messages are applied in the
// order they were sent, on the goroutine running Run.
type Monitor struct {
	estimator *tempo.Estimator
	inbox     chan message
	free      chan []float32 // chunk buffers for Push
	updates   chan Update

	rateMu sync.RWMutex
	rate   *tempo.RateAdapter

	bpm     atomic.Uint64 // math.Float64bits
	state   atomic.Int32
	dropped atomic.Uint64

	logger logging.Logger
}

// NewMonitor wraps estimator. queueSize bounds the chunks waiting for the
// analysis goroutine.
func NewMonitor(estimator *tempo.Estimator, queueSize int) *Monitor {
	if queueSize < 1 {
		queueSize = 1
	}
	// one buffer per queued chunk plus the one being ingested
	free := make(chan []float32, queueSize+1)
	for range queueSize + 1 {
		free <- nil
	}

	return &Monitor{
		estimator: estimator,
		inbox:     make(chan message, queueSize),
		free:      free,
		updates:   make(chan Update, 16),
		rate:      tempo.NewRateAdapter(),
		logger:    logging.WithFields(logging.Fields{"component": "live_monitor"}),
	}
}

// Run processes queued audio until ctx is cancelled. Updates is closed on
// return.
func (m *Monitor) Run(ctx context.Context) {
	defer close(m.updates)

	m.logger.Debug("Monitor started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("Monitor stopped", logging.Fields{"dropped_chunks": m.dropped.Load()})
			return
		case msg := <-m.inbox:
			m.handle(msg)
		}
	}
}

func (m *Monitor) handle(msg message) {
	if msg.control != nil {
		msg.control(m.estimator)
	}
	if len(msg.samples) > 0 {
		m.estimator.Ingest(msg.samples)
	}
	if msg.pooled {
		select {
		case m.free <- msg.samples[:0]:
		default:
		}
	}
	m.publish()
	if msg.done != nil {
		close(msg.done)
	}
}

func (m *Monitor) publish() {
	bpm := m.estimator.CurrentBPM()
	state := m.estimator.State()

	if math.Float64bits(bpm) == m.bpm.Load() && int32(state) == m.state.Load() {
		return
	}
	m.bpm.Store(math.Float64bits(bpm))
	m.state.Store(int32(state))

	effective, ready := m.EffectiveBPM()
	update := Update{
		BPM:          bpm,
		EffectiveBPM: effective,
		Speed:        m.Speed(),
		State:        state,
		Ready:        ready,
	}

	select {
	case m.updates <- update:
	default:
		// readers poll CurrentBPM for the latest value
	}
}

// Push queues a chunk of mono samples without blocking, for use from audio
// callbacks. The chunk is copied into a recycled buffer, so once buffers
// have grown to the callback size Push does not allocate. Returns false when
// the queue is full and the chunk was dropped.
func (m *Monitor) Push(samples []float32) bool {
	var chunk []float32
	select {
	case chunk = <-m.free:
	default:
		m.dropped.Add(1)
		return false
	}
	chunk = append(chunk[:0], samples...)

	select {
	case m.inbox <- message{samples: chunk, pooled: true}:
		return true
	default:
		select {
		case m.free <- chunk[:0]:
		default:
		}
		m.dropped.Add(1)
		return false
	}
}

// Send queues a chunk of mono samples, waiting for room in the queue
func (m *Monitor) Send(ctx context.Context, samples []float32) error {
	chunk := make([]float32, len(samples))
	copy(chunk, samples)

	select {
	case m.inbox <- message{samples: chunk}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset clears the estimator once queued audio has been processed
func (m *Monitor) Reset(ctx context.Context) error {
	return m.do(ctx, func(e *tempo.Estimator) { e.Reset() })
}

// Load prepares the estimator for a new source at sampleRate
func (m *Monitor) Load(ctx context.Context, sampleRate float64) error {
	return m.do(ctx, func(e *tempo.Estimator) {
		e.SetSampleRate(sampleRate)
		e.Reset()
	})
}

// Flush analyses any partial frame left at the end of a source
func (m *Monitor) Flush(ctx context.Context) error {
	return m.do(ctx, func(e *tempo.Estimator) { e.Flush() })
}

// do runs fn on the analysis goroutine and waits for it to finish
func (m *Monitor) do(ctx context.Context, fn func(*tempo.Estimator)) error {
	done := make(chan struct{})

	select {
	case m.inbox <- message{control: fn, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Updates returns estimate changes. Slow readers miss intermediate updates.
func (m *Monitor) Updates() <-chan Update {
	return m.updates
}

// CurrentBPM returns the latest smoothed estimate
func (m *Monitor) CurrentBPM() float64 {
	return math.Float64frombits(m.bpm.Load())
}

// Ready reports whether a usable estimate exists
func (m *Monitor) Ready() bool {
	return m.CurrentBPM() > 0
}

// State returns the estimator state as of the last processed message
func (m *Monitor) State() tempo.State {
	return tempo.State(m.state.Load())
}

// SetSpeed sets the playback speed ratio
func (m *Monitor) SetSpeed(ratio float64) error {
	m.rateMu.Lock()
	defer m.rateMu.Unlock()

	if err := m.rate.SetRatio(ratio); err != nil {
		m.logger.Warn("Rejected playback speed", logging.Fields{"ratio": ratio})
		return err
	}
	return nil
}

// Speed returns the playback speed ratio
func (m *Monitor) Speed() float64 {
	m.rateMu.RLock()
	defer m.rateMu.RUnlock()
	return m.rate.Ratio()
}

// EffectiveBPM returns the tempo heard at the current speed
func (m *Monitor) EffectiveBPM() (float64, bool) {
	m.rateMu.RLock()
	defer m.rateMu.RUnlock()
	return m.rate.Report(m)
}

// Dropped returns the number of chunks Push discarded
func (m *Monitor) Dropped() uint64 {
	return m.dropped.Load()
}
