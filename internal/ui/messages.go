package ui

import (
	"time"

	"github.com/RyanBlaney/sonido-tempo/live"
)

// UpdateMsg carries a new estimate from the monitor
type UpdateMsg live.Update

// PositionMsg reports the playback position
type PositionMsg struct {
	Position time.Duration
}

// SourceMsg announces a newly loaded source
type SourceMsg struct {
	Name     string
	Duration time.Duration
}

// DoneMsg indicates the source is exhausted or failed
type DoneMsg struct {
	Error error
}

// StoppedMsg indicates the monitor has shut down
type StoppedMsg struct{}
