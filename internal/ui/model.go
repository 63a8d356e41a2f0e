// Package ui provides the Bubbletea terminal readout for live tempo estimation
package ui

import (
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/RyanBlaney/sonido-tempo/live"
	"github.com/RyanBlaney/sonido-tempo/tempo"
)

// SpeedStep is the speed change per key press
const SpeedStep = 0.05

// Controller is the live estimate the model displays and steers. Monitor
// implements it.
type Controller interface {
	SetSpeed(ratio float64) error
	Speed() float64
	EffectiveBPM() (float64, bool)
}

// Model is the Bubbletea model for the live readout
type Model struct {
	Source   string
	Duration time.Duration
	Position time.Duration

	BPM          float64
	EffectiveBPM float64
	Speed        float64
	State        tempo.State
	Ready        bool

	Done     bool
	Err      error
	Notice   string
	Stopped  bool
	Quitting bool

	controller Controller
	updates    <-chan live.Update

	Width  int
	Height int
}

// NewModel creates a readout fed by updates. Position, source and completion
// messages are delivered with tea.Program.Send.
func NewModel(source string, controller Controller, updates <-chan live.Update) Model {
	speed := 1.0
	if controller != nil {
		speed = controller.Speed()
	}
	return Model{
		Source:     source,
		Speed:      speed,
		controller: controller,
		updates:    updates,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit
		case "+", "=", "up":
			return m.changeSpeed(SpeedStep), nil
		case "-", "_", "down":
			return m.changeSpeed(-SpeedStep), nil
		case "0":
			return m.setSpeed(1.0), nil
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case UpdateMsg:
		m.BPM = msg.BPM
		m.State = msg.State
		m.Ready = msg.Ready
		m.refreshEffective()
		return m, waitForUpdate(m.updates)

	case PositionMsg:
		m.Position = msg.Position

	case SourceMsg:
		m.Source = msg.Name
		m.Duration = msg.Duration
		m.Position = 0
		m.Done = false
		m.Err = nil

	case DoneMsg:
		m.Done = true
		m.Err = msg.Error

	case StoppedMsg:
		m.Stopped = true
		return m, nil
	}

	return m, nil
}

func (m Model) changeSpeed(delta float64) Model {
	return m.setSpeed(math.Round((m.Speed+delta)*100) / 100)
}

func (m Model) setSpeed(ratio float64) Model {
	if m.controller == nil {
		return m
	}
	if err := m.controller.SetSpeed(ratio); err != nil {
		m.Notice = err.Error()
		return m
	}
	m.Notice = ""
	m.Speed = m.controller.Speed()
	m.refreshEffective()
	return m
}

func (m *Model) refreshEffective() {
	if m.controller == nil {
		m.EffectiveBPM = m.BPM * m.Speed
		return
	}
	m.EffectiveBPM, _ = m.controller.EffectiveBPM()
}

// View renders the UI
func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	return renderReadout(m)
}

// waitForUpdate creates a command that waits for the next estimate
func waitForUpdate(updates <-chan live.Update) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return StoppedMsg{}
		}
		return UpdateMsg(update)
	}
}
