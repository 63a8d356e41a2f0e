package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/RyanBlaney/sonido-tempo/internal/cli"
	"github.com/RyanBlaney/sonido-tempo/tempo"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E8A317"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	bpmStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#E8A317"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A40000"))
)

// renderReadout renders the live tempo view
func renderReadout(m Model) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Sonido Tempo ♩"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(renderSource(m)))
	b.WriteString("\n\n")

	b.WriteString(bpmStyle.Render(renderBPM(m.EffectiveBPM, m.Ready)))
	b.WriteString("\n")

	fmt.Fprintf(&b, " Estimated: %s BPM   Speed: %.2fx   State: %s\n",
		cli.FormatBPM(m.BPM), m.Speed, renderState(m.State))

	if m.Notice != "" {
		b.WriteString(noticeStyle.Render(" " + m.Notice))
		b.WriteString("\n")
	}
	if m.Err != nil {
		b.WriteString(noticeStyle.Render(fmt.Sprintf(" Error: %v", m.Err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(" +/- speed · 0 reset speed · q quit"))
	b.WriteString("\n")

	return b.String()
}

func renderSource(m Model) string {
	source := m.Source
	if source == "" {
		source = "input"
	}
	switch {
	case m.Done:
		return fmt.Sprintf("%s (finished)", source)
	case m.Duration > 0:
		return fmt.Sprintf("%s  %s / %s", source,
			m.Position.Truncate(100*time.Millisecond), m.Duration.Truncate(100*time.Millisecond))
	default:
		return source
	}
}

func renderBPM(bpm float64, ready bool) string {
	if !ready {
		return "--- BPM"
	}
	return fmt.Sprintf("%s BPM", cli.FormatBPM(bpm))
}

func renderState(state tempo.State) string {
	switch state {
	case tempo.StateEstimating:
		return "locked"
	case tempo.StateWarming:
		return "listening"
	default:
		return "idle"
	}
}
