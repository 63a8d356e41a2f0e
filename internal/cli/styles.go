package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/RyanBlaney/sonido-tempo/tempo"
)

// Color palette
var (
	primaryColor = lipgloss.Color("#E8A317") // Sonido amber
	mutedColor   = lipgloss.Color("#888888") // Gray
	textColor    = lipgloss.Color("#FFFFFF") // White
	goodColor    = lipgloss.Color("#00AA00")
	badColor     = lipgloss.Color("#A40000")
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(badColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	GoodStyle = lipgloss.NewStyle().
			Foreground(goodColor)

	BadStyle = lipgloss.NewStyle().
			Foreground(badColor)
)

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render("Sonido Tempo ♩"))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// FormatBPM renders a tempo, or a dash when unavailable
func FormatBPM(bpm float64) string {
	if bpm <= 0 {
		return "--"
	}
	return fmt.Sprintf("%.1f", bpm)
}

// RenderReport renders a file analysis as aligned key/value lines
func RenderReport(report *tempo.Report) string {
	var b strings.Builder

	name := filepath.Base(report.Source)
	if report.Source == "" {
		name = "audio"
	}
	b.WriteString(TitleStyle.Render(name))
	b.WriteString("\n")

	row := func(key, value string) {
		fmt.Fprintf(&b, "  %s %s\n", KeyStyle.Render(fmt.Sprintf("%-12s", key+":")), value)
	}

	tempoStyle := GoodStyle
	if report.BPM <= 0 {
		tempoStyle = BadStyle
	}
	row("Tempo", tempoStyle.Bold(true).Render(FormatBPM(report.BPM)+" BPM"))
	row("Smoothed", ValueStyle.Render(FormatBPM(report.SmoothedBPM)))
	row("Category", ValueStyle.Render(report.Category))
	row("Onsets", ValueStyle.Render(fmt.Sprintf("%d", report.Onsets)))
	row("Analysed", ValueStyle.Render(fmt.Sprintf("%.1fs at %d Hz, %d ch",
		report.Analysed.Seconds(), report.SampleRate, report.Channels)))

	check := fmt.Sprintf("%s BPM (strength %.2f, agreement %.0f%%)",
		FormatBPM(report.CrossCheckBPM), report.CrossCheckStrength, report.Agreement*100)
	if report.Agreement >= 0.5 {
		row("Cross-check", GoodStyle.Render(check))
	} else {
		row("Cross-check", BadStyle.Render(check))
	}

	return b.String()
}

// PrintReport writes RenderReport to w
func PrintReport(w io.Writer, report *tempo.Report) {
	fmt.Fprintln(w, RenderReport(report))
}
