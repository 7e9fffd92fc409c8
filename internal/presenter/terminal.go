package presenter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var toneColors = map[Tone]lipgloss.Color{
	ToneGreen: lipgloss.Color("42"),
	ToneAmber: lipgloss.Color("214"),
	ToneRed:   lipgloss.Color("196"),
	ToneBlue:  lipgloss.Color("39"),
}

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle().Bold(true)
	alertStyle = lipgloss.NewStyle().Foreground(toneColors[ToneRed]).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

func toneStyle(t Tone) lipgloss.Style {
	c, ok := toneColors[t]
	if !ok {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(c)
}

// StatusLine renders the one-line terminal form of the header badge,
// e.g. "● Connected 120ms".
func StatusLine(h HeaderBadge) string {
	style := toneStyle(h.Tone)
	line := style.Render("●") + " " + style.Bold(true).Render(h.Label)
	if h.Latency != "" {
		line += " " + labelStyle.Render(h.Latency)
	}
	return line
}

// RenderTerminal renders the header badge with its detail rows.
func RenderTerminal(h HeaderBadge) string {
	var b strings.Builder
	b.WriteString(StatusLine(h))
	b.WriteString("\n")

	width := 0
	for _, row := range h.Details {
		if len(row.Label) > width {
			width = len(row.Label)
		}
	}
	for _, row := range h.Details {
		value := valueStyle.Render(row.Value)
		if row.Alert {
			value = alertStyle.Render(row.Value)
		}
		fmt.Fprintf(&b, "  %s  %s\n", labelStyle.Render(fmt.Sprintf("%-*s", width, row.Label)), value)
	}

	switch {
	case h.ShowReconnect:
		b.WriteString(hintStyle.Render("  Connection lost. Use Reconnect Now in the dashboard to retry."))
		b.WriteString("\n")
	case h.ActiveNote != "":
		b.WriteString(toneStyle(h.Tone).Render("  " + h.ActiveNote))
		b.WriteString("\n")
	}
	return b.String()
}
