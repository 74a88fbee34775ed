package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"

	"github.com/voicepal/voicepal/internal/session"
)

// CompactStatus renders a session as a single status line.
func CompactStatus(st session.Status, width int) string {
	icon := lipgloss.NewStyle().Foreground(stateColor(st.State)).Render(stateIcon(st.State))

	line := fmt.Sprintf("%s %s %s %s", icon, shortID(st.SessionID), st.Backend, formatRate(st.Rate))
	if st.Queue > 0 {
		line += fmt.Sprintf(" +%d queued", st.Queue)
	}
	if st.Current != "" {
		line += " " + currentStyle.Render(quote(st.Current))
	}
	if width > 0 {
		line = truncate.StringWithTail(line, uint(width), "…")
	}
	return line
}

// DetailedStatus renders a session over several lines.
func DetailedStatus(st session.Status, width int) string {
	var b strings.Builder
	b.WriteString(CompactStatus(st, width))
	b.WriteString("\n")

	if st.Last != "" {
		last := "  last: " + quote(st.Last)
		if width > 0 {
			last = truncate.StringWithTail(last, uint(width), "…")
		}
		b.WriteString(dimStyle.Render(last))
		b.WriteString("\n")
	}

	s := st.Stats
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s spoken, %s failed, %s interrupted, %s dropped",
		humanize.Comma(s.Completed), humanize.Comma(s.Failed),
		humanize.Comma(s.Interrupted), humanize.Comma(s.Dropped))))
	return b.String()
}

func formatRate(r float64) string {
	if r <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2fx", r)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func quote(s string) string {
	return "“" + strings.Join(strings.Fields(s), " ") + "”"
}
