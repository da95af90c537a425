package cliui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// TerminalWidth returns the current width of stdout, or 80 if stdout isn't
// a terminal (piped output, redirected to a file, CI logs).
func TerminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// ResultLine is one property's outcome, the shared shape cmd/netdice and
// cmd/netdice-batch both render.
type ResultLine struct {
	Scenario    string // empty for a single-run netdice invocation
	Property    string
	Lo, Hi      float64
	NumExplored int
	Elapsed     time.Duration
	TimedOut    bool
	Err         error
}

// FormatResult renders one ResultLine as a single colored line, e.g.
//
//	[HOLDS] P(reachable(A, d)) ∈ [1.00000000, 1.00000000] (explored 2 states in 1ms)
//
// The property name is truncated to fit within TerminalWidth so a long
// flow/property description can't push the probability bound off-screen.
func (t Theme) FormatResult(r ResultLine) string {
	prefix := ""
	if r.Scenario != "" {
		prefix = t.MutedText.Render(r.Scenario+":") + " "
	}
	if r.Err != nil {
		return prefix + t.ViolatedBadge.Render("[ERROR]") + " " + r.Err.Error()
	}

	badge, label := t.statusBadge(r.Lo, r.Hi)
	suffix := ""
	if r.TimedOut {
		suffix = t.UncertainBadge.Render(" (timed out)")
	}

	const fixedPartWidth = 60 // "[HOLDS] P() ∈ [0.00000000, 0.00000000] (explored N states in Tms)"
	property := truncateToWidth(r.Property, TerminalWidth()-fixedPartWidth)

	return fmt.Sprintf("%s%s P(%s) ∈ [%.8f, %.8f] (explored %d states in %s)%s",
		prefix, badge.Render("["+label+"]"), property, r.Lo, r.Hi,
		r.NumExplored, r.Elapsed.Round(time.Millisecond), suffix)
}

// truncateToWidth shortens s to maxWidth visual cells, marking truncation
// with an ellipsis. A non-positive maxWidth (e.g. on a very narrow or
// non-terminal output) leaves s untouched.
func truncateToWidth(s string, maxWidth int) string {
	if maxWidth <= 0 || runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "…")
}

// SectionHeader renders a bold, accent-colored section title.
func (t Theme) SectionHeader(title string) string {
	return t.Header.Render(title)
}

// Warning renders a muted-orange one-line warning banner.
func (t Theme) Warning(format string, args ...any) string {
	return t.UncertainBadge.Render("[WARN]") + " " + fmt.Sprintf(format, args...)
}

// SummaryTable renders a column-aligned plain-text table of ResultLines,
// the shape cmd/netdice-batch prints after a run completes. Column widths
// are computed with go-runewidth so multi-byte scenario/property names
// still line up in a monospace terminal.
func (t Theme) SummaryTable(rows []ResultLine) string {
	if len(rows) == 0 {
		return ""
	}

	headers := []string{"SCENARIO", "STATUS", "PROPERTY", "LO", "HI", "STATES", "TIME"}
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		status := "ERROR"
		if r.Err == nil {
			_, status = t.statusBadge(r.Lo, r.Hi)
		}
		lo, hi := "-", "-"
		if r.Err == nil {
			lo, hi = fmt.Sprintf("%.6f", r.Lo), fmt.Sprintf("%.6f", r.Hi)
		}
		property := r.Property
		if r.Err != nil {
			property = r.Err.Error()
		}
		cells = append(cells, []string{
			r.Scenario, status, property, lo, hi,
			fmt.Sprintf("%d", r.NumExplored), r.Elapsed.Round(time.Millisecond).String(),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range cells {
		for i, c := range row {
			if w := runewidth.StringWidth(c); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(row []string, style func(string) string) {
		for i, c := range row {
			padded := c + strings.Repeat(" ", widths[i]-runewidth.StringWidth(c))
			if i > 0 {
				b.WriteString("  ")
			}
			if style != nil {
				b.WriteString(style(padded))
			} else {
				b.WriteString(padded)
			}
		}
		b.WriteByte('\n')
	}

	writeRow(headers, t.Header.Render)
	for _, row := range cells {
		writeRow(row, nil)
	}
	return strings.TrimRight(b.String(), "\n")
}
