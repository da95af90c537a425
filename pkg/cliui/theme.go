// Package cliui renders netdice's result lines, warnings, and batch
// summaries as styled, non-interactive terminal output. It deliberately
// stops at lipgloss: there is no event loop here, only one-shot rendering
// of text that gets printed once and never redrawn.
package cliui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile, computed once so
// every style below can branch on it without re-detecting per call.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// Theme holds the adaptive colors and pre-built styles used to render a
// netdice run's output. Built once per process and reused across every
// property/scenario line so styles aren't recompiled per print.
type Theme struct {
	Renderer *lipgloss.Renderer

	Holds     lipgloss.AdaptiveColor
	Violated  lipgloss.AdaptiveColor
	Uncertain lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Accent    lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor

	HoldsBadge     lipgloss.Style
	ViolatedBadge  lipgloss.Style
	UncertainBadge lipgloss.Style
	Header         lipgloss.Style
	MutedText      lipgloss.Style
	Bold           lipgloss.Style
}

// DefaultTheme builds the standard theme against the given renderer.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Holds:     lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
		Violated:  lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Uncertain: lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Accent:    lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
	}

	t.HoldsBadge = r.NewStyle().Foreground(t.Holds).Bold(true)
	t.ViolatedBadge = r.NewStyle().Foreground(t.Violated).Bold(true)
	t.UncertainBadge = r.NewStyle().Foreground(t.Uncertain).Bold(true)
	t.Header = r.NewStyle().Foreground(t.Accent).Bold(true)
	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.Bold = r.NewStyle().Bold(true)

	return t
}

// TestTheme returns a theme suitable for tests and other non-interactive
// callers that don't have a live stdout renderer to hand.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}

// statusBadge picks holds/violated/uncertain from a probability bound.
func (t Theme) statusBadge(lo, hi float64) (lipgloss.Style, string) {
	const eps = 1e-9
	switch {
	case lo >= 1-eps:
		return t.HoldsBadge, "HOLDS"
	case hi <= eps:
		return t.ViolatedBadge, "VIOLATED"
	default:
		return t.UncertainBadge, "UNCERTAIN"
	}
}
