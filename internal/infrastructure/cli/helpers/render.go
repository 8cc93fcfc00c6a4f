package helpers

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/doeshing/gadget-go/internal/domain"
)

const (
	colorGreen   = lipgloss.Color("#a6e3a1")
	colorRed     = lipgloss.Color("#f38ba8")
	colorYellow  = lipgloss.Color("#f9e2af")
	colorPeach   = lipgloss.Color("#fab387")
	colorOverlay = lipgloss.Color("#7f849c")
)

// Palette renders styled text for one writer. Colour is dropped when the
// writer is not a terminal.
type Palette struct {
	ok, failed, pending, accent, muted lipgloss.Style
}

// NewPalette detects the colour profile of out.
func NewPalette(out io.Writer) Palette {
	r := lipgloss.NewRenderer(out)
	return Palette{
		ok:      r.NewStyle().Foreground(colorGreen),
		failed:  r.NewStyle().Foreground(colorRed),
		pending: r.NewStyle().Foreground(colorYellow),
		accent:  r.NewStyle().Foreground(colorPeach).Bold(true),
		muted:   r.NewStyle().Foreground(colorOverlay),
	}
}

// Status colours a command status.
func (p Palette) Status(s domain.Status) string {
	switch s {
	case domain.StatusSuccess:
		return p.ok.Render(string(s))
	case domain.StatusFailed:
		return p.failed.Render(string(s))
	default:
		return p.pending.Render(string(s))
	}
}

// Health colours a doctor check status.
func (p Palette) Health(s domain.HealthStatus) string {
	label := strings.ToUpper(string(s))
	switch s {
	case domain.HealthOK:
		return p.ok.Render(label)
	case domain.HealthError:
		return p.failed.Render(label)
	default:
		return p.pending.Render(label)
	}
}

// Accent highlights a short label.
func (p Palette) Accent(s string) string { return p.accent.Render(s) }

// Muted de-emphasises secondary text.
func (p Palette) Muted(s string) string { return p.muted.Render(s) }

// RenderResult prints the outcome of one submission.
func RenderResult(out io.Writer, result domain.SubmitResult) {
	p := NewPalette(out)
	cmd := result.Command
	via := string(result.Transport)
	if via == "" {
		via = "-"
	}
	fmt.Fprintf(out, "#%d %s %s\n", cmd.ID, p.Status(cmd.Status), p.Muted("via "+via))

	switch {
	case cmd.Status == domain.StatusFailed:
		fmt.Fprintf(out, "  %s\n", cmd.Response)
	case result.Transport == domain.TransportLink:
		fmt.Fprintln(out, p.Muted("  delivered over the short-range link (no reply expected)"))
	case result.Response != "":
		fmt.Fprintf(out, "  %s\n", p.Accent(result.Response))
	}
	if result.FromCache {
		fmt.Fprintln(out, p.Muted("  answered from cache"))
	}
}

// RenderCommands prints one line per command, newest first as given.
func RenderCommands(out io.Writer, commands []domain.Command, now time.Time) {
	p := NewPalette(out)
	for _, cmd := range commands {
		response := cmd.Response
		if response == "" {
			response = "-"
		}
		fmt.Fprintf(out, "%5d  %-8s %-7s %-14s %s -> %s\n",
			cmd.ID,
			p.Status(cmd.Status),
			orDash(string(cmd.Transport)),
			p.Muted(humanize.RelTime(cmd.CreatedAt, now, "ago", "from now")),
			cmd.Text,
			Truncate(response, 60))
	}
}

// RenderHealthReport prints doctor checks.
func RenderHealthReport(out io.Writer, report domain.HealthReport) {
	p := NewPalette(out)
	for _, check := range report.Checks {
		fmt.Fprintf(out, "[%s] %s - %s\n", p.Health(check.Status), check.Name, check.Details)
	}
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if n <= 3 || len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
