package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/rhuss/laph/pkg/api"
)

var (
	colorThinker    = lipgloss.Color("#7D56F4")
	colorCoder      = lipgloss.Color("#20B9B4")
	colorSummariser = lipgloss.Color("#F4D03F")
	colorSuccess    = lipgloss.Color("#2CD7C7")
	colorError      = lipgloss.Color("#E74C3C")
	colorMuted      = lipgloss.Color("#6C7A89")
)

type styles struct {
	header  map[api.Role]lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(color bool) styles {
	s := styles{
		header:  map[api.Role]lipgloss.Style{},
		success: lipgloss.NewStyle(),
		failure: lipgloss.NewStyle(),
		muted:   lipgloss.NewStyle(),
	}
	for _, r := range []api.Role{api.RoleThinker, api.RoleCoder, api.RoleSummariser} {
		s.header[r] = lipgloss.NewStyle()
	}
	if !color {
		return s
	}
	s.header[api.RoleThinker] = s.header[api.RoleThinker].Bold(true).Foreground(colorThinker)
	s.header[api.RoleCoder] = s.header[api.RoleCoder].Bold(true).Foreground(colorCoder)
	s.header[api.RoleSummariser] = s.header[api.RoleSummariser].Bold(true).Foreground(colorSummariser)
	s.success = s.success.Bold(true).Foreground(colorSuccess)
	s.failure = s.failure.Bold(true).Foreground(colorError)
	s.muted = s.muted.Foreground(colorMuted)
	return s
}

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// renderer prints streamed generator output as it arrives. It implements
// repair.Observer.
type renderer struct {
	mu      sync.Mutex
	w       io.Writer
	st      styles
	prompts bool
	midLine bool
}

func newRenderer(w io.Writer, color, prompts bool) *renderer {
	return &renderer{w: w, st: newStyles(color), prompts: prompts}
}

// Notify implements repair.Observer.
func (r *renderer) Notify(ev api.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Marker {
	case api.MarkerPrompt:
		if r.prompts {
			r.line(r.st.muted.Render(fmt.Sprintf("[%s prompt]\n%s", ev.Role, ev.Text)))
		}
	case api.MarkerStart:
		r.line(r.st.header[ev.Role].Render("── " + strings.ToUpper(string(ev.Role)) + " ──"))
	case api.MarkerChunk:
		fmt.Fprint(r.w, ev.Text)
		r.midLine = !strings.HasSuffix(ev.Text, "\n")
	case api.MarkerEnd:
		if r.midLine {
			fmt.Fprintln(r.w)
			r.midLine = false
		}
	}
}

// line writes s on a line of its own.
func (r *renderer) line(s string) {
	if r.midLine {
		fmt.Fprintln(r.w)
		r.midLine = false
	}
	fmt.Fprintln(r.w, s)
}

// Result prints the outcome of a run. The program itself goes to stdout
// separately.
func (r *renderer) Result(ok, cancelled bool, iterations int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case ok:
		r.line(r.st.success.Render("✓ working program found"))
	case cancelled:
		r.line(r.st.failure.Render("✗ run cancelled"))
	default:
		r.line(r.st.failure.Render(fmt.Sprintf("✗ no working program within %d iterations", iterations)))
	}
}
