package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/figflow/pkg/panel"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Renderer formats transcript entries for a terminal.
type Renderer struct {
	markdown func(string) (string, error)
	profile  termenv.Profile
	plain    bool
}

// NewRenderer returns a renderer. With color false, entries are printed as plain text.
func NewRenderer(color bool) *Renderer {
	r := &Renderer{profile: termenv.Ascii, plain: !color}
	if r.plain {
		return r
	}

	r.profile = termenv.ColorProfile()
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(0),
	)
	if err == nil {
		r.markdown = md.Render
	}
	return r
}

// Entry renders one transcript entry. Bot replies are shown as a fenced code block.
func (r *Renderer) Entry(e panel.Entry) string {
	switch e.Role {
	case panel.RoleUser:
		line := r.label("you", "#818cf8") + e.Text
		if e.Image != "" {
			line += r.dim(fmt.Sprintf(" [image: %s]", e.Image))
		}
		return line + "\n"

	case panel.RoleError:
		return r.label("error", "#fb7185") + r.paint(e.Text, "#fb7185") + "\n"

	default:
		if e.Text == panel.Greeting || r.markdown == nil {
			return r.label("bot", "#c084fc") + e.Text + "\n"
		}
		out, err := r.markdown("```\n" + strings.TrimRight(e.Text, "\n") + "\n```\n")
		if err != nil {
			return r.label("bot", "#c084fc") + e.Text + "\n"
		}
		return r.label("bot", "#c084fc") + "\n" + out
	}
}

// Status renders a one-line status message such as a notification.
func (r *Renderer) Status(level, message string) string {
	color := "#a78bfa"
	if level == "error" {
		color = "#fb7185"
	}
	return r.label(level, color) + message + "\n"
}

func (r *Renderer) label(name, color string) string {
	if r.plain {
		return name + "> "
	}
	return termenv.String(name + "> ").Foreground(r.profile.Color(color)).Bold().String()
}

func (r *Renderer) paint(s, color string) string {
	if r.plain {
		return s
	}
	return termenv.String(s).Foreground(r.profile.Color(color)).String()
}

func (r *Renderer) dim(s string) string {
	if r.plain {
		return s
	}
	return termenv.String(s).Faint().String()
}
