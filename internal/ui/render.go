package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/sakif/teamsync/internal/presence"
)

// Styler renders single tree items as styled terminal lines.
type Styler struct {
	theme    Theme
	renderer *lipgloss.Renderer
}

// NewStyler returns a Styler whose color profile follows w.
func NewStyler(w io.Writer, theme Theme) *Styler {
	return &Styler{theme: theme, renderer: lipgloss.NewRenderer(w)}
}

// Render draws one item. The kind decides which renderer runs.
func (s *Styler) Render(it Item) string {
	switch it.Kind {
	case KindStatus:
		return s.renderStatus(it)
	case KindMember:
		return s.renderMember(it)
	case KindInviteHeader:
		return s.renderInviteHeader(it)
	case KindInviteDescription:
		return s.renderInviteDescription(it)
	case KindInviteAction:
		return s.renderInviteAction(it)
	}
	return it.Label
}

func (s *Styler) renderStatus(it Item) string {
	label := s.renderer.NewStyle().Bold(true).Foreground(s.theme.HeaderForeground).Render(it.Label)
	if it.Command != "" {
		label = s.renderer.NewStyle().Foreground(s.theme.ActionForeground).Render("▸ " + it.Label)
	}
	return label + s.description(it.Description)
}

func (s *Styler) renderMember(it Item) string {
	name := it.Label
	style := s.renderer.NewStyle().Foreground(s.theme.NormalText)
	if it.IsSelf {
		name += " (you)"
		style = style.Foreground(s.theme.SelfForeground)
	}
	line := "  " + style.Render(name) + s.description(it.Description)
	if it.Member != nil && it.Member.StatusMessage() != "" {
		line += "\n    " + s.renderer.NewStyle().Italic(true).Foreground(s.theme.FaintText).Render(it.Tooltip)
	}
	return line
}

func (s *Styler) renderInviteHeader(it Item) string {
	return s.renderer.NewStyle().Bold(true).Foreground(s.theme.HeaderForeground).Render(it.Label)
}

func (s *Styler) renderInviteDescription(it Item) string {
	return "  " + s.renderer.NewStyle().Foreground(s.theme.FaintText).Render(it.Label)
}

func (s *Styler) renderInviteAction(it Item) string {
	return "  " + s.renderer.NewStyle().Foreground(s.theme.ActionForeground).Render("▸ "+it.Label)
}

func (s *Styler) description(d string) string {
	if d == "" {
		return ""
	}
	return "  " + s.renderer.NewStyle().Foreground(s.theme.FaintText).Render(d)
}

// TerminalRenderer prints the whole tree to w on every render.
type TerminalRenderer struct {
	mu     sync.Mutex
	w      io.Writer
	styler *Styler
}

func NewTerminalRenderer(w io.Writer, theme Theme) *TerminalRenderer {
	return &TerminalRenderer{w: w, styler: NewStyler(w, theme)}
}

// Render implements presence.Renderer.
func (r *TerminalRenderer) Render(s presence.Snapshot) {
	var b strings.Builder
	b.WriteString(r.styler.renderer.NewStyle().Underline(true).Render(Title(s)))
	b.WriteByte('\n')
	for _, it := range BuildTree(s) {
		b.WriteString(r.styler.Render(it))
		b.WriteByte('\n')
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.w, b.String())
}
