package diag

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	locStyle   = lipgloss.NewStyle().Faint(true)
)

// Render writes a single diagnostic to w, styled the way a one-shot
// terminal write (not an interactive bubbletea program) is rendered
// elsewhere in the example pack: errors bold red, warnings plain yellow,
// the source location dimmed.
func Render(w io.Writer, d Diagnostic) {
	style := errorStyle
	if d.Kind == KindWarning {
		style = warnStyle
	}

	loc := ""
	if d.Span != nil {
		loc = locStyle.Render(d.Span.String()) + " "
	}

	fmt.Fprintf(w, "%s%s: %s\n", loc, style.Render(d.Kind.String()), d.Message)
}

// RenderAll writes every fatal diagnostic then every warning in b to w.
func RenderAll(w io.Writer, b *Bag) {
	for _, d := range b.Errors() {
		Render(w, d)
	}
	for _, d := range b.Warnings() {
		Render(w, d)
	}
}
