package printers

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

// renderBody renders a body as markdown when colors are on, and as wrapped
// plain text otherwise or when rendering fails.
func renderBody(body string, width int) string {
	body = strings.TrimSpace(body)
	plain := indent.String(wordwrap.String(body, width-4), 4)
	if color.NoColor {
		return plain
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return plain
	}
	out, err := r.Render(body)
	if err != nil {
		return plain
	}
	return strings.TrimRight(out, "\n")
}
