// Package glyph holds the marks used to render items in a terminal.
package glyph

import (
	"fmt"
	"strings"

	"tableflip.dev/jot/pkg/item"
)

type Glyph struct {
	Symbol  string
	Meaning string
}

const (
	escape     = "\x1b"
	resetCode  = 0
	boldCode   = 1
	strikeCode = 9
)

func Strike(in string) string {
	return fmt.Sprintf("%s[%dm%s%s[%dm", escape, strikeCode, in, escape, resetCode)
}

func Bold(in string) string {
	return fmt.Sprintf("%s[%dm%s%s[%dm", escape, boldCode, in, escape, resetCode)
}

var (
	Note     = Glyph{Symbol: "–", Meaning: "note"}
	Todo     = Glyph{Symbol: "●", Meaning: "todo"}
	Done     = Glyph{Symbol: "✘", Meaning: "todo completed"}
	Favorite = Glyph{Symbol: "★", Meaning: "favorite"}
	Selected = Glyph{Symbol: "◆", Meaning: "selected"}
	Image    = Glyph{Symbol: "▣", Meaning: "has image"}
	Place    = Glyph{Symbol: "⌖", Meaning: "has location"}
)

// DefaultGlyphs lists every mark for legends and help text.
func DefaultGlyphs() []Glyph {
	return []Glyph{Note, Todo, Done, Favorite, Selected, Image, Place}
}

// Bullet is the leading mark for it.
func Bullet(it item.Item) Glyph {
	switch {
	case it.Kind != item.KindTodo:
		return Note
	case it.Completed:
		return Done
	default:
		return Todo
	}
}

// Signifier is the favorite column: a star or a blank of the same width.
func Signifier(it item.Item) string {
	if it.Favorite {
		return Favorite.Symbol
	}
	return " "
}

// Extras lists marks for the item's attachments.
func Extras(it item.Item) string {
	var marks []string
	if it.Image() != "" {
		marks = append(marks, Image.Symbol)
	}
	if it.Extras.Location != nil {
		marks = append(marks, Place.Symbol)
	}
	return strings.Join(marks, " ")
}

// Legend renders DefaultGlyphs one per line.
func Legend() string {
	var b strings.Builder
	for _, g := range DefaultGlyphs() {
		fmt.Fprintf(&b, "%s: %s\n", g.Symbol, g.Meaning)
	}
	return b.String()
}
