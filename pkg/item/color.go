package item

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette lists the colors a todo card may take.
var Palette = []string{
	"#FFEB3B",
	"#FFCDD2",
	"#C8E6C9",
	"#BBDEFB",
	"#D1C4E9",
}

// DefaultColor is the color given to todos created without one.
func DefaultColor() string {
	return Palette[0]
}

// ParseColor parses a hex color.
func ParseColor(hex string) (colorful.Color, error) {
	return colorful.Hex(strings.TrimSpace(hex))
}

// ValidColor reports whether hex parses and is one of the palette entries.
func ValidColor(hex string) bool {
	c, err := ParseColor(hex)
	if err != nil {
		return false
	}
	for _, p := range Palette {
		pc, err := colorful.Hex(p)
		if err != nil {
			continue
		}
		if strings.EqualFold(pc.Hex(), c.Hex()) {
			return true
		}
	}
	return false
}
