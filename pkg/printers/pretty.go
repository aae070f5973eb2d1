// Package printers renders items for the command line.
package printers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"

	"tableflip.dev/jot/pkg/glyph"
	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/timeutil"
)

type PrettyPrint struct {
	ShowID bool
	// Width bounds wrapped bodies; zero means 80.
	Width int
	// Out defaults to color.Output.
	Out io.Writer
	// Now defaults to time.Now.
	Now func() time.Time
}

const idWidth = 36 // uuid

var (
	spacing = strings.Repeat(" ", idWidth+2)
)

func (pp *PrettyPrint) out() io.Writer {
	if pp.Out == nil {
		return color.Output
	}
	return pp.Out
}

func (pp *PrettyPrint) now() time.Time {
	if pp.Now == nil {
		return time.Now()
	}
	return pp.Now()
}

func (pp *PrettyPrint) width() int {
	if pp.Width <= 0 {
		return 80
	}
	return pp.Width
}

func (pp *PrettyPrint) NewLine() {
	_, _ = fmt.Fprintln(pp.out(), "")
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)

	if pp.ShowID {
		_, _ = t.Fprint(pp.out(), spacing)
	}
	_, _ = t.Fprintln(pp.out(), title)
}

func (pp *PrettyPrint) TitleWithCount(title string, count int) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	if pp.ShowID {
		_, _ = t.Fprint(pp.out(), spacing)
	}
	_, _ = t.Fprint(pp.out(), title)
	_, _ = c.Fprintf(pp.out(), " - %d", count)

	switch count {
	case 1:
		_, _ = c.Fprintln(pp.out(), " item")
	default:
		_, _ = c.Fprintln(pp.out(), " items")
	}
}

// Items prints one row per item followed by a short body preview.
func (pp *PrettyPrint) Items(items ...item.Item) {
	if len(items) == 0 {
		f := color.New(color.Faint, color.Italic)
		if pp.ShowID {
			_, _ = f.Fprint(pp.out(), spacing)
		}
		_, _ = f.Fprint(pp.out(), " none\n\n")
		return
	}

	y := color.New(color.FgHiYellow, color.Italic, color.Faint)
	faint := color.New(color.Faint)

	table := uitable.New()
	table.MaxColWidth = uint(pp.width())
	table.Wrap = true
	for _, it := range items {
		title := it.Title
		if it.Completed {
			title = glyph.Strike(title)
		}
		row := []interface{}{}
		if pp.ShowID {
			row = append(row, y.Sprint(it.ID))
		}
		row = append(row,
			glyph.Signifier(it)+" "+glyph.Bullet(it).Symbol+" "+title,
			pp.annotations(it),
		)
		table.AddRow(row...)
	}
	_, _ = fmt.Fprintln(pp.out(), table)

	// Previews are listed after the table so uitable column widths stay
	// driven by titles.
	for _, it := range items {
		if it.Body == "" {
			continue
		}
		preview := truncate.StringWithTail(firstLine(it.Body), uint(pp.width()-4), "…")
		_, _ = faint.Fprintf(pp.out(), "  %s %s\n", glyph.Bullet(it).Symbol, preview)
	}
	_, _ = fmt.Fprintln(pp.out(), "")
}

// Detail prints every field of it.
func (pp *PrettyPrint) Detail(it item.Item) {
	b := color.New(color.Bold)
	f := color.New(color.Faint)
	w := pp.out()

	if pp.ShowID {
		_, _ = f.Fprintln(w, it.ID)
	}
	_, _ = b.Fprintf(w, "%s %s %s\n", glyph.Signifier(it), glyph.Bullet(it).Symbol, it.Title)
	if it.Body != "" {
		_, _ = fmt.Fprintln(w, renderBody(it.Body, pp.width()))
	}
	for _, st := range it.Extras.Subtasks {
		box := "[ ]"
		if st.Checked {
			box = "[x]"
		}
		_, _ = fmt.Fprintf(w, "    %s %s\n", box, st.Text)
	}
	if ann := pp.annotations(it); ann != "" {
		_, _ = f.Fprintf(w, "    %s\n", ann)
	}
	if img := it.Image(); img != "" {
		_, _ = f.Fprintf(w, "    %s %s\n", glyph.Image.Symbol, img)
	}
	if loc := it.Extras.Location; loc != nil {
		where := loc.Address
		if where == "" {
			where = fmt.Sprintf("%.5f, %.5f", loc.Latitude, loc.Longitude)
		}
		_, _ = f.Fprintf(w, "    %s %s\n", glyph.Place.Symbol, where)
	}
	_, _ = f.Fprintf(w, "    updated %s\n", it.UpdatedAt.Local().Format(time.RFC822))
}

// JSON writes items as an indented JSON array.
func (pp *PrettyPrint) JSON(items ...item.Item) error {
	if items == nil {
		items = []item.Item{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(pp.out(), string(b))
	return err
}

func (pp *PrettyPrint) annotations(it item.Item) string {
	var parts []string
	if it.Kind == item.KindTodo {
		parts = append(parts, Swatch(it.Extras.Color))
		if done, total := it.Progress(); total > 0 {
			parts = append(parts, fmt.Sprintf("%d/%d", done, total))
		}
		if due := it.Extras.Due; due != nil && !it.Completed {
			rel := timeutil.Relative(due.Time, pp.now())
			if due.Before(pp.now()) {
				rel = color.New(color.FgRed).Sprint(rel)
			}
			parts = append(parts, rel)
		}
	}
	if marks := glyph.Extras(it); marks != "" {
		parts = append(parts, marks)
	}
	return strings.Join(parts, "  ")
}

// Swatch renders a small block in the todo color, or nothing when colors are
// disabled or hex does not parse.
func Swatch(hex string) string {
	if color.NoColor {
		return ""
	}
	c, err := item.ParseColor(hex)
	if err != nil {
		return ""
	}
	p := termenv.ColorProfile()
	return termenv.String("■").Foreground(p.Color(c.Hex())).String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
