package printers

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/jot/pkg/glyph"
	"tableflip.dev/jot/pkg/item"
)

const width = len("11 12 13 14 15 16 17") // an example week

// Agenda prints the month containing on as a grid, with days that have open
// todos due in bold, followed by the todos of that month day by day and the
// ones without a due date.
func (pp *PrettyPrint) Agenda(on time.Time, todos ...item.Item) {
	then := time.Date(on.Year(), on.Month(), 1, 1, 0, 0, 0, on.Location())
	count := make([]int, DaysIn(then))
	for _, it := range todos {
		if it.Completed || it.Extras.Due == nil {
			continue
		}
		due := it.Extras.Due.In(then.Location())
		if due.Year() == then.Year() && due.Month() == then.Month() {
			count[due.Day()-1]++
		}
	}
	pp.PrintMonthCount(then, count)
	pp.PrintMonthLong(then, todos...)
}

func (pp *PrettyPrint) PrintMonthCount(then time.Time, count []int) {
	w := pp.out()
	d := StartDay(then)

	tf := color.New(color.FgWhite, color.Italic)

	m := then.Month().String()
	mid := (width - len(m)) / 2
	_, _ = tf.Fprintf(w, "%s%s%s\n", strings.Repeat(" ", mid), m, strings.Repeat(" ", width-mid-len(m)))

	days := DaysIn(then)

	// Pad out the start of the month.
	for i := time.Sunday; i < d; i++ {
		_, _ = fmt.Fprint(w, "   ")
	}

	l1 := color.New(color.Faint, color.FgWhite)
	l2 := color.New(color.Bold, color.FgHiWhite)

	for i := 0; i < days; i++ {
		if i < len(count) && count[i] > 0 {
			_, _ = l2.Fprintf(w, "%2d ", i+1)
		} else {
			_, _ = l1.Fprintf(w, "%2d ", i+1)
		}

		d++
		if d > time.Saturday {
			d = time.Sunday
			_, _ = fmt.Fprint(w, "\n")
		}
	}
	_, _ = fmt.Fprint(w, "\n\n")
}

func (pp *PrettyPrint) PrintMonthLong(then time.Time, todos ...item.Item) {
	w := pp.out()
	p := color.New()
	b := color.New(color.Bold)
	i := color.New(color.Italic)
	s := color.New(color.Underline)
	bs := color.New(color.Underline, color.Bold)

	now := pp.now().In(then.Location())
	isToday := func(day int) bool {
		return now.Year() == then.Year() && now.Month() == then.Month() && now.Day() == day
	}

	d := StartDay(then)
	var open []item.Item
	for _, it := range todos {
		if it.Extras.Due == nil {
			open = append(open, it)
		}
	}
	for day := 1; day <= DaysIn(then); day++ {
		printer := p
		switch {
		case d == time.Sunday && isToday(day):
			printer = bs
		case d == time.Sunday:
			printer = s
		case isToday(day):
			printer = b
		}
		_, _ = printer.Fprintf(w, "%2d %s", day, d.String()[0:1])

		found := false
		for _, it := range todos {
			if it.Extras.Due == nil {
				continue
			}
			due := it.Extras.Due.In(then.Location())
			if due.Year() != then.Year() || due.Month() != then.Month() || due.Day() != day {
				continue
			}
			if found {
				_, _ = p.Fprint(w, "      ")
			} else {
				_, _ = p.Fprint(w, "  ")
			}
			found = true
			_, _ = p.Fprintf(w, "%s %s %s\n", glyph.Signifier(it), glyph.Bullet(it).Symbol, it.Title)
		}
		d++
		if d > time.Saturday {
			d = time.Sunday
		}
		if !found {
			_, _ = p.Fprint(w, "\n")
		}
	}

	if len(open) > 0 {
		_, _ = i.Fprintf(w, "\nNo due date\n")
		for _, it := range open {
			_, _ = p.Fprintf(w, "%s %s %s\n", glyph.Signifier(it), glyph.Bullet(it).Symbol, it.Title)
		}
	}
}

func NextMonth(then time.Time) time.Time {
	return time.Date(then.Year(), then.Month()+1, 1, 1, 0, 0, 0, then.Location())
}

func DaysIn(then time.Time) int {
	return time.Date(then.Year(), then.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func StartDay(then time.Time) time.Weekday {
	return time.Date(then.Year(), then.Month(), 1, 1, 0, 0, 0, time.UTC).Weekday()
}
