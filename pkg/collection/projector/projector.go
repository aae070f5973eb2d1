// Package projector derives the displayed list from a raw collection and the
// screen's view controls. It is a pure function with no hidden state.
package projector

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"tableflip.dev/jot/pkg/collection"
	"tableflip.dev/jot/pkg/item"
)

// Options are the view controls.
type Options struct {
	Search       string
	Sort         collection.Sort
	FavoriteOnly bool
}

// Option customises projection.
type Option func(*config)

type config struct {
	lang language.Tag
}

// WithLanguage sets the locale used to order titles.
func WithLanguage(tag language.Tag) Option {
	return func(c *config) {
		c.lang = tag
	}
}

// Project filters and orders items for display. Favorite filtering happens
// before search. Items that tie on the sort key keep their input order. The
// input slice is never modified.
func Project(items []item.Item, opts Options, o ...Option) []item.Item {
	cfg := config{lang: language.Und}
	for _, opt := range o {
		opt(&cfg)
	}

	// Whitespace-only text does not filter; anything else matches verbatim.
	fold := cases.Fold()
	needle := fold.String(opts.Search)
	searching := strings.TrimSpace(opts.Search) != ""

	out := make([]item.Item, 0, len(items))
	for _, it := range items {
		if opts.FavoriteOnly && !it.Favorite {
			continue
		}
		if searching && !matches(fold, it, needle) {
			continue
		}
		out = append(out, it)
	}

	switch opts.Sort {
	case collection.SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt.Time)
		})
	case collection.SortAZ, collection.SortZA:
		// Collators are not safe for concurrent use.
		col := collate.New(cfg.lang)
		desc := opts.Sort == collection.SortZA
		sort.SliceStable(out, func(i, j int) bool {
			c := col.CompareString(out[i].Title, out[j].Title)
			if desc {
				return c > 0
			}
			return c < 0
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].UpdatedAt.After(out[j].UpdatedAt.Time)
		})
	}
	return out
}

func matches(fold cases.Caser, it item.Item, needle string) bool {
	return strings.Contains(fold.String(it.Title), needle) ||
		strings.Contains(fold.String(it.Body), needle)
}
