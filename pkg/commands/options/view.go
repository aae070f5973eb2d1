// Package options defines shared flag helpers for CLI commands.
package options

import (
	"github.com/spf13/cobra"

	"tableflip.dev/jot/pkg/collection"
	"tableflip.dev/jot/pkg/collection/projector"
)

// ViewOptions captures the list view controls.
type ViewOptions struct {
	Search    string
	Sort      string
	Favorites bool
}

// AddViewArgs wires search/sort/filter flags on the provided command.
func AddViewArgs(cmd *cobra.Command, o *ViewOptions) {
	cmd.Flags().StringVarP(&o.Search, "search", "s", "",
		"Only show items whose title or body contains the text.")
	cmd.Flags().StringVar(&o.Sort, "sort", string(collection.SortNewest),
		"Sort order: newest, oldest, az or za.")
	cmd.Flags().BoolVar(&o.Favorites, "favorites", false,
		"Only show favorites.")
	_ = cmd.RegisterFlagCompletionFunc("sort", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		out := make([]string, 0, len(collection.AllSorts()))
		for _, s := range collection.AllSorts() {
			out = append(out, string(s))
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
}

// Projection converts the flags into projector options.
func (o *ViewOptions) Projection() (projector.Options, error) {
	s, err := collection.ParseSort(o.Sort)
	if err != nil {
		return projector.Options{}, err
	}
	return projector.Options{Search: o.Search, Sort: s, FavoriteOnly: o.Favorites}, nil
}
