package options

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/timeutil"
)

// AddOptions
type AddOptions struct {
	Title    string
	Body     string
	Favorite bool
	Image    string
	Here     bool
	Due      string
	Color    string
	Items    []string
}

func AddAddArgs(cmd *cobra.Command, o *AddOptions, kind item.Kind) {
	cmd.Flags().StringVarP(&o.Body, "body", "b", "",
		"Body text. Notes must have one.")
	cmd.Flags().BoolVarP(&o.Favorite, "favorite", "f", false,
		"Mark as favorite.")
	cmd.Flags().BoolVar(&o.Here, "here", false,
		"Attach the configured location.")
	switch kind {
	case item.KindNote:
		cmd.Flags().StringVar(&o.Image, "image", "",
			"Attach an image file.")
	case item.KindTodo:
		cmd.Flags().StringVar(&o.Due, "due", "",
			`Due date, example: --due=3d, --due=tomorrow, --due="2024-05-01".`)
		cmd.Flags().StringVar(&o.Color, "color", "",
			"Card color, one of "+strings.Join(item.Palette, " ")+".")
		cmd.Flags().StringArrayVar(&o.Items, "item", nil,
			"Add a checklist item; repeatable.")
	}
}

// Draft builds the create payload. Attachments are resolved by the runner.
func (o *AddOptions) Draft(kind item.Kind, now time.Time) (item.Draft, error) {
	d := item.Draft{
		Kind:     kind,
		Title:    o.Title,
		Body:     o.Body,
		Favorite: o.Favorite,
		Extras:   item.Extras{Color: o.Color},
	}
	if o.Due != "" {
		due, err := timeutil.ParseDue(o.Due, now)
		if err != nil {
			return item.Draft{}, &item.ValidationError{Field: "due", Reason: err.Error()}
		}
		ts := item.At(due)
		d.Extras.Due = &ts
	}
	for _, text := range o.Items {
		d.Extras.Subtasks = append(d.Extras.Subtasks, item.Subtask{Text: text})
	}
	return d, nil
}
