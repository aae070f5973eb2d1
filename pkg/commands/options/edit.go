package options

import (
	"time"

	"github.com/spf13/cobra"

	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/timeutil"
)

// EditOptions
type EditOptions struct {
	Title     string
	Body      string
	Due       string
	ClearDue  bool
	Color     string
	NoImage   bool
	NoPlace   bool
	Items     []string
	ClearList bool

	flags interface{ Changed(string) bool }
}

func AddEditArgs(cmd *cobra.Command, o *EditOptions, kind item.Kind) {
	o.flags = cmd.Flags()
	cmd.Flags().StringVarP(&o.Title, "title", "t", "",
		"New title.")
	cmd.Flags().StringVarP(&o.Body, "body", "b", "",
		"New body text.")
	cmd.Flags().BoolVar(&o.NoPlace, "no-location", false,
		"Remove the attached location.")
	switch kind {
	case item.KindNote:
		cmd.Flags().BoolVar(&o.NoImage, "no-image", false,
			"Remove the attached image.")
	case item.KindTodo:
		cmd.Flags().StringVar(&o.Due, "due", "",
			"New due date.")
		cmd.Flags().BoolVar(&o.ClearDue, "no-due", false,
			"Remove the due date.")
		cmd.Flags().StringVar(&o.Color, "color", "",
			"New card color.")
		cmd.Flags().StringArrayVar(&o.Items, "item", nil,
			"Replace the checklist; repeatable.")
		cmd.Flags().BoolVar(&o.ClearList, "no-items", false,
			"Remove every checklist item.")
	}
}

func (o *EditOptions) changed(name string) bool {
	return o.flags != nil && o.flags.Changed(name)
}

// Patch converts the flags that were set into a partial update.
func (o *EditOptions) Patch(now time.Time) (item.Patch, error) {
	var p item.Patch
	if o.changed("title") {
		p.Title = &o.Title
	}
	if o.changed("body") {
		p.Body = &o.Body
	}
	if o.changed("color") {
		p.Color = &o.Color
	}
	if o.changed("due") {
		due, err := timeutil.ParseDue(o.Due, now)
		if err != nil {
			return item.Patch{}, &item.ValidationError{Field: "due", Reason: err.Error()}
		}
		ts := item.At(due)
		p.Due = &ts
	}
	p.ClearDue = o.ClearDue
	p.ClearImage = o.NoImage
	p.ClearLocation = o.NoPlace
	if o.changed("item") || o.ClearList {
		p.SetSubtasks = true
		for _, text := range o.Items {
			p.Subtasks = append(p.Subtasks, item.Subtask{Text: text})
		}
	}
	return p, nil
}
