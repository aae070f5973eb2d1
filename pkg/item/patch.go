package item

import (
	"fmt"
	"strings"
)

// Patch is a partial update. Nil fields are left untouched; the Clear* flags
// null out the matching extra.
type Patch struct {
	Title     *string
	Body      *string
	Favorite  *bool
	Completed *bool

	ImageURL   *string
	ClearImage bool

	Due      *Timestamp
	ClearDue bool

	Location      *Location
	ClearLocation bool

	Subtasks    []Subtask
	SetSubtasks bool

	Color *string
}

// IsEmpty reports whether applying the patch would change nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Body == nil && p.Favorite == nil && p.Completed == nil &&
		p.ImageURL == nil && !p.ClearImage &&
		p.Due == nil && !p.ClearDue &&
		p.Location == nil && !p.ClearLocation &&
		!p.SetSubtasks && p.Color == nil
}

// Validate checks the patch against the kind of item it targets.
func (p Patch) Validate(kind Kind) error {
	if p.IsEmpty() {
		return &ValidationError{Field: "patch", Reason: "no fields to update"}
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if p.Body != nil && kind == KindNote && strings.TrimSpace(*p.Body) == "" {
		return &ValidationError{Field: "body", Reason: "a note must have content"}
	}
	if p.Completed != nil && kind != KindTodo {
		return &ValidationError{Field: "completed", Reason: "only todos can be completed"}
	}
	if p.Color != nil {
		if kind != KindTodo {
			return &ValidationError{Field: "color", Reason: "only todos carry a color"}
		}
		if !ValidColor(*p.Color) {
			return &ValidationError{Field: "color", Reason: fmt.Sprintf("%q is not in the palette", *p.Color)}
		}
	}
	return nil
}

// Apply returns a copy of it with the patch applied. Timestamps are left to
// the store.
func (p Patch) Apply(it Item) Item {
	out := it.Clone()
	if p.Title != nil {
		out.Title = strings.TrimSpace(*p.Title)
	}
	if p.Body != nil {
		out.Body = strings.TrimSpace(*p.Body)
	}
	if p.Favorite != nil {
		out.Favorite = *p.Favorite
	}
	if p.Completed != nil {
		out.Completed = *p.Completed
	}
	switch {
	case p.ClearImage:
		out.Extras.ImageURL = nil
	case p.ImageURL != nil:
		v := *p.ImageURL
		out.Extras.ImageURL = &v
	}
	switch {
	case p.ClearDue:
		out.Extras.Due = nil
	case p.Due != nil:
		v := *p.Due
		out.Extras.Due = &v
	}
	switch {
	case p.ClearLocation:
		out.Extras.Location = nil
	case p.Location != nil:
		v := *p.Location
		out.Extras.Location = &v
	}
	if p.SetSubtasks {
		out.Extras.Subtasks = append([]Subtask(nil), p.Subtasks...)
	}
	if p.Color != nil {
		out.Extras.Color = *p.Color
	}
	return out
}
