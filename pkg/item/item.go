// Package item defines the note and todo records jot keeps in sync with the
// remote document store.
package item

import (
	"fmt"
	"strings"
)

// Kind selects which per-owner collection an Item lives in.
type Kind string

const (
	// KindNote is a free-form note with an optional image.
	KindNote Kind = "note"
	// KindTodo is a checkable todo with optional subtasks and a due date.
	KindTodo Kind = "todo"
)

// AllKinds returns the supported kinds.
func AllKinds() []Kind {
	return []Kind{KindNote, KindTodo}
}

// ParseKind converts user input ("note", "notes", "todo", "todos") to a Kind.
func ParseKind(raw string) (Kind, error) {
	k := strings.ToLower(strings.TrimSpace(raw))
	k = strings.TrimSuffix(k, "s")
	for _, candidate := range AllKinds() {
		if string(candidate) == k {
			return candidate, nil
		}
	}
	return "", &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", raw)}
}

// Plural is the collection name for the kind.
func (k Kind) Plural() string {
	return string(k) + "s"
}

// Item generalizes a Note and a Todo.
type Item struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Favorite  bool      `json:"favorite"`
	Completed bool      `json:"completed,omitempty"`
	Extras    Extras    `json:"extras"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// Extras holds the independently nullable structured fields of an Item.
type Extras struct {
	ImageURL *string    `json:"imageUrl,omitempty"`
	Due      *Timestamp `json:"due,omitempty"`
	Location *Location  `json:"location,omitempty"`
	Subtasks []Subtask  `json:"subtasks,omitempty"`
	Color    string     `json:"color,omitempty"`
}

// Subtask is one checklist line of a todo.
type Subtask struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// Location is an opaque coordinate+address bundle supplied by the geolocation
// service.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Address   string    `json:"address,omitempty"`
	Timestamp Timestamp `json:"timestamp"`
}

// Clone returns a deep copy so callers can never alias another copy's extras.
func (it Item) Clone() Item {
	out := it
	out.Extras = it.Extras.clone()
	return out
}

func (e Extras) clone() Extras {
	out := e
	if e.ImageURL != nil {
		v := *e.ImageURL
		out.ImageURL = &v
	}
	if e.Due != nil {
		v := *e.Due
		out.Due = &v
	}
	if e.Location != nil {
		v := *e.Location
		out.Location = &v
	}
	if e.Subtasks != nil {
		out.Subtasks = append([]Subtask(nil), e.Subtasks...)
	}
	return out
}

// Image returns the image URL or "".
func (it Item) Image() string {
	if it.Extras.ImageURL == nil {
		return ""
	}
	return *it.Extras.ImageURL
}

// Progress reports checked and total subtasks.
func (it Item) Progress() (done, total int) {
	for _, st := range it.Extras.Subtasks {
		if st.Checked {
			done++
		}
	}
	return done, len(it.Extras.Subtasks)
}

// Draft carries the caller-supplied fields for a create call. Identifier,
// owner and timestamps are assigned by the store.
type Draft struct {
	Kind     Kind
	Title    string
	Body     string
	Favorite bool
	Extras   Extras
}

// Normalize trims text fields, drops blank subtasks and applies the default
// todo color.
func (d Draft) Normalize() Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Body = strings.TrimSpace(d.Body)
	d.Extras = d.Extras.clone()
	if len(d.Extras.Subtasks) > 0 {
		kept := d.Extras.Subtasks[:0]
		for _, st := range d.Extras.Subtasks {
			st.Text = strings.TrimSpace(st.Text)
			if st.Text == "" {
				continue
			}
			kept = append(kept, st)
		}
		d.Extras.Subtasks = kept
	}
	if d.Kind == KindTodo && d.Extras.Color == "" {
		d.Extras.Color = DefaultColor()
	}
	return d
}

// Validate rejects drafts that must never reach the store.
func (d Draft) Validate() error {
	if _, err := ParseKind(string(d.Kind)); err != nil {
		return err
	}
	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if d.Kind == KindNote && strings.TrimSpace(d.Body) == "" {
		return &ValidationError{Field: "body", Reason: "a note must have content"}
	}
	if d.Extras.Color != "" {
		if d.Kind != KindTodo {
			return &ValidationError{Field: "color", Reason: "only todos carry a color"}
		}
		if !ValidColor(d.Extras.Color) {
			return &ValidationError{Field: "color", Reason: fmt.Sprintf("%q is not in the palette", d.Extras.Color)}
		}
	}
	return nil
}

// New materializes a draft into an Item for the given owner. The store fills
// in the identifier and timestamps.
func (d Draft) New(owner string) Item {
	d = d.Normalize()
	return Item{
		Owner:    owner,
		Kind:     d.Kind,
		Title:    d.Title,
		Body:     d.Body,
		Favorite: d.Favorite,
		Extras:   d.Extras,
	}
}
