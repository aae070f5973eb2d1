// Package optimistic applies item edits locally before the remote write
// completes and rolls them back when it fails.
package optimistic

import "tableflip.dev/jot/pkg/item"

// Field names the part of an item a mutation changes. Mutations on the same
// item and field are ordered against each other.
type Field string

const (
	FieldFavorite  Field = "favorite"
	FieldCompleted Field = "completed"
	// FieldExistence is changed by removals.
	FieldExistence Field = "existence"
)

// Transform maps the current local value of an item to its next value. A nil
// input means the item is not present locally; a nil result removes it.
type Transform func(cur *item.Item) *item.Item

// Mutation is an explicit forward/inverse pair for one optimistic edit.
// Both transforms write absolute values so they can be replayed.
type Mutation struct {
	ID     string
	Field  Field
	Apply  Transform
	Revert Transform
}

// ToggleFavorite flips the favorite flag of base.
func ToggleFavorite(base item.Item) Mutation {
	return Mutation{
		ID:     base.ID,
		Field:  FieldFavorite,
		Apply:  setFavorite(!base.Favorite),
		Revert: setFavorite(base.Favorite),
	}
}

// ToggleCompleted flips the completed flag of base.
func ToggleCompleted(base item.Item) Mutation {
	return Mutation{
		ID:     base.ID,
		Field:  FieldCompleted,
		Apply:  setCompleted(!base.Completed),
		Revert: setCompleted(base.Completed),
	}
}

// Remove deletes base locally; reverting restores it.
func Remove(base item.Item) Mutation {
	saved := base.Clone()
	return Mutation{
		ID:    base.ID,
		Field: FieldExistence,
		Apply: func(*item.Item) *item.Item {
			return nil
		},
		Revert: func(cur *item.Item) *item.Item {
			if cur != nil {
				return cur
			}
			restored := saved.Clone()
			return &restored
		},
	}
}

// restore returns a transform that puts this field back to its value in
// from.
func (f Field) restore(from *item.Item) Transform {
	switch {
	case f == FieldFavorite && from != nil:
		return setFavorite(from.Favorite)
	case f == FieldCompleted && from != nil:
		return setCompleted(from.Completed)
	case f == FieldExistence && from != nil:
		saved := from.Clone()
		return func(cur *item.Item) *item.Item {
			if cur != nil {
				return cur
			}
			restored := saved.Clone()
			return &restored
		}
	default:
		return func(*item.Item) *item.Item {
			return nil
		}
	}
}

// equal reports whether a and b agree on this field.
func (f Field) equal(a, b *item.Item) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch f {
	case FieldFavorite:
		return a.Favorite == b.Favorite
	case FieldCompleted:
		return a.Completed == b.Completed
	default:
		return true
	}
}

func setFavorite(v bool) Transform {
	return func(cur *item.Item) *item.Item {
		if cur == nil {
			return nil
		}
		next := cur.Clone()
		next.Favorite = v
		return &next
	}
}

func setCompleted(v bool) Transform {
	return func(cur *item.Item) *item.Item {
		if cur == nil {
			return nil
		}
		next := cur.Clone()
		next.Completed = v
		return &next
	}
}
