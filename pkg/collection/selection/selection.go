// Package selection implements multi-select for a collection screen as a
// two-state machine: Normal, or Selecting with a non-empty set of ids.
package selection

import (
	"context"
	"errors"
	"sort"
)

// Mode is the selection state.
type Mode int

const (
	// Normal taps navigate and per-item actions are enabled.
	Normal Mode = iota
	// Selecting taps toggle membership; per-item actions are disabled.
	Selecting
)

func (m Mode) String() string {
	if m == Selecting {
		return "selecting"
	}
	return "normal"
}

// TapResult tells the host what a tap did.
type TapResult int

const (
	// TapNavigate means the host should open the item.
	TapNavigate TapResult = iota
	// TapToggled means the tap changed the selection.
	TapToggled
)

// Action is a per-item contextual action.
type Action int

const (
	ActionNavigate Action = iota
	ActionToggleFavorite
	ActionToggleCompleted
	ActionDeleteOne
	ActionEdit
	// ActionToggleSelection is the only action available while Selecting.
	ActionToggleSelection
)

// ErrNotSelecting is returned by bulk actions outside selection mode.
var ErrNotSelecting = errors.New("selection: not selecting")

// BatchDeleter removes a set of ids atomically.
type BatchDeleter interface {
	BatchDelete(ctx context.Context, ids []string) error
}

// BatchDeleterFunc adapts a function to BatchDeleter.
type BatchDeleterFunc func(ctx context.Context, ids []string) error

func (f BatchDeleterFunc) BatchDelete(ctx context.Context, ids []string) error {
	return f(ctx, ids)
}

// Controller holds the selection state. The zero value is Normal with an
// empty set. Controller is not safe for concurrent use.
type Controller struct {
	selected map[string]struct{}
}

// Mode reports the current state. An empty set is always Normal.
func (c *Controller) Mode() Mode {
	if len(c.selected) == 0 {
		return Normal
	}
	return Selecting
}

// LongPress enters Selecting with {id}. While already Selecting it toggles
// id like a tap.
func (c *Controller) LongPress(id string) {
	if c.Mode() == Selecting {
		c.toggle(id)
		return
	}
	c.selected = map[string]struct{}{id: {}}
}

// Tap toggles id while Selecting. In Normal it asks the host to navigate.
func (c *Controller) Tap(id string) TapResult {
	if c.Mode() == Normal {
		return TapNavigate
	}
	c.toggle(id)
	return TapToggled
}

func (c *Controller) toggle(id string) {
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
		return
	}
	c.selected[id] = struct{}{}
}

// Cancel returns to Normal.
func (c *Controller) Cancel() {
	c.selected = nil
}

// Back handles a back-navigation gesture. It reports true when the gesture
// was consumed by leaving selection mode.
func (c *Controller) Back() bool {
	if c.Mode() == Normal {
		return false
	}
	c.Cancel()
	return true
}

// Contains reports whether id is selected.
func (c *Controller) Contains(id string) bool {
	_, ok := c.selected[id]
	return ok
}

// Selected returns the selected ids in sorted order.
func (c *Controller) Selected() []string {
	out := make([]string, 0, len(c.selected))
	for id := range c.selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len is the number of selected ids.
func (c *Controller) Len() int {
	return len(c.selected)
}

// Allows reports whether action is currently enabled.
func (c *Controller) Allows(action Action) bool {
	if c.Mode() == Selecting {
		return action == ActionToggleSelection
	}
	return action != ActionToggleSelection
}

// Prune drops selected ids that no longer exist. Dropping the last one
// returns to Normal.
func (c *Controller) Prune(exists func(id string) bool) {
	for id := range c.selected {
		if !exists(id) {
			delete(c.selected, id)
		}
	}
}

// DeleteSelected removes the whole selection through d. On success the
// deleted ids leave the selection; ids selected while d ran are kept. On
// failure the selection is left untouched.
func (c *Controller) DeleteSelected(ctx context.Context, d BatchDeleter) error {
	if c.Mode() != Selecting {
		return ErrNotSelecting
	}
	ids := c.Selected()
	if err := d.BatchDelete(ctx, ids); err != nil {
		return err
	}
	for _, id := range ids {
		delete(c.selected, id)
	}
	return nil
}
