package viewmodel

import "tableflip.dev/jot/pkg/item"

// localState adapts the view-model's raw items to optimistic.State. The
// slice is replaced, never edited in place, so readers holding an older
// slice keep a consistent view.
type localState struct {
	vm *ViewModel
}

func (s localState) Get(id string) (item.Item, bool) {
	i, ok := s.vm.findLocked(id)
	if !ok {
		return item.Item{}, false
	}
	return s.vm.items[i].Clone(), true
}

func (s localState) Put(it item.Item) {
	items := s.vm.items
	next := make([]item.Item, 0, len(items)+1)
	if i, ok := s.vm.findLocked(it.ID); ok {
		next = append(next, items[:i]...)
		next = append(next, it)
		next = append(next, items[i+1:]...)
		s.vm.items = next
		return
	}
	// Restored items go back to their updatedAt position.
	inserted := false
	for _, cur := range items {
		if !inserted && it.UpdatedAt.After(cur.UpdatedAt.Time) {
			next = append(next, it)
			inserted = true
		}
		next = append(next, cur)
	}
	if !inserted {
		next = append(next, it)
	}
	s.vm.items = next
}

func (s localState) Remove(id string) {
	i, ok := s.vm.findLocked(id)
	if !ok {
		return
	}
	next := make([]item.Item, 0, len(s.vm.items)-1)
	next = append(next, s.vm.items[:i]...)
	next = append(next, s.vm.items[i+1:]...)
	s.vm.items = next
}
