package store

import "tableflip.dev/jot/pkg/item"

// EventType describes the nature of a store change notification.
type EventType int

const (
	// EventCollectionChanged indicates the owner's collection of Kind changed
	// (items added, edited, or removed).
	EventCollectionChanged EventType = iota

	// EventCollectionsInvalidated signals that the change could not be
	// attributed to a single collection and every subscriber should refresh.
	EventCollectionsInvalidated
)

// Event is emitted by Persistence.Watch when underlying storage changes.
type Event struct {
	Type  EventType `json:"type"`
	Owner string    `json:"owner,omitempty"`
	Kind  item.Kind `json:"kind,omitempty"`
}

// Affects reports whether a subscriber for owner/kind should refresh.
func (e Event) Affects(owner string, kind item.Kind) bool {
	if e.Type == EventCollectionsInvalidated {
		return true
	}
	return e.Owner == owner && e.Kind == kind
}
