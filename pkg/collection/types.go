// Package collection holds the shared vocabulary for displaying an owner's
// note or todo collection.
package collection

import (
	"fmt"
	"strings"
)

// Sort identifies how a collection is ordered for display.
type Sort string

const (
	// SortNewest orders by updatedAt, most recent first. This is the order
	// snapshots arrive in.
	SortNewest Sort = "newest"
	// SortOldest orders by updatedAt, least recent first.
	SortOldest Sort = "oldest"
	// SortAZ orders by title ascending.
	SortAZ Sort = "az"
	// SortZA orders by title descending.
	SortZA Sort = "za"
)

// AllSorts returns the list of supported sort options.
func AllSorts() []Sort {
	return []Sort{
		SortNewest,
		SortOldest,
		SortAZ,
		SortZA,
	}
}

// ParseSort converts a string to a Sort or returns an error for unknown values.
func ParseSort(raw string) (Sort, error) {
	s := Sort(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case "":
		return SortNewest, nil
	case "a-z":
		return SortAZ, nil
	case "z-a":
		return SortZA, nil
	}
	for _, candidate := range AllSorts() {
		if candidate == s {
			return candidate, nil
		}
	}
	return SortNewest, fmt.Errorf("collection: unknown sort %q", raw)
}

// MustSort parses the input and panics on error. Intended for tests/config.
func MustSort(raw string) Sort {
	s, err := ParseSort(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Next cycles through AllSorts, wrapping around.
func (s Sort) Next() Sort {
	all := AllSorts()
	for i, candidate := range all {
		if candidate == s {
			return all[(i+1)%len(all)]
		}
	}
	return SortNewest
}

// Label is the short human-readable name of the sort.
func (s Sort) Label() string {
	switch s {
	case SortOldest:
		return "oldest"
	case SortAZ:
		return "A-Z"
	case SortZA:
		return "Z-A"
	default:
		return "newest"
	}
}
