// Package auth exposes the signed-in user to the hosts. Core packages never
// read it directly; hosts pass the owner in explicitly.
package auth

import "strings"

// Provider reports the current user.
type Provider interface {
	// Owner returns the signed-in user's id, or false when signed out.
	Owner() (string, bool)
	// Verified reports whether the user has verified their account.
	Verified() bool
}

// Static is a Provider with a fixed identity, typically from configuration.
type Static struct {
	ID         string
	IsVerified bool
}

var _ Provider = Static{}

func (s Static) Owner() (string, bool) {
	id := strings.TrimSpace(s.ID)
	return id, id != ""
}

func (s Static) Verified() bool {
	return s.IsVerified
}
