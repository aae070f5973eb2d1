// Package geo resolves the device location attached to new items.
package geo

import (
	"context"
	"errors"
	"time"

	"tableflip.dev/jot/pkg/item"
)

// ErrUnavailable is returned when no location is known.
var ErrUnavailable = errors.New("geo: location unavailable")

// Locator resolves the current location.
type Locator interface {
	Locate(ctx context.Context) (*item.Location, error)
}

// Fixed is a Locator that always reports the same place, e.g. from
// configuration.
type Fixed struct {
	Latitude  float64
	Longitude float64
	Address   string

	// Now stamps the reading; defaults to time.Now.
	Now func() time.Time
}

var _ Locator = Fixed{}

func (f Fixed) Locate(ctx context.Context) (*item.Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Latitude == 0 && f.Longitude == 0 && f.Address == "" {
		return nil, ErrUnavailable
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	return &item.Location{
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
		Address:   f.Address,
		Timestamp: item.At(now().UTC()),
	}, nil
}
