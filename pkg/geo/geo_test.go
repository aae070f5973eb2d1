package geo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFixedLocate(t *testing.T) {
	if _, err := (Fixed{}).Locate(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	loc, err := Fixed{Latitude: 52.52, Longitude: 13.40, Address: "Berlin", Now: func() time.Time { return at }}.Locate(context.Background())
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if loc.Address != "Berlin" || !loc.Timestamp.Equal(at) {
		t.Fatalf("unexpected location %+v", loc)
	}
}
