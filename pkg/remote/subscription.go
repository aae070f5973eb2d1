package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/store"
)

// ErrSubscriptionClosed ends a subscription whose change feed went away.
var ErrSubscriptionClosed = errors.New("remote: change feed closed")

// Snapshot is the full, ordered collection at a point in time. A snapshot
// with Err set is the last one on its subscription.
type Snapshot struct {
	Items   []item.Item
	Version uint64
	Err     error
}

// Subscription delivers snapshots for one owner until Unsubscribe is called
// or an error ends it.
type Subscription struct {
	c      chan Snapshot
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// C returns the snapshot stream. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Snapshot {
	return s.c
}

// Unsubscribe stops delivery. It is safe to call more than once, and no
// snapshot is delivered after it returns.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		for range s.c {
		}
	})
}

// Subscribe starts streaming the owner's collection. The first snapshot is
// the current state; a new full snapshot follows every relevant change.
// Slow consumers only ever see the latest snapshot.
func (c *Client) Subscribe(ctx context.Context, owner string) (*Subscription, error) {
	if owner == "" {
		return nil, &item.ValidationError{Field: "owner", Reason: "must not be empty"}
	}
	ctx, cancel := context.WithCancel(ctx)
	events, err := c.store.Watch(ctx)
	if err != nil {
		cancel()
		return nil, classify(fmt.Errorf("remote: watch: %w", err))
	}

	s := &Subscription{
		c:      make(chan Snapshot, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	log := c.log.With(zap.String("owner", owner))

	go func() {
		defer close(s.done)
		defer close(s.c)

		if !s.publish(ctx, c.read(ctx, owner)) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					if ctx.Err() != nil {
						return
					}
					log.Warn("change feed closed")
					c.metrics.SubscriptionError(string(c.kind))
					s.publish(ctx, Snapshot{Err: item.Transient(ErrSubscriptionClosed), Version: c.Version()})
					return
				}
				if !ev.Affects(owner, c.kind) {
					continue
				}
				if !s.publish(ctx, c.read(ctx, owner)) {
					return
				}
			}
		}
	}()
	return s, nil
}

// read takes a snapshot. The version is sampled first so every write it
// counts is already visible to List.
func (c *Client) read(ctx context.Context, owner string) Snapshot {
	version := c.Version()
	items, err := c.store.List(ctx, owner, c.kind)
	if err != nil {
		if ctx.Err() != nil {
			return Snapshot{Err: ctx.Err(), Version: version}
		}
		c.log.Warn("snapshot failed", zap.String("owner", owner), zap.Error(err))
		c.metrics.SubscriptionError(string(c.kind))
		return Snapshot{Err: classify(err), Version: version}
	}
	store.SortItems(items)
	c.metrics.Snapshot(string(c.kind))
	return Snapshot{Items: items, Version: version}
}

// publish hands snap to the consumer, replacing an undelivered older
// snapshot. It reports false once the subscription should stop.
func (s *Subscription) publish(ctx context.Context, snap Snapshot) bool {
	if ctx.Err() != nil {
		return false
	}
	for {
		select {
		case s.c <- snap:
			return snap.Err == nil
		case <-ctx.Done():
			return false
		default:
			select {
			case <-s.c:
			default:
			}
		}
	}
}
