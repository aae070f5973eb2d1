// Package remote is the client for an owner's item collection in the
// document store. It streams ordered snapshots and issues writes, mapping
// backend failures onto the item error classes.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"tableflip.dev/jot/pkg/blob"
	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/logging"
	"tableflip.dev/jot/pkg/metrics"
	"tableflip.dev/jot/pkg/store"
)

// Client reads and writes one kind of collection.
type Client struct {
	kind    item.Kind
	store   store.Persistence
	blobs   blob.Store
	log     *zap.Logger
	metrics *metrics.Metrics

	// acked counts writes the store has acknowledged. Snapshots carry the
	// value observed before they were read.
	acked atomic.Uint64
}

// Option customises a Client.
type Option func(*Client)

// WithLogger sets the logger used for background failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.log = logging.OrNop(l)
	}
}

// WithBlobs enables image cleanup after deletes.
func WithBlobs(b blob.Store) Option {
	return func(c *Client) {
		c.blobs = b
	}
}

// WithMetrics records snapshot and write counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a Client for kind backed by st.
func New(kind item.Kind, st store.Persistence, opts ...Option) *Client {
	c := &Client{
		kind:  kind,
		store: st,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("kind", string(kind)))
	return c
}

// Kind reports the collection kind this client serves.
func (c *Client) Kind() item.Kind {
	return c.kind
}

// Version returns the number of writes acknowledged so far. A snapshot whose
// Version is at least v reflects every write acknowledged at v.
func (c *Client) Version() uint64 {
	return c.acked.Load()
}

// Create validates d and inserts it for owner. Identifier and timestamps come
// from the store.
func (c *Client) Create(ctx context.Context, owner string, d item.Draft) (item.Item, error) {
	if owner == "" {
		return item.Item{}, &item.ValidationError{Field: "owner", Reason: "must not be empty"}
	}
	if d.Kind == "" {
		d.Kind = c.kind
	}
	d = d.Normalize()
	if d.Kind != c.kind {
		return item.Item{}, &item.ValidationError{Field: "kind", Reason: fmt.Sprintf("client serves %s, got %s", c.kind, d.Kind)}
	}
	if err := d.Validate(); err != nil {
		return item.Item{}, err
	}
	created, err := c.store.Insert(ctx, d.New(owner))
	if err = c.finish("create", err); err != nil {
		return item.Item{}, err
	}
	return created, nil
}

// Update applies patch to the owner's item id.
func (c *Client) Update(ctx context.Context, owner, id string, patch item.Patch) (item.Item, error) {
	if err := patch.Validate(c.kind); err != nil {
		return item.Item{}, err
	}
	updated, err := c.store.Update(ctx, owner, c.kind, id, patch)
	if err = c.finish("update", err); err != nil {
		return item.Item{}, err
	}
	return updated, nil
}

// Get fetches a single item, enforcing that owner holds it.
func (c *Client) Get(ctx context.Context, owner, id string) (item.Item, error) {
	it, err := c.store.Get(ctx, c.kind, id)
	if err != nil {
		return item.Item{}, classify(err)
	}
	if it.Owner != owner {
		return item.Item{}, fmt.Errorf("%w: %s", item.ErrOwnership, id)
	}
	return it, nil
}

// Delete removes the owner's item id and cleans up its image.
func (c *Client) Delete(ctx context.Context, owner, id string) error {
	removed, err := c.store.Delete(ctx, owner, c.kind, id)
	if err = c.finish("delete", err); err != nil {
		return err
	}
	c.cleanup(ctx, removed)
	return nil
}

// BatchDelete removes every id atomically: either all are gone or none are.
func (c *Client) BatchDelete(ctx context.Context, owner string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	removed, err := c.store.BatchDelete(ctx, owner, c.kind, ids)
	if err = c.finish("batch_delete", err); err != nil {
		return err
	}
	c.cleanup(ctx, removed...)
	return nil
}

// finish acknowledges a successful write and classifies a failed one.
func (c *Client) finish(op string, err error) error {
	if err == nil {
		c.acked.Add(1)
		c.metrics.Write(string(c.kind), op, "ok")
		return nil
	}
	err = classify(err)
	c.metrics.Write(string(c.kind), op, item.Classify(err).String())
	return err
}

// cleanup deletes images of removed items. Failures are logged only.
func (c *Client) cleanup(ctx context.Context, removed ...item.Item) {
	if c.blobs == nil {
		return
	}
	for _, it := range removed {
		u := it.Image()
		if u == "" {
			continue
		}
		if err := c.blobs.Delete(ctx, u); err != nil {
			c.log.Warn("image cleanup failed",
				zap.String("id", it.ID),
				zap.String("url", u),
				zap.Error(err))
		}
	}
}

// classify keeps ownership, not-found, validation and cancellation errors
// as they are and marks everything else transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return item.Transient(err)
}
