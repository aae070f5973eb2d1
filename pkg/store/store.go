// Package store implements the remote document store that jot synchronizes
// note and todo collections against. The store is the source of truth: it
// assigns identifiers and timestamps and enforces ownership on every write.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/logging"
)

// Persistence defines the document store contract for owner-scoped item
// collections.
type Persistence interface {
	// List returns the owner's collection of the given kind ordered by
	// updatedAt descending.
	List(ctx context.Context, owner string, kind item.Kind) ([]item.Item, error)
	Get(ctx context.Context, kind item.Kind, id string) (item.Item, error)
	// Insert stores a new item, assigning its identifier and timestamps.
	Insert(ctx context.Context, it item.Item) (item.Item, error)
	Update(ctx context.Context, owner string, kind item.Kind, id string, patch item.Patch) (item.Item, error)
	// Delete removes one item and returns what was removed.
	Delete(ctx context.Context, owner string, kind item.Kind, id string) (item.Item, error)
	// BatchDelete removes all of ids or none of them.
	BatchDelete(ctx context.Context, owner string, kind item.Kind, ids []string) ([]item.Item, error)
	Watch(ctx context.Context) (<-chan Event, error)
	Close() error
}

// Backend names a Persistence implementation.
type Backend string

const (
	BackendDiskv  Backend = "diskv"
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
)

// Config is the subset of configuration the store needs.
type Config interface {
	BasePath() string
	Backend() Backend
	RedisAddr() string
}

// Option customises a Persistence.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
	log   *zap.Logger
}

// WithLogger sets the logger for problems that do not fail a call.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.log = logging.OrNop(l)
	}
}

// WithClock overrides the server clock used for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDs overrides identifier generation.
func WithIDs(newID func() string) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:   time.Now,
		newID: uuid.NewString,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Load creates the Persistence selected by cfg.
func Load(cfg Config, opts ...Option) (Persistence, error) {
	if cfg == nil {
		return nil, errors.New("store: config required")
	}
	switch cfg.Backend() {
	case BackendDiskv, "":
		return NewDiskv(cfg.BasePath(), opts...)
	case BackendRedis:
		return NewRedis(cfg.RedisAddr(), opts...)
	case BackendMemory:
		return NewMemory(opts...), nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend())
	}
}

// created fills in the server-assigned fields of a new document.
func (o options) created(it item.Item) (item.Item, error) {
	if strings.TrimSpace(it.Owner) == "" {
		return item.Item{}, &item.ValidationError{Field: "owner", Reason: "must not be empty"}
	}
	if it.Kind != item.KindNote && it.Kind != item.KindTodo {
		return item.Item{}, &item.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", it.Kind)}
	}
	out := it.Clone()
	out.ID = o.newID()
	now := item.At(o.now().UTC())
	out.CreatedAt = now
	out.UpdatedAt = now
	return out, nil
}

// updated applies patch to prev and refreshes updatedAt, never moving it
// backwards.
func (o options) updated(prev item.Item, patch item.Patch) item.Item {
	out := patch.Apply(prev)
	out.ID = prev.ID
	out.Owner = prev.Owner
	out.Kind = prev.Kind
	out.CreatedAt = prev.CreatedAt
	now := o.now().UTC()
	if now.Before(prev.UpdatedAt.Time) {
		now = prev.UpdatedAt.Time
	}
	out.UpdatedAt = item.At(now)
	return out
}

// checkOwner returns ErrOwnership when it is not owned by owner.
func checkOwner(it item.Item, owner string) error {
	if it.Owner != owner {
		return fmt.Errorf("%w: %s", item.ErrOwnership, it.ID)
	}
	return nil
}

func notFound(kind item.Kind, id string) error {
	return fmt.Errorf("%w: %s %s", item.ErrNotFound, kind, id)
}

// SortItems orders items by updatedAt descending, falling back to the
// identifier so the order is total.
func SortItems(items []item.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		left := items[i].UpdatedAt.Time
		right := items[j].UpdatedAt.Time
		if left.Equal(right) {
			return items[i].ID < items[j].ID
		}
		return left.After(right)
	})
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
