package optimistic

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/logging"
	"tableflip.dev/jot/pkg/metrics"
)

// State is the local collection the mutator edits. Implementations are not
// required to be safe for concurrent use; the mutator holds the shared lock
// around every call.
type State interface {
	Get(id string) (item.Item, bool)
	Put(it item.Item)
	Remove(id string)
}

// Call performs the remote write for a mutation. next is the value the
// mutation produced locally, nil for removals.
type Call func(ctx context.Context, next *item.Item) error

type entryState int

const (
	entryPending entryState = iota
	entryConfirmed
)

type entry struct {
	apply Transform
	state entryState
	// ack is the client version at which the write was acknowledged.
	ack uint64
	// done is closed once the entry's write has resolved.
	done chan struct{}
	// after is the entry queued before this one. It is cleared once every
	// earlier write has resolved.
	after *entry
}

type chainKey struct {
	id    string
	field Field
}

// chain orders the mutations of one item field. Only the oldest unresolved
// entry has a write in flight.
type chain struct {
	entries []*entry
	// confirmed restores the last value the backend acknowledged.
	confirmed Transform
}

// Mutator tracks in-flight mutations per item and field.
type Mutator struct {
	mu      sync.Locker
	state   State
	version func() uint64
	notify  func()
	log     *zap.Logger
	metrics *metrics.Metrics
	kind    string

	chains map[chainKey]*chain
}

// Option customises a Mutator.
type Option func(*Mutator)

// WithNotify registers fn to run, under the lock, whenever local state
// changes.
func WithNotify(fn func()) Option {
	return func(m *Mutator) {
		m.notify = fn
	}
}

// WithLogger sets the logger used for rollbacks.
func WithLogger(l *zap.Logger) Option {
	return func(m *Mutator) {
		m.log = logging.OrNop(l)
	}
}

// WithMetrics records rollbacks.
func WithMetrics(kind item.Kind, mm *metrics.Metrics) Option {
	return func(m *Mutator) {
		m.kind = string(kind)
		m.metrics = mm
	}
}

// New creates a Mutator editing state under mu. version reports the remote
// client's acknowledged write count.
func New(mu sync.Locker, state State, version func() uint64, opts ...Option) *Mutator {
	m := &Mutator{
		mu:      mu,
		state:   state,
		version: version,
		notify:  func() {},
		log:     zap.NewNop(),
		chains:  make(map[chainKey]*chain),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mutate builds a mutation from the item's current local value and applies
// it immediately. Writes for the same item and field are sent one at a time:
// call runs once every earlier write on that field has resolved, with the
// latest local value, and is skipped when that value is already what the
// backend acknowledged. On failure the acknowledged value is restored unless
// a later mutation on the field is still queued. A not-found failure removes
// the item locally instead. The error from call is returned unchanged.
func (m *Mutator) Mutate(ctx context.Context, id string, build func(base item.Item) Mutation, call Call) error {
	m.mu.Lock()
	base, ok := m.state.Get(id)
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", item.ErrNotFound, id)
	}
	mut := build(base.Clone())
	key := chainKey{id: id, field: mut.Field}
	c := m.chains[key]
	if c == nil {
		c = &chain{confirmed: mut.Revert}
		m.chains[key] = c
	}
	e := &entry{apply: mut.Apply, done: make(chan struct{})}
	if n := len(c.entries); n > 0 {
		e.after = c.entries[n-1]
	}
	c.entries = append(c.entries, e)
	m.applyLocked(id, mut.Apply)
	m.notify()
	m.mu.Unlock()
	defer close(e.done)

	var err error
	for p := e.after; p != nil && err == nil; {
		select {
		case <-p.done:
			p = p.after
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	if err == nil {
		e.after = nil
	}

	m.mu.Lock()
	if m.chains[key] != c || indexOf(c.entries, e) < 0 {
		// Forgotten by ResetLocked; state belongs to someone else now.
		m.mu.Unlock()
		return err
	}
	if err == nil {
		sent := m.currentLocked(id)
		if key.field != FieldExistence && sent == nil {
			err = fmt.Errorf("%w: %s", item.ErrNotFound, id)
		} else if key.field.equal(sent, c.confirmed(sent)) {
			// Nothing to write; earlier writes already left the backend here.
			e.state = entryConfirmed
			e.ack = m.version()
			m.mu.Unlock()
			return nil
		} else {
			m.mu.Unlock()
			err = call(ctx, sent)
			m.mu.Lock()
			if err == nil {
				if m.chains[key] == c {
					e.state = entryConfirmed
					e.ack = m.version()
					c.confirmed = key.field.restore(sent)
					if c.entries[len(c.entries)-1] == e {
						// Nothing queued behind; a cancelled successor may
						// have rolled back past this write.
						m.applyLocked(id, c.confirmed)
						m.notify()
					}
				}
				m.mu.Unlock()
				return nil
			}
		}
	}
	defer m.mu.Unlock()

	idx := indexOf(c.entries, e)
	if m.chains[key] != c || idx < 0 {
		return err
	}
	queued := len(c.entries) > idx+1
	m.dropLocked(key, idx)

	switch {
	case errors.Is(err, item.ErrNotFound):
		m.state.Remove(id)
		m.forgetLocked(id)
	case !queued:
		m.applyLocked(id, c.confirmed)
		m.metrics.Rollback(m.kind, string(key.field))
		m.log.Debug("mutation rolled back", zap.String("id", id), zap.String("field", string(key.field)), zap.Error(err))
	default:
		// The queued write sends the latest local value instead.
	}
	m.notify()
	return err
}

// RebaseLocked replays mutations that a freshly installed snapshot does not
// reflect yet. Confirmed mutations acknowledged at or before version are
// forgotten. The caller must hold the lock.
func (m *Mutator) RebaseLocked(version uint64) {
	for key, c := range m.chains {
		kept := c.entries[:0]
		for _, e := range c.entries {
			if e.state == entryConfirmed && e.ack <= version {
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(m.chains, key)
			continue
		}
		c.entries = kept
		for _, e := range kept {
			m.applyLocked(key.id, e.apply)
		}
	}
}

// Pending reports whether id has a write in flight.
func (m *Mutator) Pending(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, c := range m.chains {
		if key.id != id {
			continue
		}
		for _, e := range c.entries {
			if e.state == entryPending {
				return true
			}
		}
	}
	return false
}

// ResetLocked forgets every tracked mutation, e.g. when the owner changes.
// In-flight calls still complete but no longer touch state.
func (m *Mutator) ResetLocked() {
	m.chains = make(map[chainKey]*chain)
}

func (m *Mutator) applyLocked(id string, fn Transform) *item.Item {
	cur := m.currentLocked(id)
	next := fn(cur)
	switch {
	case next != nil:
		m.state.Put(next.Clone())
	case cur != nil:
		m.state.Remove(id)
	}
	return next
}

func (m *Mutator) currentLocked(id string) *item.Item {
	it, ok := m.state.Get(id)
	if !ok {
		return nil
	}
	return &it
}

func (m *Mutator) dropLocked(key chainKey, idx int) {
	c := m.chains[key]
	c.entries = append(c.entries[:idx:idx], c.entries[idx+1:]...)
	if len(c.entries) == 0 {
		delete(m.chains, key)
	}
}

func (m *Mutator) forgetLocked(id string) {
	for key := range m.chains {
		if key.id == id {
			delete(m.chains, key)
		}
	}
}

func indexOf(chain []*entry, e *entry) int {
	for i, candidate := range chain {
		if candidate == e {
			return i
		}
	}
	return -1
}
