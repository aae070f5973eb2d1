package store

import (
	"context"
	"sync"

	"tableflip.dev/jot/pkg/item"
)

// NewMemory returns a process-local Persistence. It backs tests and the
// --store=memory mode.
func NewMemory(opts ...Option) Persistence {
	return &memoryPersistence{
		opts:     buildOptions(opts),
		docs:     make(map[string]item.Item),
		watchers: make(map[int]chan Event),
	}
}

type memoryPersistence struct {
	opts options

	mu       sync.Mutex
	docs     map[string]item.Item
	watchers map[int]chan Event
	nextID   int
}

func (m *memoryPersistence) List(ctx context.Context, owner string, kind item.Kind) ([]item.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]item.Item, 0)
	for _, it := range m.docs {
		if it.Owner == owner && it.Kind == kind {
			out = append(out, it.Clone())
		}
	}
	SortItems(out)
	return out, nil
}

func (m *memoryPersistence) Get(_ context.Context, kind item.Kind, id string) (item.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.docs[id]
	if !ok || it.Kind != kind {
		return item.Item{}, notFound(kind, id)
	}
	return it.Clone(), nil
}

func (m *memoryPersistence) Insert(_ context.Context, it item.Item) (item.Item, error) {
	created, err := m.opts.created(it)
	if err != nil {
		return item.Item{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[created.ID] = created.Clone()
	m.notifyLocked(created.Owner, created.Kind)
	return created, nil
}

func (m *memoryPersistence) Update(_ context.Context, owner string, kind item.Kind, id string, patch item.Patch) (item.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, err := m.ownedLocked(owner, kind, id)
	if err != nil {
		return item.Item{}, err
	}
	next := m.opts.updated(prev, patch)
	m.docs[id] = next.Clone()
	m.notifyLocked(owner, kind)
	return next, nil
}

func (m *memoryPersistence) Delete(_ context.Context, owner string, kind item.Kind, id string) (item.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, err := m.ownedLocked(owner, kind, id)
	if err != nil {
		return item.Item{}, err
	}
	delete(m.docs, id)
	m.notifyLocked(owner, kind)
	return prev, nil
}

func (m *memoryPersistence) BatchDelete(_ context.Context, owner string, kind item.Kind, ids []string) ([]item.Item, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := make([]item.Item, 0, len(ids))
	for _, id := range ids {
		prev, err := m.ownedLocked(owner, kind, id)
		if err != nil {
			return nil, err
		}
		removed = append(removed, prev)
	}
	for _, it := range removed {
		delete(m.docs, it.ID)
	}
	m.notifyLocked(owner, kind)
	return removed, nil
}

func (m *memoryPersistence) Watch(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, 64)
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = ch
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.watchers, id)
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

func (m *memoryPersistence) Close() error {
	return nil
}

func (m *memoryPersistence) ownedLocked(owner string, kind item.Kind, id string) (item.Item, error) {
	it, ok := m.docs[id]
	if !ok || it.Kind != kind {
		return item.Item{}, notFound(kind, id)
	}
	if err := checkOwner(it, owner); err != nil {
		return item.Item{}, err
	}
	return it.Clone(), nil
}

func (m *memoryPersistence) notifyLocked(owner string, kind item.Kind) {
	ev := Event{Type: EventCollectionChanged, Owner: owner, Kind: kind}
	for _, ch := range m.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}
