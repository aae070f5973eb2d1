package remote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/metrics"
	"tableflip.dev/jot/pkg/store"
)

// faultyStore wraps a Persistence and fails selected operations.
type faultyStore struct {
	store.Persistence

	mu        sync.Mutex
	updateErr error
	batchErr  error
	watch     chan store.Event
}

func (f *faultyStore) Update(ctx context.Context, owner string, kind item.Kind, id string, patch item.Patch) (item.Item, error) {
	f.mu.Lock()
	err := f.updateErr
	f.mu.Unlock()
	if err != nil {
		return item.Item{}, err
	}
	return f.Persistence.Update(ctx, owner, kind, id, patch)
}

func (f *faultyStore) BatchDelete(ctx context.Context, owner string, kind item.Kind, ids []string) ([]item.Item, error) {
	f.mu.Lock()
	err := f.batchErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Persistence.BatchDelete(ctx, owner, kind, ids)
}

func (f *faultyStore) Watch(ctx context.Context) (<-chan store.Event, error) {
	if f.watch != nil {
		return f.watch, nil
	}
	return f.Persistence.Watch(ctx)
}

type recordingBlobs struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (r *recordingBlobs) Upload(context.Context, string, string, string) (string, error) {
	return "", errors.New("not implemented")
}

func (r *recordingBlobs) Delete(_ context.Context, rawURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, rawURL)
	return r.err
}

func next(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot{}
}

// until reads snapshots until cond holds.
func until(t *testing.T, sub *Subscription, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-sub.C():
			require.True(t, ok, "subscription closed")
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching snapshot")
		}
	}
}

// ticking returns a clock that advances one second per call.
func ticking() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func ids(items []item.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestSubscribeRejectsEmptyOwner(t *testing.T) {
	c := New(item.KindNote, store.NewMemory())
	_, err := c.Subscribe(context.Background(), "")
	assert.True(t, errors.Is(err, item.ErrValidation))
}

func TestSubscribeDeliversOrderedSnapshots(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory(store.WithClock(ticking()))
	c := New(item.KindNote, st)

	first, err := c.Create(ctx, "alice", item.Draft{Title: "first", Body: "about first"})
	require.NoError(t, err)

	sub, err := c.Subscribe(ctx, "alice")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	snap := next(t, sub)
	require.NoError(t, snap.Err)
	assert.Equal(t, []string{first.ID}, ids(snap.Items))
	assert.Equal(t, uint64(1), snap.Version)

	second, err := c.Create(ctx, "alice", item.Draft{Title: "second", Body: "about second"})
	require.NoError(t, err)
	_, err = c.Create(ctx, "bob", item.Draft{Title: "bob's", Body: "about bob's"})
	require.NoError(t, err)

	snap = until(t, sub, func(s Snapshot) bool { return len(s.Items) == 2 })
	assert.Equal(t, []string{second.ID, first.ID}, ids(snap.Items))
	assert.GreaterOrEqual(t, snap.Version, uint64(2))
}

func TestCreateValidatesBeforeWriting(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c := New(item.KindTodo, st)

	_, err := c.Create(ctx, "alice", item.Draft{Title: "   "})
	assert.True(t, errors.Is(err, item.ErrValidation))
	_, err = c.Create(ctx, "alice", item.Draft{Kind: item.KindNote, Title: "wrong kind"})
	assert.True(t, errors.Is(err, item.ErrValidation))
	_, err = c.Create(ctx, "", item.Draft{Title: "nobody"})
	assert.True(t, errors.Is(err, item.ErrValidation))

	items, err := st.List(ctx, "alice", item.KindTodo)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, c.Version())

	created, err := c.Create(ctx, "alice", item.Draft{Title: "  pack  "})
	require.NoError(t, err)
	assert.Equal(t, "pack", created.Title)
	assert.Equal(t, item.DefaultColor(), created.Extras.Color)
}

func TestNoteContentIsRequired(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c := New(item.KindNote, st)

	_, err := c.Create(ctx, "alice", item.Draft{Title: "t", Body: "   "})
	assert.True(t, errors.Is(err, item.ErrValidation), "got %v", err)
	items, err := st.List(ctx, "alice", item.KindNote)
	require.NoError(t, err)
	assert.Empty(t, items)

	created, err := c.Create(ctx, "alice", item.Draft{Title: "t", Body: "text"})
	require.NoError(t, err)
	empty := ""
	_, err = c.Update(ctx, "alice", created.ID, item.Patch{Body: &empty})
	assert.True(t, errors.Is(err, item.ErrValidation), "got %v", err)

	got, err := c.Get(ctx, "alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "text", got.Body)
}

func TestWriteErrorsAreClassified(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	st := &faultyStore{Persistence: mem}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := New(item.KindNote, st, WithMetrics(m))

	mine, err := c.Create(ctx, "alice", item.Draft{Title: "mine", Body: "about mine"})
	require.NoError(t, err)
	theirs, err := c.Create(ctx, "bob", item.Draft{Title: "theirs", Body: "about theirs"})
	require.NoError(t, err)

	fav := true
	_, err = c.Update(ctx, "alice", theirs.ID, item.Patch{Favorite: &fav})
	assert.True(t, errors.Is(err, item.ErrOwnership), "got %v", err)

	_, err = c.Update(ctx, "alice", "missing", item.Patch{Favorite: &fav})
	assert.True(t, errors.Is(err, item.ErrNotFound), "got %v", err)

	boom := errors.New("connection reset")
	st.updateErr = boom
	_, err = c.Update(ctx, "alice", mine.ID, item.Patch{Favorite: &fav})
	assert.True(t, errors.Is(err, item.ErrTransient), "got %v", err)
	assert.True(t, errors.Is(err, boom))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WritesTotal.WithLabelValues("note", "update", item.ClassTransient.String())))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WritesTotal.WithLabelValues("note", "create", "ok")))
}

func TestBatchDeleteFailureKeepsItems(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	st := &faultyStore{Persistence: mem}
	c := New(item.KindNote, st)

	var all []string
	for _, title := range []string{"a", "b", "c"} {
		it, err := c.Create(ctx, "alice", item.Draft{Title: title, Body: title})
		require.NoError(t, err)
		all = append(all, it.ID)
	}

	st.batchErr = errors.New("unavailable")
	err := c.BatchDelete(ctx, "alice", all)
	assert.True(t, errors.Is(err, item.ErrTransient))

	items, err := mem.List(ctx, "alice", item.KindNote)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	st.batchErr = nil
	require.NoError(t, c.BatchDelete(ctx, "alice", all[:2]))
	items, err = mem.List(ctx, "alice", item.KindNote)
	require.NoError(t, err)
	assert.Equal(t, all[2:], ids(items))
}

func TestDeleteCleansUpImages(t *testing.T) {
	ctx := context.Background()
	blobs := &recordingBlobs{err: errors.New("bucket gone")}
	c := New(item.KindNote, store.NewMemory(), WithBlobs(blobs))

	url := "file:///tmp/blobs/photo.jpg"
	withImage, err := c.Create(ctx, "alice", item.Draft{Title: "pic", Body: "holiday", Extras: item.Extras{ImageURL: &url}})
	require.NoError(t, err)
	plain, err := c.Create(ctx, "alice", item.Draft{Title: "plain", Body: "about plain"})
	require.NoError(t, err)

	// Cleanup failures never fail the delete.
	require.NoError(t, c.Delete(ctx, "alice", withImage.ID))
	require.NoError(t, c.Delete(ctx, "alice", plain.ID))
	assert.Equal(t, []string{url}, blobs.deleted)

	_, err = c.Get(ctx, "alice", withImage.ID)
	assert.True(t, errors.Is(err, item.ErrNotFound))
}

func TestClosedFeedEndsSubscriptionWithError(t *testing.T) {
	feed := make(chan store.Event)
	st := &faultyStore{Persistence: store.NewMemory(), watch: feed}
	c := New(item.KindTodo, st)

	sub, err := c.Subscribe(context.Background(), "alice")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	snap := next(t, sub)
	require.NoError(t, snap.Err)

	close(feed)
	snap = next(t, sub)
	assert.True(t, errors.Is(snap.Err, item.ErrTransient))
	assert.True(t, errors.Is(snap.Err, ErrSubscriptionClosed))

	_, ok := <-sub.C()
	assert.False(t, ok, "terminal snapshot closes the stream")
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	c := New(item.KindNote, store.NewMemory())
	sub, err := c.Subscribe(context.Background(), "alice")
	require.NoError(t, err)

	sub.Unsubscribe()
	sub.Unsubscribe()

	_, ok := <-sub.C()
	assert.False(t, ok)
}

func TestPublishKeepsOnlyLatest(t *testing.T) {
	s := &Subscription{c: make(chan Snapshot, 1)}
	ctx := context.Background()

	require.True(t, s.publish(ctx, Snapshot{Version: 1}))
	require.True(t, s.publish(ctx, Snapshot{Version: 2}))
	require.True(t, s.publish(ctx, Snapshot{Version: 3}))

	snap := <-s.c
	assert.Equal(t, uint64(3), snap.Version)
	select {
	case extra := <-s.c:
		t.Fatalf("unexpected extra snapshot %+v", extra)
	default:
	}
}
