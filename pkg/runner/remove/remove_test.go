package remove

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/remote"
	"tableflip.dev/jot/pkg/runner"
	"tableflip.dev/jot/pkg/store"
)

func seed(t *testing.T, ctx context.Context, client *remote.Client, titles ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(titles))
	for _, title := range titles {
		it, err := client.Create(ctx, "alice", item.Draft{Title: title, Body: title})
		require.NoError(t, err)
		ids = append(ids, it.ID)
	}
	return ids
}

func remaining(t *testing.T, ctx context.Context, client *remote.Client) int {
	t.Helper()
	sub, err := client.Subscribe(ctx, "alice")
	require.NoError(t, err)
	defer sub.Unsubscribe()
	snap := <-sub.C()
	require.NoError(t, snap.Err)
	return len(snap.Items)
}

func TestRemoveOne(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := remote.New(item.KindNote, store.NewMemory())
	ids := seed(t, ctx, client, "a", "b")

	r := &Remove{Env: &runner.Env{Owner: "alice", Client: client, Log: zap.NewNop()}, IDs: ids[:1]}
	require.NoError(t, r.Do(ctx))
	require.Equal(t, 1, remaining(t, ctx, client))
}

func TestRemoveSeveralAsBatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := remote.New(item.KindNote, store.NewMemory())
	ids := seed(t, ctx, client, "a", "b", "c")

	r := &Remove{Env: &runner.Env{Owner: "alice", Client: client, Log: zap.NewNop()}, IDs: ids[:2]}
	require.NoError(t, r.Do(ctx))
	require.Equal(t, 1, remaining(t, ctx, client))
}

func TestRemoveUnknownLeavesEverything(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := remote.New(item.KindNote, store.NewMemory())
	ids := seed(t, ctx, client, "a", "b")

	r := &Remove{Env: &runner.Env{Owner: "alice", Client: client, Log: zap.NewNop()}, IDs: []string{ids[0], "nope"}}
	require.ErrorIs(t, r.Do(ctx), item.ErrNotFound)
	require.Equal(t, 2, remaining(t, ctx, client))
}

func TestRemoveRepeatedIDCountsOnce(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := remote.New(item.KindNote, store.NewMemory())
	ids := seed(t, ctx, client, "a", "b")

	var out bytes.Buffer
	r := &Remove{Env: &runner.Env{Owner: "alice", Client: client, Log: zap.NewNop()}, IDs: []string{ids[0], ids[0]}, Out: &out}
	require.NoError(t, r.Do(ctx))
	require.Equal(t, 1, remaining(t, ctx, client))
	require.Contains(t, out.String(), "removed 1 note\n")
}
