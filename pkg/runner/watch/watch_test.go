package watch

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tableflip.dev/jot/pkg/collection"
	"tableflip.dev/jot/pkg/collection/projector"
	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/printers"
	"tableflip.dev/jot/pkg/remote"
	"tableflip.dev/jot/pkg/runner"
	"tableflip.dev/jot/pkg/store"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchReprintsOnChange(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := remote.New(item.KindTodo, store.NewMemory())
	_, err := client.Create(ctx, "alice", item.Draft{Title: "first"})
	require.NoError(t, err)

	out := &syncBuffer{}
	w := &Watch{
		Env:     &runner.Env{Owner: "alice", Client: client, Log: zap.NewNop()},
		View:    projector.Options{Sort: collection.SortNewest},
		JSON:    true,
		Printer: &printers.PrettyPrint{Out: out},
	}

	watchCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- w.Do(watchCtx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "first")
	}, 5*time.Second, 10*time.Millisecond)

	_, err = client.Create(ctx, "alice", item.Draft{Title: "second"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "second")
	}, 5*time.Second, 10*time.Millisecond)

	stop()
	require.NoError(t, <-done)
}
