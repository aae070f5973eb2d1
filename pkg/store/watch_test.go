package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"tableflip.dev/jot/pkg/item"
)

func TestPersistenceWatchEmitsCollectionChanges(t *testing.T) {
	base := t.TempDir()
	p, err := Load(testConfig{path: base})
	if err != nil {
		t.Fatalf("load persistence: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Watch(ctx)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	// Allow watcher goroutine to subscribe to directories before storing.
	time.Sleep(50 * time.Millisecond)

	if _, err := p.Insert(ctx, item.Item{Owner: "alice", Kind: item.KindTodo, Title: "hello world"}); err != nil {
		t.Fatalf("insert item: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-ch:
			if evt.Type == EventCollectionsInvalidated {
				return
			}
			if evt.Type == EventCollectionChanged {
				if evt.Owner != "alice" || evt.Kind != item.KindTodo {
					t.Fatalf("expected alice/todo, got %q/%q", evt.Owner, evt.Kind)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for collection change event")
		}
	}
}

func TestCollectionForPath(t *testing.T) {
	p := &persistence{basePath: "/data"}
	owner, kind, ok := p.collectionForPath("/data/" + encodeOwner("a@b.c") + "/note/123")
	if !ok || owner != "a@b.c" || kind != item.KindNote {
		t.Fatalf("got %q %q %v", owner, kind, ok)
	}
	if _, _, ok := p.collectionForPath("/data/" + encodeOwner("a") + "/widgets/1"); ok {
		t.Fatal("unknown kind should not resolve")
	}
	if _, _, ok := p.collectionForPath("/elsewhere/x/y/z"); ok {
		t.Fatal("paths outside the base should not resolve")
	}
}

func TestWatchTreeLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	base := t.TempDir()
	p, err := NewDiskv(base, WithLogger(zap.New(core)))
	if err != nil {
		t.Fatalf("new diskv: %v", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	if err := watcher.Close(); err != nil {
		t.Fatalf("close watcher: %v", err)
	}

	p.(*persistence).watchTree(watcher, filepath.Clean(base), map[string]struct{}{})
	if got := logs.FilterMessage("watch directory").Len(); got != 1 {
		t.Fatalf("expected one logged watch failure, got %d: %v", got, logs.All())
	}
}
