package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"tableflip.dev/jot/pkg/item"
)

// Watch streams change events until ctx is cancelled. Callers should drain the
// returned channel to avoid blocking the watcher. The channel is closed once
// ctx is done or the watcher encounters an unrecoverable error.
func (p *persistence) Watch(ctx context.Context) (<-chan Event, error) {
	if p.basePath == "" {
		return nil, errors.New("store: persistence base path unknown")
	}

	if err := os.MkdirAll(p.basePath, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure base path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("store: create watcher: %w", err)
	}
	var closeOnce sync.Once
	closeWatcher := func() {
		closeOnce.Do(func() {
			if err := watcher.Close(); err != nil {
				p.opts.log.Warn("watcher close", zap.Error(err))
			}
		})
	}

	dirs, err := collectDirs(p.basePath)
	if err != nil {
		closeWatcher()
		return nil, fmt.Errorf("store: enumerate directories: %w", err)
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			closeWatcher()
			return nil, fmt.Errorf("store: watch %s: %w", dir, err)
		}
	}

	events := make(chan Event, 64)

	// The throttle flushes from its own timer goroutine, so sends and the
	// final close are serialised.
	var sendMu sync.Mutex
	closed := false

	go func() {
		defer func() {
			sendMu.Lock()
			closed = true
			close(events)
			sendMu.Unlock()
		}()
		defer closeWatcher()

		watched := make(map[string]struct{}, len(dirs))
		for _, dir := range dirs {
			watched[dir] = struct{}{}
		}

		send := func(ev Event) {
			sendMu.Lock()
			defer sendMu.Unlock()
			if closed {
				return
			}
			select {
			case events <- ev:
			default:
				// A full buffer means the consumer still has a refresh
				// queued that will observe this change.
			}
		}

		throttle := newEventThrottle(100 * time.Millisecond)
		defer throttle.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
				throttle.Enqueue(Event{Type: EventCollectionsInvalidated}, send)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}

				if evt.Op&fsnotify.Create == fsnotify.Create {
					if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
						// New owner or kind directory; watch it and rescan
						// anything written before the watch was in place.
						p.watchTree(watcher, filepath.Clean(evt.Name), watched)
						if owner, kind, ok := p.collectionForPath(filepath.Join(evt.Name, "x")); ok {
							throttle.Enqueue(Event{Type: EventCollectionChanged, Owner: owner, Kind: kind}, send)
						} else {
							throttle.Enqueue(Event{Type: EventCollectionsInvalidated}, send)
						}
						continue
					}
				}

				owner, kind, ok := p.collectionForPath(evt.Name)
				if !ok {
					throttle.Enqueue(Event{Type: EventCollectionsInvalidated}, send)
					continue
				}
				throttle.Enqueue(Event{Type: EventCollectionChanged, Owner: owner, Kind: kind}, send)
			}
		}
	}()

	return events, nil
}

func (p *persistence) watchTree(watcher *fsnotify.Watcher, root string, watched map[string]struct{}) {
	dirs, err := collectDirs(root)
	if err != nil {
		p.opts.log.Warn("enumerate directories", zap.String("root", root), zap.Error(err))
		return
	}
	for _, dir := range dirs {
		if _, found := watched[dir]; found {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			p.opts.log.Warn("watch directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		watched[dir] = struct{}{}
	}
}

// collectDirs walks base and returns all directories that should be watched.
func collectDirs(base string) ([]string, error) {
	dirs := []string{base}
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() && path != base {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}

// collectionForPath derives the owner and kind from a diskv file path.
func (p *persistence) collectionForPath(path string) (string, item.Kind, bool) {
	rel, err := filepath.Rel(p.basePath, path)
	if err != nil || rel == "." {
		return "", "", false
	}
	parts := strings.Split(rel, string(os.PathSeparator))
	if len(parts) < 3 {
		return "", "", false
	}
	owner, ok := decodeOwner(parts[0])
	if !ok || owner == "" {
		return "", "", false
	}
	kind := item.Kind(parts[1])
	if kind != item.KindNote && kind != item.KindTodo {
		return "", "", false
	}
	return owner, kind, true
}

type throttleKey struct {
	owner string
	kind  item.Kind
}

// eventThrottle coalesces rapid change notifications so subscribers refresh
// once per burst of filesystem activity instead of on every single write.
type eventThrottle struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending map[EventType]map[throttleKey]struct{}
	delay   time.Duration
}

func newEventThrottle(delay time.Duration) *eventThrottle {
	return &eventThrottle{
		delay:   delay,
		pending: make(map[EventType]map[throttleKey]struct{}),
	}
}

func (t *eventThrottle) Enqueue(ev Event, send func(Event)) {
	t.mu.Lock()
	if t.pending[ev.Type] == nil {
		t.pending[ev.Type] = make(map[throttleKey]struct{})
	}
	if ev.Type == EventCollectionChanged {
		t.pending[ev.Type][throttleKey{owner: ev.Owner, kind: ev.Kind}] = struct{}{}
	}

	if t.timer == nil {
		t.timer = time.AfterFunc(t.delay, func() {
			t.flush(send)
		})
	}
	t.mu.Unlock()
}

func (t *eventThrottle) flush(send func(Event)) {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[EventType]map[throttleKey]struct{})
	t.timer = nil
	t.mu.Unlock()

	for eventType, collections := range pending {
		if len(collections) == 0 {
			send(Event{Type: eventType})
			continue
		}
		for key := range collections {
			send(Event{Type: eventType, Owner: key.owner, Kind: key.kind})
		}
	}
}

func (t *eventThrottle) Stop() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
}
