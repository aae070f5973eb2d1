// Package viewmodel composes the subscription, optimistic mutations,
// selection and projection behind one collection screen.
package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"tableflip.dev/jot/pkg/collection"
	"tableflip.dev/jot/pkg/collection/optimistic"
	"tableflip.dev/jot/pkg/collection/projector"
	"tableflip.dev/jot/pkg/collection/selection"
	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/logging"
	"tableflip.dev/jot/pkg/metrics"
	"tableflip.dev/jot/pkg/remote"
)

var (
	// ErrSelectionActive rejects per-item actions while multi-selecting.
	ErrSelectionActive = errors.New("viewmodel: action unavailable while selecting")
	// ErrNoOwner rejects writes while nobody is signed in.
	ErrNoOwner = errors.New("viewmodel: no owner")

	// errRemounted keeps a finished batch delete from touching the
	// selection of a screen that was remounted meanwhile.
	errRemounted = errors.New("viewmodel: remounted")
)

// Client is the remote collection the view-model drives. *remote.Client
// implements it.
type Client interface {
	Kind() item.Kind
	Version() uint64
	Subscribe(ctx context.Context, owner string) (*remote.Subscription, error)
	Create(ctx context.Context, owner string, d item.Draft) (item.Item, error)
	Update(ctx context.Context, owner, id string, patch item.Patch) (item.Item, error)
	Delete(ctx context.Context, owner, id string) error
	BatchDelete(ctx context.Context, owner string, ids []string) error
}

var _ Client = (*remote.Client)(nil)

// EventType identifies a view-model notification.
type EventType int

const (
	// EventChanged means something observable changed; re-read and redraw.
	EventChanged EventType = iota
	// EventError carries an error that was just surfaced.
	EventError
)

// Event is delivered on Events.
type Event struct {
	Type EventType
	Err  error
}

// Option customises a ViewModel.
type Option func(*ViewModel)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(vm *ViewModel) {
		vm.log = logging.OrNop(l)
	}
}

// WithLanguage sets the locale used for title ordering.
func WithLanguage(tag language.Tag) Option {
	return func(vm *ViewModel) {
		vm.lang = tag
	}
}

// WithMetrics records rollbacks.
func WithMetrics(m *metrics.Metrics) Option {
	return func(vm *ViewModel) {
		vm.metrics = m
	}
}

// WithView sets the initial view controls.
func WithView(opts projector.Options) Option {
	return func(vm *ViewModel) {
		vm.view = opts
	}
}

// ViewModel owns the local copy of one owner's collection for one screen.
// All methods are safe for concurrent use.
type ViewModel struct {
	client  Client
	log     *zap.Logger
	lang    language.Tag
	metrics *metrics.Metrics
	events  chan Event

	mu      sync.Mutex
	owner   string
	gen     uint64
	sub     *remote.Subscription
	items   []item.Item
	loading bool
	err     error
	// subFailed is set when the subscription itself ended with an error,
	// as opposed to a failed action.
	subFailed bool
	view    projector.Options
	sel     selection.Controller
	mut     *optimistic.Mutator
}

// New creates a ViewModel for client's kind. Nothing is subscribed until
// SetOwner is called.
func New(client Client, opts ...Option) *ViewModel {
	vm := &ViewModel{
		client: client,
		log:    zap.NewNop(),
		lang:   language.Und,
		events: make(chan Event, 32),
		view:   projector.Options{Sort: collection.SortNewest},
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.log = vm.log.With(zap.String("kind", string(client.Kind())))
	vm.mut = optimistic.New(&vm.mu, localState{vm}, client.Version,
		optimistic.WithNotify(func() { vm.emitLocked(Event{Type: EventChanged}) }),
		optimistic.WithLogger(vm.log),
		optimistic.WithMetrics(client.Kind(), vm.metrics),
	)
	return vm
}

// Events streams change and error notifications. Delivery is best effort;
// when the host falls behind, notifications are dropped rather than
// blocking, and the state read afterwards is always current.
func (vm *ViewModel) Events() <-chan Event {
	return vm.events
}

func (vm *ViewModel) emitLocked(ev Event) {
	select {
	case vm.events <- ev:
	default:
	}
}

// SetOwner mounts the screen for owner, closing any previous subscription
// first. An empty owner leaves the screen empty and not loading. ctx bounds
// the lifetime of the subscription.
func (vm *ViewModel) SetOwner(ctx context.Context, owner string) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if owner == vm.owner && (vm.sub != nil || owner == "") && !vm.subFailed {
		return nil
	}
	vm.closeLocked()
	vm.owner = owner
	vm.items = nil
	vm.err = nil
	vm.subFailed = false
	vm.sel.Cancel()
	vm.mut.ResetLocked()
	if owner == "" {
		vm.loading = false
		vm.emitLocked(Event{Type: EventChanged})
		return nil
	}
	return vm.subscribeLocked(ctx)
}

// Owner returns the owner the screen is mounted for.
func (vm *ViewModel) Owner() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.owner
}

// Retry re-opens the subscription after a subscription-level error.
func (vm *ViewModel) Retry(ctx context.Context) error {
	return vm.Refresh(ctx)
}

// Refresh re-opens the subscription, keeping the current items on screen
// until the new first snapshot arrives.
func (vm *ViewModel) Refresh(ctx context.Context) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.owner == "" {
		return nil
	}
	vm.closeLocked()
	vm.err = nil
	return vm.subscribeLocked(ctx)
}

// Close unmounts the screen. No snapshot is applied after it returns.
func (vm *ViewModel) Close() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.closeLocked()
}

func (vm *ViewModel) closeLocked() {
	vm.gen++
	if vm.sub != nil {
		vm.sub.Unsubscribe()
		vm.sub = nil
	}
	vm.loading = false
}

func (vm *ViewModel) subscribeLocked(ctx context.Context) error {
	vm.gen++
	vm.loading = true
	vm.subFailed = false
	sub, err := vm.client.Subscribe(ctx, vm.owner)
	if err != nil {
		vm.loading = false
		vm.subFailed = true
		vm.surfaceLocked(err)
		return err
	}
	vm.sub = sub
	go vm.pump(sub, vm.gen)
	vm.emitLocked(Event{Type: EventChanged})
	return nil
}

// pump applies snapshots from sub while gen is current.
func (vm *ViewModel) pump(sub *remote.Subscription, gen uint64) {
	for snap := range sub.C() {
		if !vm.apply(snap, gen) {
			return
		}
	}
}

func (vm *ViewModel) apply(snap remote.Snapshot, gen uint64) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.gen != gen {
		return false
	}
	vm.loading = false
	if snap.Err != nil {
		vm.log.Warn("subscription failed", zap.Error(snap.Err))
		vm.subFailed = true
		vm.surfaceLocked(snap.Err)
		return false
	}
	vm.items = snap.Items
	vm.mut.RebaseLocked(snap.Version)
	vm.sel.Prune(func(id string) bool {
		_, ok := vm.findLocked(id)
		return ok
	})
	vm.emitLocked(Event{Type: EventChanged})
	return true
}

func (vm *ViewModel) surfaceLocked(err error) {
	vm.err = err
	vm.emitLocked(Event{Type: EventError, Err: err})
}

// report surfaces err from an action that started in generation gen.
// Not-found failures are silent recoveries.
func (vm *ViewModel) report(gen uint64, err error) error {
	if err == nil {
		return nil
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.gen != gen || item.Classify(err) == item.ClassNotFound {
		return err
	}
	vm.surfaceLocked(err)
	return err
}

// Items returns the projected list for display.
func (vm *ViewModel) Items() []item.Item {
	vm.mu.Lock()
	raw := vm.items
	view := vm.view
	vm.mu.Unlock()
	// Project copies, and raw is never mutated in place.
	return projector.Project(raw, view, projector.WithLanguage(vm.lang))
}

// Item returns the local copy of id.
func (vm *ViewModel) Item(id string) (item.Item, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	i, ok := vm.findLocked(id)
	if !ok {
		return item.Item{}, false
	}
	return vm.items[i].Clone(), true
}

// Loading is true from mount until the first snapshot arrives.
func (vm *ViewModel) Loading() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.loading
}

// Err returns the last surfaced error.
func (vm *ViewModel) Err() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.err
}

// ClearError dismisses the surfaced error.
func (vm *ViewModel) ClearError() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.err != nil {
		vm.err = nil
		vm.emitLocked(Event{Type: EventChanged})
	}
}

// Pending reports whether id has an optimistic write in flight.
func (vm *ViewModel) Pending(id string) bool {
	return vm.mut.Pending(id)
}

// begin checks that action is allowed and returns the owner and generation
// it runs under.
func (vm *ViewModel) begin(action selection.Action) (string, uint64, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if !vm.sel.Allows(action) {
		return "", 0, ErrSelectionActive
	}
	if vm.owner == "" {
		return "", 0, ErrNoOwner
	}
	return vm.owner, vm.gen, nil
}

// ToggleFavorite flips id's favorite flag optimistically.
func (vm *ViewModel) ToggleFavorite(ctx context.Context, id string) error {
	owner, gen, err := vm.begin(selection.ActionToggleFavorite)
	if err != nil {
		return err
	}
	err = vm.mut.Mutate(ctx, id, optimistic.ToggleFavorite, func(ctx context.Context, next *item.Item) error {
		if next == nil {
			return fmt.Errorf("%w: %s", item.ErrNotFound, id)
		}
		_, err := vm.client.Update(ctx, owner, id, item.Patch{Favorite: &next.Favorite})
		return err
	})
	return vm.report(gen, err)
}

// ToggleCompleted flips a todo's completed flag optimistically.
func (vm *ViewModel) ToggleCompleted(ctx context.Context, id string) error {
	if vm.client.Kind() != item.KindTodo {
		return &item.ValidationError{Field: "completed", Reason: "only todos can be completed"}
	}
	owner, gen, err := vm.begin(selection.ActionToggleCompleted)
	if err != nil {
		return err
	}
	err = vm.mut.Mutate(ctx, id, optimistic.ToggleCompleted, func(ctx context.Context, next *item.Item) error {
		if next == nil {
			return fmt.Errorf("%w: %s", item.ErrNotFound, id)
		}
		_, err := vm.client.Update(ctx, owner, id, item.Patch{Completed: &next.Completed})
		return err
	})
	return vm.report(gen, err)
}

// DeleteOne removes id locally, then remotely; a failure puts it back.
func (vm *ViewModel) DeleteOne(ctx context.Context, id string) error {
	owner, gen, err := vm.begin(selection.ActionDeleteOne)
	if err != nil {
		return err
	}
	err = vm.mut.Mutate(ctx, id, optimistic.Remove, func(ctx context.Context, _ *item.Item) error {
		return vm.client.Delete(ctx, owner, id)
	})
	return vm.report(gen, err)
}

// DeleteSelected removes the selection atomically. Items stay on screen
// until the snapshot without them arrives; on failure the selection is kept.
func (vm *ViewModel) DeleteSelected(ctx context.Context) error {
	vm.mu.Lock()
	owner, gen := vm.owner, vm.gen
	// The lock is released for the remote call so snapshots keep flowing.
	err := vm.sel.DeleteSelected(ctx, selection.BatchDeleterFunc(func(ctx context.Context, ids []string) error {
		vm.mu.Unlock()
		err := vm.client.BatchDelete(ctx, owner, ids)
		vm.mu.Lock()
		if err == nil && vm.gen != gen {
			return errRemounted
		}
		return err
	}))
	if errors.Is(err, errRemounted) {
		err = nil
	}
	if err == nil {
		vm.emitLocked(Event{Type: EventChanged})
	}
	vm.mu.Unlock()
	if errors.Is(err, selection.ErrNotSelecting) {
		return err
	}
	return vm.report(gen, err)
}

// Create adds a new item. It is not optimistic; the item appears with the
// next snapshot.
func (vm *ViewModel) Create(ctx context.Context, d item.Draft) (item.Item, error) {
	owner, gen, err := vm.begin(selection.ActionEdit)
	if err != nil {
		return item.Item{}, err
	}
	created, err := vm.client.Create(ctx, owner, d)
	if err != nil {
		return item.Item{}, vm.report(gen, err)
	}
	return created, nil
}

// Update edits id. It is not optimistic; the change appears with the next
// snapshot. A not-found failure drops the stale local copy.
func (vm *ViewModel) Update(ctx context.Context, id string, patch item.Patch) (item.Item, error) {
	owner, gen, err := vm.begin(selection.ActionEdit)
	if err != nil {
		return item.Item{}, err
	}
	updated, err := vm.client.Update(ctx, owner, id, patch)
	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			vm.mu.Lock()
			if vm.gen == gen {
				localState{vm}.Remove(id)
				vm.emitLocked(Event{Type: EventChanged})
			}
			vm.mu.Unlock()
		}
		return item.Item{}, vm.report(gen, err)
	}
	return updated, nil
}

// View returns the current view controls.
func (vm *ViewModel) View() projector.Options {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.view
}

// SetSearch sets the search text.
func (vm *ViewModel) SetSearch(q string) {
	vm.updateView(func(v *projector.Options) { v.Search = q })
}

// SetSort sets the sort order.
func (vm *ViewModel) SetSort(s collection.Sort) {
	vm.updateView(func(v *projector.Options) { v.Sort = s })
}

// SetFavoriteOnly toggles the favorites filter.
func (vm *ViewModel) SetFavoriteOnly(on bool) {
	vm.updateView(func(v *projector.Options) { v.FavoriteOnly = on })
}

func (vm *ViewModel) updateView(fn func(*projector.Options)) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	fn(&vm.view)
	vm.emitLocked(Event{Type: EventChanged})
}

// LongPress enters selection mode on id.
func (vm *ViewModel) LongPress(id string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if _, ok := vm.findLocked(id); !ok {
		return
	}
	vm.sel.LongPress(id)
	vm.emitLocked(Event{Type: EventChanged})
}

// Tap toggles id while selecting; otherwise the host should navigate.
func (vm *ViewModel) Tap(id string) selection.TapResult {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	res := vm.sel.Tap(id)
	if res == selection.TapToggled {
		vm.emitLocked(Event{Type: EventChanged})
	}
	return res
}

// CancelSelection leaves selection mode.
func (vm *ViewModel) CancelSelection() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.sel.Cancel()
	vm.emitLocked(Event{Type: EventChanged})
}

// Back consumes a back gesture while selecting.
func (vm *ViewModel) Back() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	consumed := vm.sel.Back()
	if consumed {
		vm.emitLocked(Event{Type: EventChanged})
	}
	return consumed
}

// Mode reports the selection mode.
func (vm *ViewModel) Mode() selection.Mode {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.sel.Mode()
}

// Selected returns the selected ids.
func (vm *ViewModel) Selected() []string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.sel.Selected()
}

// IsSelected reports whether id is selected.
func (vm *ViewModel) IsSelected(id string) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.sel.Contains(id)
}

func (vm *ViewModel) findLocked(id string) (int, bool) {
	for i, it := range vm.items {
		if it.ID == id {
			return i, true
		}
	}
	return -1, false
}
