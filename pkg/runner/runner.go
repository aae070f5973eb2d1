// Package runner holds what the command runners share: the resolved
// collaborators and the mount step of a collection screen.
package runner

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"tableflip.dev/jot/pkg/blob"
	"tableflip.dev/jot/pkg/collection/projector"
	"tableflip.dev/jot/pkg/collection/viewmodel"
	"tableflip.dev/jot/pkg/geo"
	"tableflip.dev/jot/pkg/logging"
	"tableflip.dev/jot/pkg/metrics"
	"tableflip.dev/jot/pkg/remote"
)

// Env is the wiring every runner starts from.
type Env struct {
	Owner    string
	Client   *remote.Client
	Blobs    blob.Store
	Locator  geo.Locator
	Log      *zap.Logger
	Metrics  *metrics.Metrics
	Language language.Tag
	Now      func() time.Time
}

// Logger never returns nil.
func (e *Env) Logger() *zap.Logger {
	return logging.OrNop(e.Log)
}

func (e *Env) Clock() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// ViewModel builds a screen over the client with the given view controls.
func (e *Env) ViewModel(view projector.Options) *viewmodel.ViewModel {
	return viewmodel.New(e.Client,
		viewmodel.WithLogger(e.Log),
		viewmodel.WithLanguage(e.Language),
		viewmodel.WithMetrics(e.Metrics),
		viewmodel.WithView(view),
	)
}

// Mount subscribes vm for owner and blocks until the first snapshot has been
// applied or the subscription failed. It consumes vm.Events while waiting.
func Mount(ctx context.Context, vm *viewmodel.ViewModel, owner string) error {
	if err := vm.SetOwner(ctx, owner); err != nil {
		return err
	}
	for vm.Loading() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-vm.Events():
			if ev.Type == viewmodel.EventError {
				return ev.Err
			}
		case <-time.After(50 * time.Millisecond):
		}
	}
	return vm.Err()
}
