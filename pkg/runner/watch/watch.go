package watch

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"tableflip.dev/jot/pkg/collection/projector"
	"tableflip.dev/jot/pkg/collection/viewmodel"
	"tableflip.dev/jot/pkg/printers"
	"tableflip.dev/jot/pkg/runner"
)

// Watch reprints the projected collection on every change until ctx is done.
type Watch struct {
	Env    *runner.Env
	View   projector.Options
	ShowID bool
	JSON   bool

	Printer *printers.PrettyPrint
}

func (w *Watch) Do(ctx context.Context) error {
	if w.Env == nil || w.Env.Client == nil {
		return errors.New("can not watch, no client")
	}
	vm := w.Env.ViewModel(w.View)
	defer vm.Close()

	if err := runner.Mount(ctx, vm, w.Env.Owner); err != nil {
		return err
	}
	if err := w.print(vm); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-vm.Events():
			switch ev.Type {
			case viewmodel.EventError:
				w.Env.Logger().Warn("collection unavailable, retrying", zap.Error(ev.Err))
				if err := vm.Retry(ctx); err != nil {
					return err
				}
			case viewmodel.EventChanged:
				if vm.Loading() {
					continue
				}
				if err := w.print(vm); err != nil {
					return err
				}
			}
		}
	}
}

func (w *Watch) print(vm *viewmodel.ViewModel) error {
	pp := w.Printer
	if pp == nil {
		pp = &printers.PrettyPrint{ShowID: w.ShowID}
	}
	items := vm.Items()
	if w.JSON {
		return pp.JSON(items...)
	}
	pp.TitleWithCount(w.Env.Client.Kind().Plural(), len(items))
	pp.Items(items...)
	return nil
}
