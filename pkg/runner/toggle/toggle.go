package toggle

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/jot/pkg/collection"
	"tableflip.dev/jot/pkg/collection/optimistic"
	"tableflip.dev/jot/pkg/collection/projector"
	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/printers"
	"tableflip.dev/jot/pkg/runner"
)

// Toggle flips the favorite or completed flag of one item through the
// optimistic path, the same way the list screen does.
type Toggle struct {
	Env   *runner.Env
	ID    string
	Field optimistic.Field
	JSON  bool

	Printer *printers.PrettyPrint
}

func (t *Toggle) Do(ctx context.Context) error {
	if t.Env == nil || t.Env.Client == nil {
		return errors.New("can not toggle, no client")
	}
	vm := t.Env.ViewModel(projector.Options{Sort: collection.SortNewest})
	defer vm.Close()

	if err := runner.Mount(ctx, vm, t.Env.Owner); err != nil {
		return err
	}
	if _, ok := vm.Item(t.ID); !ok {
		return fmt.Errorf("%s %q: %w", t.Env.Client.Kind(), t.ID, item.ErrNotFound)
	}

	var err error
	switch t.Field {
	case optimistic.FieldFavorite:
		err = vm.ToggleFavorite(ctx, t.ID)
	case optimistic.FieldCompleted:
		err = vm.ToggleCompleted(ctx, t.ID)
	default:
		return fmt.Errorf("can not toggle %s", t.Field)
	}
	if err != nil {
		return err
	}

	it, err := t.Env.Client.Get(ctx, t.Env.Owner, t.ID)
	if err != nil {
		return err
	}
	pp := t.Printer
	if pp == nil {
		pp = &printers.PrettyPrint{}
	}
	if t.JSON {
		return pp.JSON(it)
	}
	pp.Items(it)
	return nil
}
