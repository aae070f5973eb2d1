package edit

import (
	"context"
	"errors"

	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/printers"
	"tableflip.dev/jot/pkg/runner"
)

// Edit applies a partial update to one item.
type Edit struct {
	Env   *runner.Env
	ID    string
	Patch item.Patch
	JSON  bool

	Printer *printers.PrettyPrint
}

func (e *Edit) Do(ctx context.Context) error {
	if e.Env == nil || e.Env.Client == nil {
		return errors.New("can not edit, no client")
	}
	if e.Patch.IsEmpty() {
		return &item.ValidationError{Field: "patch", Reason: "nothing to change"}
	}
	var (
		it  item.Item
		err error
	)
	if e.Patch.ClearImage {
		it, err = e.clearImage(ctx)
	} else {
		it, err = e.Env.Client.Update(ctx, e.Env.Owner, e.ID, e.Patch)
	}
	if err != nil {
		return err
	}

	pp := e.Printer
	if pp == nil {
		pp = &printers.PrettyPrint{ShowID: true}
	}
	if e.JSON {
		return pp.JSON(it)
	}
	pp.Detail(it)
	return nil
}

// clearImage drops the image reference and then the blob behind it.
func (e *Edit) clearImage(ctx context.Context) (item.Item, error) {
	prev, err := e.Env.Client.Get(ctx, e.Env.Owner, e.ID)
	if err != nil {
		return item.Item{}, err
	}
	it, err := e.Env.Client.Update(ctx, e.Env.Owner, e.ID, e.Patch)
	if err != nil {
		return item.Item{}, err
	}
	if url := prev.Image(); url != "" && e.Env.Blobs != nil {
		if err := e.Env.Blobs.Delete(ctx, url); err != nil {
			e.Env.Logger().Sugar().Warnw("image cleanup failed", "url", url, "error", err)
		}
	}
	return it, nil
}
