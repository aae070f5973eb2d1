package add

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/printers"
	"tableflip.dev/jot/pkg/runner"
)

// Add creates one item, optionally attaching an image and the current
// location.
type Add struct {
	Env   *runner.Env
	Draft item.Draft
	// Image is a local file uploaded to the blob store after the item exists.
	Image string
	Here  bool
	JSON  bool

	Printer *printers.PrettyPrint
}

func (a *Add) Do(ctx context.Context) error {
	if a.Env == nil || a.Env.Client == nil {
		return errors.New("can not add, no client")
	}
	d := a.Draft
	d.Kind = a.Env.Client.Kind()

	if a.Here {
		if a.Env.Locator == nil {
			return errors.New("can not attach location, no locator configured")
		}
		loc, err := a.Env.Locator.Locate(ctx)
		if err != nil {
			return fmt.Errorf("locate: %w", err)
		}
		d.Extras.Location = loc
	}

	it, err := a.Env.Client.Create(ctx, a.Env.Owner, d)
	if err != nil {
		return err
	}

	if a.Image != "" {
		if it, err = a.attach(ctx, it); err != nil {
			return err
		}
	}

	pp := a.Printer
	if pp == nil {
		pp = &printers.PrettyPrint{ShowID: true}
	}
	if a.JSON {
		return pp.JSON(it)
	}
	pp.Detail(it)
	return nil
}

// attach uploads the image under the new item's id and records its URL.
func (a *Add) attach(ctx context.Context, it item.Item) (item.Item, error) {
	if a.Env.Blobs == nil {
		return it, errors.New("can not attach image, no blob store configured")
	}
	url, err := a.Env.Blobs.Upload(ctx, a.Env.Owner, it.ID, a.Image)
	if err != nil {
		return it, fmt.Errorf("upload image: %w", err)
	}
	updated, err := a.Env.Client.Update(ctx, a.Env.Owner, it.ID, item.Patch{ImageURL: &url})
	if err != nil {
		if derr := a.Env.Blobs.Delete(ctx, url); derr != nil {
			a.Env.Logger().Warn("orphaned image", zap.String("url", url), zap.Error(derr))
		}
		return it, err
	}
	return updated, nil
}
