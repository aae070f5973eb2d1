package remove

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/jot/pkg/collection"
	"tableflip.dev/jot/pkg/collection/projector"
	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/runner"
)

// Remove deletes items. One id takes the single-delete path; several are
// selected and removed in one atomic batch.
type Remove struct {
	Env *runner.Env
	IDs []string
	// Out receives the summary line, color.Output when nil.
	Out io.Writer
}

func (r *Remove) Do(ctx context.Context) error {
	if r.Env == nil || r.Env.Client == nil {
		return errors.New("can not remove, no client")
	}
	ids := unique(r.IDs)
	if len(ids) == 0 {
		return &item.ValidationError{Field: "id", Reason: "at least one id is required"}
	}
	vm := r.Env.ViewModel(projector.Options{Sort: collection.SortNewest})
	defer vm.Close()

	if err := runner.Mount(ctx, vm, r.Env.Owner); err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := vm.Item(id); !ok {
			return fmt.Errorf("%s %q: %w", r.Env.Client.Kind(), id, item.ErrNotFound)
		}
	}

	if len(ids) == 1 {
		if err := vm.DeleteOne(ctx, ids[0]); err != nil {
			return err
		}
	} else {
		for _, id := range ids {
			if !vm.IsSelected(id) {
				vm.LongPress(id)
			}
		}
		if err := vm.DeleteSelected(ctx); err != nil {
			return err
		}
	}

	out := r.Out
	if out == nil {
		out = color.Output
	}
	f := color.New(color.Faint)
	_, _ = f.Fprintf(out, "removed %d %s\n", len(ids), noun(r.Env.Client.Kind(), len(ids)))
	return nil
}

func noun(kind item.Kind, n int) string {
	if n == 1 {
		return string(kind)
	}
	return kind.Plural()
}

// unique drops repeated ids, keeping the first occurrence.
func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
