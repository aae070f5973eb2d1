package agenda

import (
	"context"
	"errors"
	"time"

	"tableflip.dev/jot/pkg/collection"
	"tableflip.dev/jot/pkg/collection/projector"
	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/printers"
	"tableflip.dev/jot/pkg/runner"
)

// Agenda prints a month of todo due dates.
type Agenda struct {
	Env *runner.Env
	// Month is any time within the month to show; zero means this month.
	Month time.Time
	// Done includes completed todos.
	Done bool

	Printer *printers.PrettyPrint
}

func (a *Agenda) Do(ctx context.Context) error {
	if a.Env == nil || a.Env.Client == nil {
		return errors.New("can not show agenda, no client")
	}
	if a.Env.Client.Kind() != item.KindTodo {
		return &item.ValidationError{Field: "kind", Reason: "agenda is only available for todos"}
	}
	vm := a.Env.ViewModel(projector.Options{Sort: collection.SortOldest})
	defer vm.Close()

	if err := runner.Mount(ctx, vm, a.Env.Owner); err != nil {
		return err
	}

	todos := vm.Items()
	if !a.Done {
		open := todos[:0]
		for _, it := range todos {
			if !it.Completed {
				open = append(open, it)
			}
		}
		todos = open
	}

	month := a.Month
	if month.IsZero() {
		month = a.Env.Clock()
	}
	pp := a.Printer
	if pp == nil {
		pp = &printers.PrettyPrint{Now: a.Env.Clock}
	}
	pp.Agenda(month, todos...)
	return nil
}
