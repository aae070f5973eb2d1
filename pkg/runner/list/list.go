package list

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/jot/pkg/collection/projector"
	"tableflip.dev/jot/pkg/printers"
	"tableflip.dev/jot/pkg/runner"
)

// List prints the projected collection once.
type List struct {
	Env    *runner.Env
	View   projector.Options
	ShowID bool
	JSON   bool

	Printer *printers.PrettyPrint
}

func (l *List) Do(ctx context.Context) error {
	if l.Env == nil || l.Env.Client == nil {
		return errors.New("can not list, no client")
	}
	vm := l.Env.ViewModel(l.View)
	defer vm.Close()

	if err := runner.Mount(ctx, vm, l.Env.Owner); err != nil {
		return err
	}

	pp := l.printer()
	items := vm.Items()
	if l.JSON {
		return pp.JSON(items...)
	}
	title := l.Env.Client.Kind().Plural()
	if l.View.Search != "" {
		title = fmt.Sprintf("%s matching %q", title, l.View.Search)
	}
	pp.TitleWithCount(title, len(items))
	pp.Items(items...)
	return nil
}

func (l *List) printer() *printers.PrettyPrint {
	if l.Printer != nil {
		return l.Printer
	}
	return &printers.PrettyPrint{ShowID: l.ShowID}
}
