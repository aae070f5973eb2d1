package ui

import (
	"context"
	"errors"
	"os"

	"github.com/mattn/go-isatty"

	"tableflip.dev/jot/pkg/collection/projector"
	"tableflip.dev/jot/pkg/runner"
	"tableflip.dev/jot/pkg/tui/app"
)

// ErrNotTerminal is returned when stdout can not host the interactive screen.
var ErrNotTerminal = errors.New("jot ui needs an interactive terminal")

// UI opens the interactive list screen.
type UI struct {
	Env  *runner.Env
	View projector.Options
}

func (u *UI) Do(ctx context.Context) error {
	if u.Env == nil || u.Env.Client == nil {
		return errors.New("can not open ui, no client")
	}
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return ErrNotTerminal
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vm := u.Env.ViewModel(u.View)
	defer vm.Close()
	// The screen renders its own loading and error states.
	_ = vm.SetOwner(ctx, u.Env.Owner)

	return app.Run(ctx, vm, u.Env.Client.Kind())
}
