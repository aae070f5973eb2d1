package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tableflip.dev/jot/pkg/commands/options"
	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/runner/ui"
)

func addUI(topLevel *cobra.Command, v *viper.Viper) {
	vo := &options.ViewOptions{}

	cmd := &cobra.Command{
		Use:   "ui [notes|todos]",
		Short: "Open the text-based user interface.",
		Example: `
jot ui
jot ui todos --sort oldest
`,
		ValidArgs: []string{item.KindNote.Plural(), item.KindTodo.Plural()},
		Args:      cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := item.KindNote
			if len(args) == 1 {
				var err error
				if kind, err = item.ParseKind(args[0]); err != nil {
					return err
				}
			}
			view, err := vo.Projection()
			if err != nil {
				return err
			}
			// Without an owner the screen opens empty.
			env, cleanup, err := loadEnv(v, kind, false)
			if err != nil {
				return err
			}
			defer cleanup()
			u := ui.UI{Env: env, View: view}
			return u.Do(cmd.Context())
		},
	}

	options.AddViewArgs(cmd, vo)

	topLevel.AddCommand(cmd)
}
