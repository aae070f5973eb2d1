package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/jot/pkg/commands/options"
	"tableflip.dev/jot/pkg/item"
)

func New() *cobra.Command {
	v := viper.New()
	g := &options.GlobalOptions{}

	cmd := &cobra.Command{
		Use:   "jot",
		Short: base.Wrap80("Notes and todos that stay in sync."),
		Long: base.Wrap80("jot keeps a personal collection of notes and todos in a " +
			"shared store (a local diskv tree or redis) and shows live, " +
			"filterable views of it on the command line or in a terminal UI."),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	options.AddGlobalArgs(cmd, g, v)

	AddCommands(cmd, v)
	return cmd
}

func AddCommands(topLevel *cobra.Command, v *viper.Viper) {
	for _, kind := range item.AllKinds() {
		addKind(topLevel, v, kind)
	}
	addUI(topLevel, v)
	addVersion(topLevel)
	addCompletions(topLevel)
}
