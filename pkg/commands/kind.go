package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tableflip.dev/jot/pkg/collection/optimistic"
	"tableflip.dev/jot/pkg/collection/projector"
	"tableflip.dev/jot/pkg/commands/options"
	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/runner"
	"tableflip.dev/jot/pkg/runner/add"
	"tableflip.dev/jot/pkg/runner/agenda"
	"tableflip.dev/jot/pkg/runner/edit"
	"tableflip.dev/jot/pkg/runner/list"
	"tableflip.dev/jot/pkg/runner/remove"
	"tableflip.dev/jot/pkg/runner/toggle"
	"tableflip.dev/jot/pkg/runner/watch"
)

// kindCmd carries what the subcommands of one kind share.
type kindCmd struct {
	v    *viper.Viper
	kind item.Kind
}

func addKind(topLevel *cobra.Command, v *viper.Viper, kind item.Kind) {
	k := &kindCmd{v: v, kind: kind}
	plural := kind.Plural()

	cmd := &cobra.Command{
		Use:     plural,
		Aliases: []string{string(kind), string(kind)[:1]},
		Short:   fmt.Sprintf("Work with your %s.", plural),
		Example: fmt.Sprintf(`
jot %[1]s list
jot %[1]s add buy milk --body "the oat one"
jot %[1]s rm <id> <id>
`, plural),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	k.addList(cmd)
	k.addWatch(cmd)
	k.addAdd(cmd)
	k.addEdit(cmd)
	k.addFav(cmd)
	k.addRemove(cmd)
	if kind == item.KindTodo {
		k.addDone(cmd)
		k.addAgenda(cmd)
	}

	topLevel.AddCommand(cmd)
}

// do loads the environment and runs fn with it, turning errors into JSON
// when requested.
func (k *kindCmd) do(cmd *cobra.Command, oo *options.OutputOptions, fn func(ctx context.Context, env *runner.Env) error) error {
	env, cleanup, err := loadEnv(k.v, k.kind, true)
	if err != nil {
		return oo.HandleError(err)
	}
	defer cleanup()
	return oo.HandleError(fn(cmd.Context(), env))
}

func (k *kindCmd) addList(topLevel *cobra.Command) {
	vo := &options.ViewOptions{}
	io := &options.IDOptions{}
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List your %s.", k.kind.Plural()),
		Example: fmt.Sprintf(`
jot %[1]s list
jot %[1]s list --search milk --sort az
jot %[1]s list --favorites --json
`, k.kind.Plural()),
		Aliases: []string{"ls", "get"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := vo.Projection()
			if err != nil {
				return oo.HandleError(err)
			}
			return k.do(cmd, oo, func(ctx context.Context, env *runner.Env) error {
				l := list.List{Env: env, View: view, ShowID: io.ShowID, JSON: oo.JSON}
				return l.Do(ctx)
			})
		},
	}

	options.AddViewArgs(cmd, vo)
	options.AddShowIDArgs(cmd, io)
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func (k *kindCmd) addWatch(topLevel *cobra.Command) {
	vo := &options.ViewOptions{}
	io := &options.IDOptions{}
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: fmt.Sprintf("Print your %s again whenever they change.", k.kind.Plural()),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := vo.Projection()
			if err != nil {
				return oo.HandleError(err)
			}
			return k.do(cmd, oo, func(ctx context.Context, env *runner.Env) error {
				w := watch.Watch{Env: env, View: view, ShowID: io.ShowID, JSON: oo.JSON}
				return w.Do(ctx)
			})
		},
	}

	options.AddViewArgs(cmd, vo)
	options.AddShowIDArgs(cmd, io)
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func (k *kindCmd) addAdd(topLevel *cobra.Command) {
	ao := &options.AddOptions{}
	oo := &options.OutputOptions{}

	example := `
jot notes add call the plumber --body "before friday" --favorite
jot notes add holiday --body "week at the coast" --image ~/Pictures/beach.jpg --here
`
	if k.kind == item.KindTodo {
		example = `
jot todos add pack for the trip --due tomorrow --item socks --item charger
jot todos add renew passport --due 2w --color '#FFCDD2'
`
	}

	cmd := &cobra.Command{
		Use:     "add <title...>",
		Short:   fmt.Sprintf("Add a %s.", k.kind),
		Example: example,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ao.Title = strings.Join(args, " ")
			d, err := ao.Draft(k.kind, time.Now())
			if err != nil {
				return oo.HandleError(err)
			}
			return k.do(cmd, oo, func(ctx context.Context, env *runner.Env) error {
				a := add.Add{Env: env, Draft: d, Image: ao.Image, Here: ao.Here, JSON: oo.JSON}
				return a.Do(ctx)
			})
		},
	}

	options.AddAddArgs(cmd, ao, k.kind)
	options.AddOutputArg(cmd, oo)
	_ = cmd.RegisterFlagCompletionFunc("color", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return item.Palette, cobra.ShellCompDirectiveNoFileComp
	})

	topLevel.AddCommand(cmd)
}

func (k *kindCmd) addEdit(topLevel *cobra.Command) {
	eo := &options.EditOptions{}
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: fmt.Sprintf("Change a %s.", k.kind),
		Example: fmt.Sprintf(`
jot %[1]s edit <id> --title "new title"
jot %[1]s edit <id> --body "more detail"
`, k.kind.Plural()),
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: k.completeIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := eo.Patch(time.Now())
			if err != nil {
				return oo.HandleError(err)
			}
			return k.do(cmd, oo, func(ctx context.Context, env *runner.Env) error {
				e := edit.Edit{Env: env, ID: args[0], Patch: patch, JSON: oo.JSON}
				return e.Do(ctx)
			})
		},
	}

	options.AddEditArgs(cmd, eo, k.kind)
	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func (k *kindCmd) addFav(topLevel *cobra.Command) {
	k.addToggle(topLevel, "fav <id>", "Toggle the favorite mark.", []string{"favorite", "star"}, optimistic.FieldFavorite)
}

func (k *kindCmd) addDone(topLevel *cobra.Command) {
	k.addToggle(topLevel, "done <id>", "Toggle whether the todo is done.", []string{"complete", "x"}, optimistic.FieldCompleted)
}

func (k *kindCmd) addToggle(topLevel *cobra.Command, use, short string, aliases []string, field optimistic.Field) {
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:               use,
		Short:             short,
		Aliases:           aliases,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: k.completeIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return k.do(cmd, oo, func(ctx context.Context, env *runner.Env) error {
				t := toggle.Toggle{Env: env, ID: args[0], Field: field, JSON: oo.JSON}
				return t.Do(ctx)
			})
		},
	}

	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func (k *kindCmd) addRemove(topLevel *cobra.Command) {
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "rm <id...>",
		Short: fmt.Sprintf("Delete %s. Several ids are deleted together or not at all.", k.kind.Plural()),
		Example: fmt.Sprintf(`
jot %[1]s rm <id>
jot %[1]s rm <id> <id> <id>
`, k.kind.Plural()),
		Aliases:           []string{"delete", "del"},
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: k.completeIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return k.do(cmd, oo, func(ctx context.Context, env *runner.Env) error {
				r := remove.Remove{Env: env, IDs: args}
				return r.Do(ctx)
			})
		},
	}

	options.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func (k *kindCmd) addAgenda(topLevel *cobra.Command) {
	oo := &options.OutputOptions{}
	month := ""
	done := false

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Show a month of due dates.",
		Example: `
jot todos agenda
jot todos agenda --month 2024-05 --done
`,
		Aliases: []string{"cal"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var on time.Time
			if month != "" {
				var err error
				on, err = time.ParseInLocation("2006-01", month, time.Local)
				if err != nil {
					return oo.HandleError(&item.ValidationError{Field: "month", Reason: "expected YYYY-MM"})
				}
			}
			return k.do(cmd, oo, func(ctx context.Context, env *runner.Env) error {
				a := agenda.Agenda{Env: env, Month: on, Done: done}
				return a.Do(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month to show as YYYY-MM, default this month.")
	cmd.Flags().BoolVar(&done, "done", false, "Include completed todos.")

	topLevel.AddCommand(cmd)
}

// completeIDs suggests ids of the current owner's items, with titles as
// descriptions.
func (k *kindCmd) completeIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	env, cleanup, err := loadEnv(k.v, k.kind, true)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	vm := env.ViewModel(projector.Options{})
	defer vm.Close()
	if err := runner.Mount(ctx, vm, env.Owner); err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	taken := make(map[string]bool, len(args))
	for _, a := range args {
		taken[a] = true
	}
	var out []string
	for _, it := range vm.Items() {
		if taken[it.ID] || !strings.HasPrefix(it.ID, toComplete) {
			continue
		}
		out = append(out, it.ID+"\t"+it.Title)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
