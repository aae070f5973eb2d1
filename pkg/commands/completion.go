package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func addCompletions(topLevel *cobra.Command) {
	shell := "bash"
	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Generates shell completion scripts",
		Long: `To load completion run

. <(jot completion)

To configure your bash shell to load completions for each session add to your bashrc

# ~/.bashrc or ~/.profile
. <(jot completion)

For zsh or fish pass --shell.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch shell {
			case "bash":
				return topLevel.GenBashCompletionV2(os.Stdout, true)
			case "zsh":
				return topLevel.GenZshCompletion(os.Stdout)
			case "fish":
				return topLevel.GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell %q", shell)
			}
		},
	}
	cmd.Flags().StringVar(&shell, "shell", shell, "Shell to generate for: bash, zsh or fish.")

	topLevel.AddCommand(cmd)
}
