package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for flowlayout. With completions
loaded, subcommands, flags like --format, and run IDs passed to
"flowlayout runs show" complete with Tab.

To try it in the current shell:

Bash:
  $ source <(flowlayout completion bash)

Zsh:
  $ source <(flowlayout completion zsh)

Fish:
  $ flowlayout completion fish | source

To install permanently, write the script where your shell picks it up:

Bash (Linux):
  $ flowlayout completion bash > /etc/bash_completion.d/flowlayout
Bash (macOS with Homebrew):
  $ flowlayout completion bash > $(brew --prefix)/etc/bash_completion.d/flowlayout
Zsh:
  $ flowlayout completion zsh > "${fpath[1]}/_flowlayout"
Fish:
  $ flowlayout completion fish > ~/.config/fish/completions/flowlayout.fish
PowerShell:
  PS> flowlayout completion powershell > flowlayout.ps1
  # then dot-source flowlayout.ps1 from your PowerShell profile

Zsh needs compinit enabled; if it is not, run once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}
