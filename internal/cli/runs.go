package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	apperrors "github.com/mkuhlmann/flowlayout/pkg/errors"
	"github.com/mkuhlmann/flowlayout/pkg/session"
)

// runsCommand creates the runs command for browsing saved layout runs.
func (c *CLI) runsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse, inspect, and delete saved layout runs",
	}

	cmd.AddCommand(c.runsListCommand())
	cmd.AddCommand(c.runsShowCommand())
	cmd.AddCommand(c.runsDeleteCommand())
	cmd.AddCommand(c.runsCleanupCommand())

	return cmd
}

// openStore builds the run store from the configuration file.
func (c *CLI) openStore(ctx context.Context) (session.Store, error) {
	cfg, err := LoadConfig("")
	if err != nil {
		return nil, err
	}
	return newStore(ctx, cfg.Store)
}

// runsListCommand creates the "runs list" subcommand.
func (c *CLI) runsListCommand() *cobra.Command {
	var (
		limit       int
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(ctx, limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if len(runs) == 0 {
				printInfo("No saved runs")
				return nil
			}

			if interactive {
				return c.browseRuns(runs)
			}

			for _, run := range runs {
				printKeyValue(run.ID[:8], fmt.Sprintf("%d nodes · %d blocks · %s",
					run.NodeCount, run.BlockCount, formatRelativeTime(run.CreatedAt)))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse runs interactively")

	return cmd
}

// browseRuns opens the interactive run browser and prints the selection.
func (c *CLI) browseRuns(runs []*session.Run) error {
	model := NewRunListModel(runs)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return fmt.Errorf("run browser: %w", err)
	}

	m, ok := final.(RunListModel)
	if !ok || m.Selected == nil {
		return nil
	}

	printRun(m.Selected)
	printNewline()
	printNextStep("Delete", "flowlayout runs delete "+m.Selected.ID)
	return nil
}

// runsShowCommand creates the "runs show" subcommand.
func (c *CLI) runsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show details of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := apperrors.ValidateRunID(args[0]); err != nil {
				return err
			}

			store, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get run: %w", err)
			}
			if run == nil {
				return apperrors.New(apperrors.ErrCodeRunNotFound, "run not found: %s", args[0])
			}

			printRun(run)
			return nil
		},
	}
}

// runsDeleteCommand creates the "runs delete" subcommand.
func (c *CLI) runsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := apperrors.ValidateRunID(args[0]); err != nil {
				return err
			}

			store, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("delete run: %w", err)
			}
			printSuccess("Deleted run %s", args[0])
			return nil
		},
	}
}

// runsCleanupCommand creates the "runs cleanup" subcommand.
func (c *CLI) runsCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired runs from the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Cleanup(ctx); err != nil {
				return fmt.Errorf("cleanup runs: %w", err)
			}
			printSuccess("Removed expired runs")
			return nil
		},
	}
}

// printRun prints the details of a single run.
func printRun(run *session.Run) {
	printKeyValue("ID", run.ID)
	printKeyValue("Graph", run.GraphHash[:16])
	printKeyValue("Nodes", fmt.Sprintf("%d", run.NodeCount))
	printKeyValue("Edges", fmt.Sprintf("%d", run.EdgeCount))
	printKeyValue("Blocks", fmt.Sprintf("%d", run.BlockCount))
	printKeyValue("Created", run.CreatedAt.Format("2006-01-02 15:04:05"))
	printKeyValue("Expires", run.ExpiresAt.Format("2006-01-02 15:04:05"))
	if run.Exhausted {
		printWarning("Chain enumeration budget was exhausted for this run")
	}
}
