package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkuhlmann/flowlayout/pkg/pipeline"
)

// layoutCommand creates the layout command for computing flow graph layouts.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		formats string
		noCache bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Compute block layout and positions for a flow graph",
		Long: `Compute block layout and positions for a flow graph.

The layout command takes a graph.json file, partitions the flow nodes into
basic blocks, copies shared data nodes across block boundaries, and assigns
2-D coordinates to every node and block. The default output is a layout.json
document next to the input; pass -f to also render DOT, SVG, or PNG.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Formats = parseFormats(formats)
			return c.runLayout(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	// Common flags
	cmd.Flags().StringVarP(&output, "output", "o", "", "output base path (default: input without extension)")
	cmd.Flags().StringVarP(&formats, "format", "f", "", "comma-separated output formats: json (default), dot, svg, png")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute even if a cached result exists")

	// Layout flags
	cmd.Flags().BoolVar(&opts.NoCopies, "no-copies", false, "disable cross-block data node copying")
	cmd.Flags().BoolVar(&opts.NoRelax, "no-relax", false, "disable vertical relaxation")
	cmd.Flags().BoolVar(&opts.NoTightSpacing, "no-tight-spacing", false, "disable tight horizontal spacing")
	cmd.Flags().IntVar(&opts.MaxPerNode, "max-per-node", 0, "chain enumeration budget per node (0 = default)")
	cmd.Flags().IntVar(&opts.MaxPerStart, "max-per-start", 0, "chain enumeration budget per start node (0 = default)")
	cmd.Flags().IntVar(&opts.MaxPerBlock, "max-per-block", 0, "chain enumeration budget per block (0 = default)")
	cmd.Flags().Float64Var(&opts.BlockXSpacing, "block-x-spacing", 0, "horizontal spacing between blocks (0 = default)")
	cmd.Flags().Float64Var(&opts.BlockYSpacing, "block-y-spacing", 0, "vertical spacing between stacked blocks (0 = default)")

	// Export flags
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "include port names in DOT output")

	return cmd
}

// runLayout loads the graph, runs the pipeline, and writes the artifacts.
func (c *CLI) runLayout(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	g, err := runner.Load(ctx, input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	opts.Logger = c.Logger

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()

	result, err := runner.Execute(ctx, g, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	base := output
	if base == "" {
		base = strings.TrimSuffix(input, filepath.Ext(input))
	}

	written := make([]string, 0, len(result.Artifacts))
	for _, format := range opts.Formats {
		path := artifactPath(base, format)
		if err := os.WriteFile(path, result.Artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write output %s: %w", path, err)
		}
		written = append(written, path)
	}

	printSuccess("Layout complete")
	for _, path := range written {
		printFile(path)
	}
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.LayoutHit)
	printDetail("%d blocks", result.Stats.BlockCount)
	if result.Layout.Exhausted {
		printWarning("Chain enumeration budget exhausted; layout is a best-effort approximation")
	}
	printNewline()
	printNextStep("Render", "flowlayout layout "+input+" -f svg")

	return nil
}

// artifactPath derives the output file name for a format from the base path.
func artifactPath(base, format string) string {
	if format == pipeline.FormatJSON {
		return base + ".layout.json"
	}
	return base + "." + format
}
