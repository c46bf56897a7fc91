package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	kio "github.com/matzehuels/kinview/pkg/io"
	"github.com/matzehuels/kinview/pkg/layout"
)

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output      string
		noCache     bool
		direction   string
		levelHeight float64
	)

	cmd := &cobra.Command{
		Use:   "layout [records.json]",
		Short: "Compute the tidy-tree layout of a family",
		Long: `Compute the tidy-tree layout of a family.

The layout command reads person records (a JSON array, or an object with a
"people" array) and writes the positioned nodes and parent-child connectors to
a layout.json file. Without an argument, records come from the configured
source.

Results are cached, so repeated runs over unchanged records are instant.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("direction") {
				if _, ok := layout.ParseDirection(direction); !ok {
					return fmt.Errorf("invalid direction %q: want ltr or rtl", direction)
				}
				c.cfg.Layout.Direction = direction
			}
			if cmd.Flags().Changed("level-height") {
				c.cfg.Layout.LevelHeight = levelHeight
			}
			return c.runLayout(cmd.Context(), firstArg(args), output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&direction, "direction", "ltr", "sibling order: ltr or rtl")
	cmd.Flags().Float64Var(&levelHeight, "level-height", 0, "generation spacing (default: derived from node height)")
	completeValues(cmd, "direction", "ltr", "rtl")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input, output string, noCache bool) error {
	records, err := c.loadRecords(ctx, input)
	if err != nil {
		return err
	}

	st, err := c.newStack(ctx, stackOptions{noCache: noCache})
	if err != nil {
		return err
	}
	defer st.Close()

	spinner := newSpinner(ctx, fmt.Sprintf("Laying out %d people...", len(records)))
	spinner.Start()
	prog := newProgress(c.Logger)
	snap, err := st.engine.Rebuild(ctx, records)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Laid out %d people", len(snap.Scene.Layout.Nodes)))

	if output == "" {
		output = defaultOutput(input, ".layout.json")
	}
	if err := kio.ExportLayout(snap.Scene.Layout, output); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Layout complete")
	printFile(output)
	printStats(len(snap.Scene.Layout.Nodes), len(snap.Scene.Layout.Connections), snap.LayoutHit)
	printNewline()
	printNextStep("Render a frame", strings.TrimSpace(appName+" frame "+input))
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// defaultOutput derives an output path from input, falling back to the
// working directory when records came from a database.
func defaultOutput(input, suffix string) string {
	if input == "" {
		return "family" + suffix
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}
