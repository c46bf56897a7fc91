package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kinview/pkg/render/dot"
)

// dotCommand creates the dot command for Graphviz export.
func (c *CLI) dotCommand() *cobra.Command {
	var (
		output   string
		svg      bool
		detailed bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "dot [records.json]",
		Short: "Export the family tree as Graphviz DOT",
		Long: `Export the family tree as Graphviz DOT.

Children appear in layout order and hero nodes are highlighted. With --svg the
graph is laid out by the embedded Graphviz and written as SVG instead, which
is handy for comparing against kinview's own layout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDot(cmd.Context(), firstArg(args), output, svg, detailed, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.dot or .graphviz.svg)")
	cmd.Flags().BoolVar(&svg, "svg", false, "render with Graphviz to SVG")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "add depth and subtree size to labels")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runDot(ctx context.Context, input, output string, svg, detailed, noCache bool) error {
	records, err := c.loadRecords(ctx, input)
	if err != nil {
		return err
	}
	st, err := c.newStack(ctx, stackOptions{noCache: noCache})
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.engine.Rebuild(ctx, records)
	if err != nil {
		return err
	}

	src := dot.ToDOT(snap.Scene.Layout, snap.Scene.Index, dot.Options{
		Detailed:    detailed,
		RightToLeft: c.cfg.Layout.Direction == "rtl",
	})
	data, suffix := []byte(src), ".dot"
	if svg {
		prog := newProgress(c.Logger)
		if data, err = dot.RenderSVG(ctx, src); err != nil {
			return fmt.Errorf("render graphviz: %w", err)
		}
		prog.done("Rendered with Graphviz")
		suffix = ".graphviz.svg"
	}

	if output == "" {
		output = defaultOutput(input, suffix)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}
	printSuccess("Exported %d people", len(snap.Scene.Layout.Nodes))
	printFile(output)
	return nil
}
