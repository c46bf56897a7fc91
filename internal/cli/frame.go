package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kinview/pkg/engine"
	"github.com/matzehuels/kinview/pkg/errors"
	"github.com/matzehuels/kinview/pkg/family"
	"github.com/matzehuels/kinview/pkg/geom"
	"github.com/matzehuels/kinview/pkg/render"
	"github.com/matzehuels/kinview/pkg/render/sink"
)

// maxSettle bounds the simulated navigation time of `frame --navigate`.
const maxSettle = 10 * time.Second

type frameOptions struct {
	output   string
	format   string
	width    float64
	height   float64
	scale    float64
	tx, ty   float64
	navigate int64
	stats    bool
	noCache  bool
}

// frameCommand creates the frame command.
func (c *CLI) frameCommand() *cobra.Command {
	var opts frameOptions

	cmd := &cobra.Command{
		Use:   "frame [records.json]",
		Short: "Render one viewport frame",
		Long: `Render one viewport frame of a family tree.

The camera starts at the given transform (--tx, --ty, --scale). With
--navigate the camera animates to the given person first, exactly as a
viewer tapping on them would, and the frame is taken once it settles.

Output formats: svg (default), json (the draw primitives), png (needs
rsvg-convert).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("navigate") {
				opts.navigate = -1
			}
			return c.runFrame(cmd.Context(), firstArg(args), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <input>.<format>)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "svg", "output format: svg, json, png")
	cmd.Flags().Float64Var(&opts.width, "width", 1280, "viewport width in pixels")
	cmd.Flags().Float64Var(&opts.height, "height", 800, "viewport height in pixels")
	cmd.Flags().Float64Var(&opts.scale, "scale", 1, "camera scale")
	cmd.Flags().Float64Var(&opts.tx, "tx", 0, "camera x translation")
	cmd.Flags().Float64Var(&opts.ty, "ty", 0, "camera y translation")
	cmd.Flags().Int64Var(&opts.navigate, "navigate", 0, "animate to this person id before rendering")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "annotate the SVG with frame statistics")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	completeValues(cmd, "format", "svg", "json", "png")

	return cmd
}

func (c *CLI) runFrame(ctx context.Context, input string, opts frameOptions) error {
	if err := errors.ValidateFormat(opts.format, "svg", "json", "png"); err != nil {
		return err
	}
	size := geom.Size{W: opts.width, H: opts.height}
	if !(size.W > 0 && size.H > 0) {
		return errors.New(errors.ErrCodeInvalidInput, "viewport must be positive, got %vx%v", size.W, size.H)
	}

	records, err := c.loadRecords(ctx, input)
	if err != nil {
		return err
	}
	st, err := c.newStack(ctx, stackOptions{noCache: opts.noCache})
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.engine.Rebuild(ctx, records)
	if err != nil {
		return err
	}

	eng := st.engine
	if !eng.Controller().SetTransform(geom.Transform{TranslateX: opts.tx, TranslateY: opts.ty, Scale: opts.scale}) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid camera transform")
	}
	eng.SetViewportSize(size)
	if opts.navigate >= 0 {
		if err := eng.NavigateToNode(family.ID(opts.navigate)); err != nil {
			return err
		}
		settled := settle(eng.Step)
		c.Logger.Debug("navigation settled", "after", settled, "transform", eng.Controller().Transform())
	}

	f, err := eng.Frame(size)
	if err != nil {
		return err
	}
	data, err := encodeFrame(eng, f, opts)
	if err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		output = defaultOutput(input, "."+opts.format)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Rendered %s frame", f.Tier)
	printFile(output)
	printDetail("%d visible · %d edges · %d primitives", f.Stats.VisibleNodes, f.Stats.Edges, f.Stats.Primitives)
	if f.Stats.NodesTruncated || f.Stats.EdgesTruncated {
		printInfo("frame truncated at the configured caps")
	}
	c.Logger.Debug("frame", "layout_cached", snap.LayoutHit, "prefetched", f.Stats.Prefetched)
	return nil
}

// settle steps an animation at 60fps until it stops or maxSettle elapses and
// returns the simulated time taken.
func settle(step func(time.Duration) bool) time.Duration {
	const dt = time.Second / 60
	var elapsed time.Duration
	for elapsed < maxSettle {
		elapsed += dt
		if !step(dt) {
			break
		}
	}
	return elapsed
}

func encodeFrame(eng *engine.Engine, f render.Frame, opts frameOptions) ([]byte, error) {
	var svgOpts []sink.SVGOption
	if opts.stats {
		svgOpts = append(svgOpts, sink.WithStats())
	}
	switch opts.format {
	case "json":
		return sink.JSON(f)
	case "png":
		return sink.PNG(f, 2, append(svgOpts, sink.WithFonts(eng.Fonts()))...)
	default:
		return eng.SVG(f, svgOpts...), nil
	}
}
