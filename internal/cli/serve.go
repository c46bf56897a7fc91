package cli

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kinview/pkg/engine"
	"github.com/matzehuels/kinview/pkg/server"
)

// serveCommand creates the serve command for the HTTP preview server.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		noCache    bool
		noPrefetch bool
		reload     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve [records.json]",
		Short: "Serve interactive viewports over HTTP",
		Long: `Serve interactive viewports over HTTP.

Every client creates a session with its own camera, sends gestures and
fetches frames as SVG, JSON or PNG. All sessions share one layout. With
--reload the records are re-read periodically and the layout is rebuilt in
the background; sessions keep their camera across rebuilds.

Prometheus metrics are served at /metrics.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				c.cfg.Server.Addr = addr
			}
			return c.runServe(cmd.Context(), firstArg(args), noCache, !noPrefetch, reload)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&noPrefetch, "no-prefetch", false, "disable photo prefetching")
	cmd.Flags().DurationVar(&reload, "reload", 0, "re-read records at this interval (0 disables)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, input string, noCache, prefetch bool, reload time.Duration) error {
	records, err := c.loadRecords(ctx, input)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	st, err := c.newStack(ctx, stackOptions{noCache: noCache, prefetch: prefetch, registry: reg})
	if err != nil {
		return err
	}
	defer st.Close()

	st.engine.SetRecords(records)
	if reload > 0 {
		go c.reloadLoop(ctx, st.engine, input, reload)
	}

	srv := server.New(st.engine, server.Options{
		Config:   c.cfg,
		Gatherer: reg,
		Hooks:    st.hooks,
		Logger:   c.Logger,
	})
	printSuccess("Serving %d people", len(records))
	printKeyValue("address", c.cfg.Server.Addr)
	printKeyValue("metrics", c.cfg.Server.Addr+"/metrics")
	return srv.ListenAndServe(ctx, c.cfg.Server.Addr)
}

// reloadLoop re-reads records every interval until ctx ends. Load failures
// keep the current layout.
func (c *CLI) reloadLoop(ctx context.Context, eng *engine.Engine, input string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		records, err := c.loadRecords(ctx, input)
		if err != nil {
			c.Logger.Warn("reload failed", "err", err)
			continue
		}
		if eng.SetRecords(records) {
			c.Logger.Debug("rebuilding", "records", len(records))
		}
	}
}
