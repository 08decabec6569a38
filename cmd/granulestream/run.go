package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harshithgowdakt/granulestream/internal/engine"
	"github.com/harshithgowdakt/granulestream/internal/executor"
	"github.com/harshithgowdakt/granulestream/internal/metrics"
	"github.com/harshithgowdakt/granulestream/internal/server"
	"github.com/harshithgowdakt/granulestream/internal/stream"
)

func newRunCmd() *cobra.Command {
	var (
		format  string
		profile bool
	)
	cmd := &cobra.Command{
		Use:   "run [files...]",
		Short: "Run a scan pipeline and print its rows and profile",
		Long: `Run reads native block files through an optional filter, projection,
sort and limit. Rows go to stdout; the per-stream profile goes to stderr.
Files default to query.files from the config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			plan := engine.PlanConfig{
				Files:   cfg.Query.Files,
				Filter:  cfg.Query.Filter,
				Columns: cfg.Query.Columns,
				OrderBy: cfg.Query.OrderBy,
				Desc:    cfg.Query.Desc,
				Limit:   cfg.Query.Limit,
			}
			if len(args) > 0 {
				plan.Files = args
			}

			ctx := cmd.Context()
			root, err := engine.Plan(ctx, plan, engine.OpenFile, logger)
			if err != nil {
				return err
			}
			defer root.Close()

			var opts []executor.Option
			queryID := executor.NewQueryID()
			if cfg.Metrics.Enabled {
				reg := prometheus.NewRegistry()
				reg.MustRegister(metrics.NewTreeCollector(queryID, root))
				opts = append(opts, executor.WithMetrics(metrics.NewRunMetrics(reg)))
				stopMetrics := serveMetrics(cfg.Metrics.Addr, reg, logger)
				defer stopMetrics()
			}

			rw := server.NewRowWriter(cmd.OutOrStdout(), server.ParseFormat(format))
			_, runErr := executor.New(logger, opts...).Run(ctx, queryID, root, rw.WriteBlock)
			if runErr == nil {
				runErr = rw.Close()
			}
			if profile {
				if err := stream.WriteTree(cmd.ErrOrStderr(), root); err != nil {
					return errors.Join(runErr, err)
				}
			}
			return runErr
		},
	}

	flags := cmd.Flags()
	flags.String("filter", "", `Row filter, e.g. "id > 10" or "kind = 'click'"`)
	flags.StringSlice("columns", nil, "Columns to output")
	flags.StringSlice("order-by", nil, "Sort columns")
	flags.Bool("desc", false, "Sort descending")
	flags.Int64("limit", 0, "Maximum rows to output (0 for no limit)")
	flags.StringVar(&format, "format", "TabSeparated", "Output format (TabSeparated, CSV, JSON)")
	flags.BoolVar(&profile, "profile", true, "Write the stream profile to stderr")
	flags.Bool("metrics", false, "Serve Prometheus metrics while the run is in progress")
	flags.String("metrics-addr", ":9363", "Metrics listen address")
	return cmd
}

// serveMetrics exposes reg on addr until the returned func is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn().Err(err).Str("addr", addr).Msg("metrics listener")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
