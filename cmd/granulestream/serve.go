package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/harshithgowdakt/granulestream/internal/executor"
	"github.com/harshithgowdakt/granulestream/internal/metrics"
	"github.com/harshithgowdakt/granulestream/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve scan pipelines over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			exec := executor.New(logger, executor.WithMetrics(metrics.NewRunMetrics(reg)))
			handler := server.NewQueryHandler(cfg.Server.DataDir, logger, reg, exec)

			logger.Info().Str("data_dir", cfg.Server.DataDir).Msg("starting")
			return server.NewServer(cfg.Server.Addr, handler, reg, logger).Start(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.String("addr", ":8123", "HTTP listen address")
	flags.String("data-dir", "./granulestream-data", "Directory holding native block files")
	return cmd
}
