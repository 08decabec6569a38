// Command granulestream runs profiled scan pipelines over native block files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harshithgowdakt/granulestream/internal/config"
	"github.com/harshithgowdakt/granulestream/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "granulestream",
		Short:         "Profiled pull pipelines over columnar block files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a config file (yaml, json or toml)")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.Bool("log-pretty", true, "Human-readable console logs")

	rootCmd.AddCommand(newGenCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newDumpCmd())
	rootCmd.AddCommand(newServeCmd())
	return rootCmd
}

// loadConfig merges defaults, the config file, the environment and the
// command's flags. Logs go to the command's error stream.
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	cfg.Log.Output = cmd.ErrOrStderr()
	return cfg, logging.NewWithComponent(cfg.Log, cmd.Name()), nil
}
