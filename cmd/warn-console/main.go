package main

import (
	"fmt"
	"os"

	"github.com/datavines/warn-console/internal/config"
	"github.com/datavines/warn-console/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "warn-console",
		Short:         "Warning, warning metric and notice tables for the data quality console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to config file")
	root.AddCommand(newServeCmd(), newTokenCmd())
	return root
}

func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}
