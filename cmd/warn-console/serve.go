package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/datavines/warn-console/internal/server"
	"github.com/datavines/warn-console/internal/service"
	"github.com/datavines/warn-console/internal/storage/bolt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			store, err := bolt.New(cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			tokens, err := service.NewTokenManager(cfg.Auth.TokenSecret, cfg.Auth.TokenTimeout, cfg.Auth.Algorithm, logger)
			if err != nil {
				return fmt.Errorf("init token manager: %w", err)
			}
			authSvc := service.NewAuthService(cfg, tokens)
			tableSvc := service.NewTableService(store, cfg, logger)

			srv := server.New(cfg, store, tableSvc, authSvc, logger)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			// graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			select {
			case err := <-errCh:
				return fmt.Errorf("server stopped: %w", err)
			case sig := <-sigCh:
				logger.Info("shutting down", zap.String("signal", sig.String()))
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTP.WriteTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("shutdown error", zap.Error(err))
			}
			return nil
		},
	}
}
