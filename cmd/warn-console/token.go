package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/datavines/warn-console/internal/service"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a non-expiring API token for a machine client",
		RunE: func(cmd *cobra.Command, _ []string) error {
			username = strings.TrimSpace(username)
			if username == "" {
				return errors.New("--username is required")
			}
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if strings.TrimSpace(cfg.Auth.TokenSecret) == "" {
				return errors.New("auth.token_secret must be set, a generated secret would not be shared with the server")
			}
			tokens, err := service.NewTokenManager(cfg.Auth.TokenSecret, cfg.Auth.TokenTimeout, cfg.Auth.Algorithm, logger)
			if err != nil {
				return err
			}
			token, err := tokens.GenerateContinuousToken(username)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "User the token is issued to")
	return cmd
}
