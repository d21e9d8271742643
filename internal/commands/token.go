package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"budgetwise/internal/auth"
	"budgetwise/internal/config"
)

func newTokenCommand() *cobra.Command {
	var user, name string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token signed with AUTH_JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.AuthEnabled() {
				return errors.New("AUTH_JWT_SECRET is not set")
			}
			tok, err := auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthIssuer).Mint(user, name, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
