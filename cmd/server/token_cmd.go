package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finance-backend/internal/auth"
)

func newTokenCmd(c *cli) *cobra.Command {
	var (
		user  string
		admin bool
		ttl   = auth.AccessTokenTTL
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development access token with the configured secret, issuer and audience",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var roles []string
			if admin {
				roles = []string{"admin"}
			}
			verifier, err := auth.NewVerifier(c.cfg.Auth)
			if err != nil {
				return err
			}
			token, err := verifier.Sign(user, roles, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "token subject (required)")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	cmd.Flags().DurationVar(&ttl, "ttl", ttl, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
