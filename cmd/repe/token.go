package main

import (
	"errors"
	"fmt"
	"time"

	"repe/internal/server/service"

	"github.com/spf13/cobra"
)

func (a *app) newTokenCmd() *cobra.Command {
	var (
		user string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the API",
		Long: `Issue a bearer token signed with jwt_secret. The server only accepts it
when it runs with the same secret (or both run with --dev).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			secret, err := a.cfg.SharedSecret()
			if err != nil {
				return err
			}
			token, err := service.New(nil, secret).GenerateToken(user, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "User ID recorded as the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", service.TokenTTL, "Token lifetime")
	return cmd
}
