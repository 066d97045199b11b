package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"libportal/internal/auth"
)

var (
	tokenSubject string
	tokenEmail   string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed session token for an administrator",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Auth.JWTSecret == "" {
			return errors.New("AUTH_JWT_SECRET is required")
		}
		if tokenSubject == "" {
			return errors.New("--subject is required")
		}
		tok, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Issue(tokenSubject, tokenEmail, tokenTTL)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
		return err
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "User ID the token is issued to (required)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email recorded in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "Token lifetime")
}
