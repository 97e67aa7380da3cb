package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/dispensary/internal/auth"
)

func newTokenCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an existing admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := bootstrap()
			if err != nil {
				return err
			}
			defer e.close()

			svc := auth.NewService(e.db, e.cfg.JWTSecret, e.cfg.TokenTTL)
			admin, err := svc.GetByUsername(cmd.Context(), username)
			if err != nil {
				return err
			}
			tok, err := svc.Token(admin)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Admin username (required)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
