package main

import (
	"fmt"

	"github.com/iurnickita/affiliatemart/internal/auth"
	"github.com/spf13/cobra"
)

func tokenCmd(a *app) *cobra.Command {
	var role, ref string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a report access token signed with AUTH_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.NewAuth(a.cfg.Auth).Issue(role, ref)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", auth.RoleAdmin, "Token role: admin or affiliate")
	cmd.Flags().StringVar(&ref, "ref", "", "Referrer code for an affiliate token")

	return cmd
}
