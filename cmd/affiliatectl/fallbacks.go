package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func fallbacksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fallbacks",
		Short: "Inspect and retry deliveries that exhausted their attempts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the fallback log as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, store, err := a.openTracker()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := t.Fallbacks()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "replay",
		Short: "Resend the fallback log; delivered entries are removed",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, store, err := a.openTracker()
			if err != nil {
				return err
			}
			defer store.Close()

			delivered, remaining, err := t.Replay(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "delivered: %d, remaining: %d\n", delivered, remaining)
			return err
		},
	})

	return cmd
}
