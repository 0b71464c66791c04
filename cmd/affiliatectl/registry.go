package main

import (
	"fmt"

	"github.com/iurnickita/affiliatemart/internal/registry"
	"github.com/spf13/cobra"
)

func registryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage the affiliate registry",
	}

	var seedPath, dsn string
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load affiliates from a YAML seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := registry.LoadSeed(seedPath)
			if err != nil {
				return err
			}

			cfg := a.cfg.Registry
			if dsn != "" {
				cfg.DBDsn = dsn
			}
			store, err := registry.NewStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := seed.Apply(cmd.Context(), store)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d affiliates\n", n)
			return nil
		},
	}
	seedCmd.Flags().StringVarP(&seedPath, "file", "f", "affiliates.yaml", "Seed file")
	seedCmd.Flags().StringVar(&dsn, "dsn", "", "Database DSN (default DATABASE_DSN)")

	cmd.AddCommand(seedCmd)
	return cmd
}
