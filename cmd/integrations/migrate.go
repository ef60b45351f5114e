package main

import (
	"fmt"

	"github.com/goliatone/go-integrations/settings"
	"github.com/spf13/cobra"
)

func newMigrateCommand(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the ephemeral store schema to the configured SQL database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := settings.Load(*envFiles...)
			if err != nil {
				return err
			}
			switch cfg.Driver() {
			case settings.StoreSQLite, settings.StorePostgres:
			default:
				return fmt.Errorf("store %q has no schema to migrate", cfg.Driver())
			}
			client, err := openPersistence(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer client.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", cfg.Driver())
			return nil
		},
	}
}
