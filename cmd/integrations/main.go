package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "integrations",
		Short:         "OAuth2 integrations service for HubSpot, Airtable and Notion",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading the environment (default .env when present)")

	root.AddCommand(
		newServeCommand(&envFiles),
		newProvidersCommand(&envFiles),
		newMigrateCommand(&envFiles),
	)
	return root
}
