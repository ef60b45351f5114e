package main

import (
	"fmt"

	"github.com/goliatone/go-integrations/settings"
	"github.com/spf13/cobra"
)

func newProvidersCommand(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the providers enabled by the current environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := settings.Load(*envFiles...)
			if err != nil {
				return err
			}
			providers, err := cfg.Providers()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(providers) == 0 {
				fmt.Fprintln(out, "no providers configured")
				return nil
			}
			for _, provider := range providers {
				fmt.Fprintln(out, provider.ID())
			}
			return nil
		},
	}
}
