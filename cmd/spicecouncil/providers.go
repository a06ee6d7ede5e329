package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/spicecouncil/llm"
)

func providersCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List registered providers and the configured council",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(flags)
			if err != nil {
				return err
			}

			fmt.Println("Registered providers:")
			for _, name := range llm.ListProviders() {
				fmt.Printf("  %s\n", name)
			}

			fmt.Println("\nConfigured council:")
			for _, p := range cfg.Providers {
				state := "disabled"
				if p.Enabled {
					state = "enabled"
				}
				fmt.Printf("  %s (%s) [%s]\n", p.Name, p.Model, state)
			}

			fmt.Printf("\nEnsembling model: %s (%s)\n", cfg.Ensemble.Provider, cfg.Ensemble.Model)
			return nil
		},
	}
}
