package main

import (
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default event and notification templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cliContext(cmd)
		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.close()
		return a.seed(ctx)
	},
}
