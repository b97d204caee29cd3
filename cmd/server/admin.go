package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"unionhub/internal/auth/models"
)

const adminPasswordEnv = "UNIONHUB_ADMIN_PASSWORD"

var (
	adminCmd = &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}

	adminCreateCmd = &cobra.Command{
		Use:   "create USERNAME",
		Short: "Create an administrator",
		Long:  "Create an administrator. The password is read from " + adminPasswordEnv + ".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, ok := os.LookupEnv(adminPasswordEnv)
			if !ok {
				return errors.New(adminPasswordEnv + " must be set")
			}
			ctx := cliContext(cmd)
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			admin, err := a.auth.CreateAdmin(ctx, models.CreateAdminRequest{
				Username: args[0],
				Password: password,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s\n", admin.Username)
			return nil
		},
	}
)

func init() {
	adminCmd.AddCommand(adminCreateCmd)
}
