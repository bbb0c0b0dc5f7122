package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) createUserCmd() *cobra.Command {
	var name, email string

	c := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user with the starter categories",
		Long: `Creates a user together with the starter categories and prints its ID.

Example:
  ledgerctl create-user --name Alex --email alex@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.users.Create(cmd.Context(), name, email)
			if err != nil {
				return err
			}

			a.logger.Info("created user", "id", user.ID, "email", user.Email)
			fmt.Fprintln(cmd.OutOrStdout(), user.ID)
			return nil
		},
	}

	c.Flags().StringVar(&name, "name", "", "name of the user")
	c.Flags().StringVar(&email, "email", "", "email address of the user")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("email")

	return c
}
