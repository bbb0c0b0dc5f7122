package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) denormalizeCmd() *cobra.Command {
	var userID string

	c := &cobra.Command{
		Use:   "denormalize",
		Short: "Refresh account and category names stored on transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.user(cmd.Context(), userID)
			if err != nil {
				return err
			}

			n, err := a.engine.RefreshNames(cmd.Context(), user)
			if err != nil {
				return err
			}

			a.logger.Info("refreshed transaction names", "user", user, "transactions", n)
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	c.Flags().StringVar(&userID, "user", "", "ID of the user")
	_ = c.MarkFlagRequired("user")

	return c
}
