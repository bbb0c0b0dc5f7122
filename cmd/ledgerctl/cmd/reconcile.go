package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (a *app) reconcileCmd() *cobra.Command {
	var userID, categoryID string

	c := &cobra.Command{
		Use:   "reconcile",
		Short: "Recalculate budget spending from the transactions",
		Long: `Recalculates the spent amount of the allocations in a user's active
budgets from the transactions. This repairs budgets that were not
updated after a transaction was saved and can be repeated at any time.

Example:
  ledgerctl reconcile --user 4e743e94-6a4b-44d6-aba5-d77c87103ff7
  ledgerctl reconcile --user 4e743e94-6a4b-44d6-aba5-d77c87103ff7 --category b1c6d4b4-1a07-4e41-9d89-38e2a1b3c0a7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			user, err := a.user(ctx, userID)
			if err != nil {
				return err
			}

			if categoryID == "" {
				if err := a.engine.ReconcileUser(ctx, user); err != nil {
					return err
				}

				a.logger.Info("reconciled all budgets", "user", user)
				return nil
			}

			category, err := uuid.Parse(categoryID)
			if err != nil {
				return fmt.Errorf("invalid category ID %q: %w", categoryID, err)
			}

			if err := a.engine.ReconcileBudgetsForCategory(ctx, user, category); err != nil {
				return err
			}

			a.logger.Info("reconciled budgets", "user", user, "category", category)
			return nil
		},
	}

	c.Flags().StringVar(&userID, "user", "", "ID of the user")
	c.Flags().StringVar(&categoryID, "category", "", "only reconcile the budgets of this category")
	_ = c.MarkFlagRequired("user")

	return c
}
