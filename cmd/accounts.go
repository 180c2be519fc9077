package cmd

import (
	"context"
	"fmt"

	"commgraph/core"

	"github.com/spf13/cobra"
)

// NewAccountsCmd creates the 'accounts' command group.
func NewAccountsCmd() *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect the accounts recorded in the case",
	}

	accountsCmd.AddCommand(newAccountsListCmd())
	accountsCmd.AddCommand(newAccountsInstancesCmd())

	return accountsCmd
}

func newAccountsListCmd() *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List accounts of one type",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			accountType, err := app.Types.GetAccountType(ctx, typeName)
			if err != nil {
				return err
			}
			if accountType == nil {
				return fmt.Errorf("unknown account type %q", typeName)
			}

			accounts, err := app.Accounts.GetAccounts(ctx, *accountType)
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if outputJSON {
				return outputAsJSON(accounts)
			}

			headerColor.Printf("%-8s %-15s %s\n", "ID", "TYPE", "IDENTIFIER")
			for _, a := range accounts {
				fmt.Printf("%-8d %-15s %s\n", a.ID, a.Type.TypeName, a.UniqueID)
			}
			infoColor.Printf("%d accounts\n", len(accounts))
			return nil
		},
	}

	cmd.Flags().StringVar(&typeName, "type", "", "Account type name")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func newAccountsInstancesCmd() *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "instances",
		Short: "List recorded account instances of one type",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			instances, err := app.Instances.GetAccountInstances(ctx, core.AccountType{TypeName: typeName})
			if err != nil {
				return fmt.Errorf("failed to list account instances: %w", err)
			}

			if outputJSON {
				return outputAsJSON(instances)
			}

			headerColor.Printf("%-10s %-10s %-15s %s\n", "ARTIFACT", "ACCOUNT", "TYPE", "IDENTIFIER")
			for _, instance := range instances {
				fmt.Printf("%-10d %-10d %-15s %s\n",
					instance.Artifact.ID, instance.Account.ID,
					instance.Account.Type.TypeName, instance.Account.UniqueID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&typeName, "type", "", "Account type name")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}
