package cmd

import (
	"context"
	"fmt"
	"strconv"

	"commgraph/core"

	"github.com/spf13/cobra"
)

// NewGraphCmd creates the 'graph' command group.
func NewGraphCmd() *cobra.Command {
	graphCmd := &cobra.Command{
		Use:   "graph",
		Short: "Query the relationship graph",
	}

	graphCmd.AddCommand(newGraphRelatedCmd())
	graphCmd.AddCommand(newGraphCountCmd())
	graphCmd.AddCommand(newGraphActiveCmd())

	return graphCmd
}

func newGraphRelatedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "related <account-id>",
		Short: "List accounts with a relationship to the given account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account id %q", args[0])
			}

			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			account, err := app.Accounts.GetAccountByID(ctx, accountID)
			if err != nil {
				return err
			}
			if account == nil {
				return fmt.Errorf("account %d not found", accountID)
			}

			related, err := app.Graph.GetAccountsWithRelationship(ctx, accountID)
			if err != nil {
				return fmt.Errorf("failed to get related accounts: %w", err)
			}

			if outputJSON {
				return outputAsJSON(related)
			}

			infoColor.Printf("Accounts related to %s/%s:\n", account.Type.TypeName, account.UniqueID)
			headerColor.Printf("%-8s %-15s %s\n", "ID", "TYPE", "IDENTIFIER")
			for _, a := range related {
				fmt.Printf("%-8d %-15s %s\n", a.ID, a.Type.TypeName, a.UniqueID)
			}
			return nil
		},
	}
}

func newGraphCountCmd() *cobra.Command {
	var deviceID string

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count relationship edges evidenced on a device",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			count, err := app.Query.RelationshipsCountByDevice(ctx, deviceID, nil)
			if err != nil {
				return fmt.Errorf("failed to count relationships: %w", err)
			}

			if outputJSON {
				return outputAsJSON(map[string]any{"device_id": deviceID, "relationships": count})
			}
			fmt.Printf("%d relationships on device %s\n", count, deviceID)
			return nil
		},
	}

	cmd.Flags().StringVar(&deviceID, "device", "", "Device ID")
	_ = cmd.MarkFlagRequired("device")

	return cmd
}

func newGraphActiveCmd() *cobra.Command {
	var (
		deviceIDs []string
		typeNames []string
	)

	cmd := &cobra.Command{
		Use:   "active",
		Short: "List account device instances with communications",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var subFilters []core.SubFilter
			if len(deviceIDs) > 0 {
				subFilters = append(subFilters, core.DeviceFilter{DeviceIDs: deviceIDs})
			}
			if len(typeNames) > 0 {
				subFilters = append(subFilters, core.AccountTypeFilter{TypeNames: typeNames})
			}

			adis, err := app.Query.AccountDeviceInstancesWithCommunications(ctx,
				core.NewCommunicationsFilter(subFilters...))
			if err != nil {
				return fmt.Errorf("failed to query account device instances: %w", err)
			}

			if outputJSON {
				return outputAsJSON(adis)
			}

			headerColor.Printf("%-8s %-15s %-30s %s\n", "ID", "TYPE", "IDENTIFIER", "DEVICE")
			for _, adi := range adis {
				fmt.Printf("%-8d %-15s %-30s %s\n",
					adi.Account.ID, adi.Account.Type.TypeName, adi.Account.UniqueID, adi.DeviceID)
			}
			infoColor.Printf("%d account device instances\n", len(adis))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&deviceIDs, "device", nil, "Restrict to these device IDs")
	cmd.Flags().StringSliceVar(&typeNames, "account-type", nil, "Restrict to these account types")

	return cmd
}
