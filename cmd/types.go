package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"commgraph/core"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const maxImportFileSize = 10 * 1024 * 1024 // 10MB

// typeCatalogue is the YAML shape accepted by 'types import'.
type typeCatalogue struct {
	AccountTypes []struct {
		Name        string `yaml:"name"`
		DisplayName string `yaml:"display_name"`
	} `yaml:"account_types"`
}

// NewTypesCmd creates the 'types' command group.
func NewTypesCmd() *cobra.Command {
	typesCmd := &cobra.Command{
		Use:   "types",
		Short: "Manage the account type catalogue",
	}

	typesCmd.AddCommand(newTypesListCmd())
	typesCmd.AddCommand(newTypesAddCmd())
	typesCmd.AddCommand(newTypesImportCmd())

	return typesCmd
}

func newTypesListCmd() *cobra.Command {
	var inUse bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered account types",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			types, err := app.Accounts.GetAccountTypesInUse(ctx)
			if err != nil {
				return fmt.Errorf("failed to list account types: %w", err)
			}
			if !inUse {
				// The full catalogue, not just the types seen in evidence.
				rows, err := app.DB.ReadDB.QueryContext(ctx,
					`SELECT type_name, display_name FROM account_types ORDER BY type_name`)
				if err != nil {
					return fmt.Errorf("failed to list account types: %w", err)
				}
				defer rows.Close()
				types = types[:0]
				for rows.Next() {
					var t core.AccountType
					if err := rows.Scan(&t.TypeName, &t.DisplayName); err != nil {
						return fmt.Errorf("failed to scan account type: %w", err)
					}
					types = append(types, t)
				}
				if err := rows.Err(); err != nil {
					return fmt.Errorf("failed to list account types: %w", err)
				}
			}

			if outputJSON {
				return outputAsJSON(types)
			}

			headerColor.Printf("%-20s %s\n", "TYPE", "DISPLAY NAME")
			for _, t := range types {
				fmt.Printf("%-20s %s\n", t.TypeName, t.DisplayName)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&inUse, "in-use", false, "Only show types observed in evidence")

	return cmd
}

func newTypesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <display-name>",
		Short: "Register an account type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			accountType, err := app.Types.AddAccountType(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to add account type: %w", err)
			}

			if outputJSON {
				return outputAsJSON(accountType)
			}
			successColor.Printf("Registered account type %s (%s)\n", accountType.TypeName, accountType.DisplayName)
			return nil
		},
	}
}

func newTypesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import account types from a YAML catalogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("failed to read catalogue: %w", err)
			}
			if info.Size() > maxImportFileSize {
				return fmt.Errorf("catalogue file too large (%d bytes, max %d)", info.Size(), maxImportFileSize)
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read catalogue: %w", err)
			}

			var catalogue typeCatalogue
			if err := yaml.Unmarshal(data, &catalogue); err != nil {
				return fmt.Errorf("failed to parse catalogue: %w", err)
			}
			if len(catalogue.AccountTypes) == 0 {
				return fmt.Errorf("catalogue contains no account types")
			}

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			s.Suffix = " Importing account types..."
			s.Start()

			imported := 0
			for _, entry := range catalogue.AccountTypes {
				if entry.Name == "" {
					continue
				}
				display := entry.DisplayName
				if display == "" {
					display = entry.Name
				}
				if _, err := app.Types.AddAccountType(ctx, entry.Name, display); err != nil {
					s.Stop()
					return fmt.Errorf("failed to import account type %q: %w", entry.Name, err)
				}
				imported++
			}
			s.Stop()

			successColor.Printf("Imported %d account types\n", imported)
			return nil
		},
	}
}
