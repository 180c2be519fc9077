// Package cmd provides the command-line interface for the communications
// graph case database.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"commgraph/bootstrap"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags
var (
	outputJSON bool
	configFile string
	noColor    bool
)

const defaultTimeout = 5 * time.Minute

// NewRootCmd creates the root command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "commgraph",
		Short: "Explore the communications graph of a case",
		Long: `commgraph maintains a case database of communication accounts, the
sources they were observed in, and the relationships evidenced between
them, and answers filtered queries over that graph.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewTypesCmd())
	rootCmd.AddCommand(NewAccountsCmd())
	rootCmd.AddCommand(NewGraphCmd())

	return rootCmd
}

// initApp builds the wired application and a cleanup func for commands.
func initApp(ctx context.Context) (*bootstrap.App, func(), error) {
	app, err := bootstrap.NewApp(ctx, configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize: %w", err)
	}
	cleanup := func() {
		_ = app.Close()
	}
	return app, cleanup, nil
}

func outputAsJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
