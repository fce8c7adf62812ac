// Package main is the entry point for browserkit, a runner for scripted
// browser checks.
//
// Run a script file:
//
//	browserkit run login.yaml --browser firefox
//
// Every run writes Results/<runID>/log.txt, Results/<runID>/results.txt and
// appends its final result to Results/all.txt.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

var osExit = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := buildRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		osExit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "browserkit",
		Short:         "Run scripted browser checks and record their results",
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to YAML configuration file (default ./browserkit.yaml)")

	rootCmd.AddCommand(
		buildRunCmd(),
		buildListCmd(),
		buildValidateCmd(),
		buildHistoryCmd(),
	)
	return rootCmd
}
