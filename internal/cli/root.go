// Package cli is the fxseries command line: the daemon and the manual pipeline runs.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fxseries/internal/app"

	"github.com/spf13/cobra"
)

const version = "v1.0.0"

// Execute runs the command line until it finishes or the process is interrupted.
func Execute() error {
	// Root context bound to OS signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCommand().ExecuteContext(ctx)
}

func NewRootCommand() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "fxseries",
		Short:        "FX rate series fetcher and analyzer",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default ./config.yaml)")

	rootCmd.AddCommand(
		runCommand(&configFile),
		fetchCommand(&configFile),
		reportCommand(&configFile),
		exportCommand(&configFile),
	)
	return rootCmd
}

// withApp bootstraps the application for one command and closes it afterwards.
func withApp(configFile *string, fn func(cmd *cobra.Command, a *app.App) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := app.Bootstrap(cmd.Context(), *configFile)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a)
	}
}

func runCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the daily scheduler and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: withApp(configFile, func(cmd *cobra.Command, a *app.App) error {
			return a.RunDaemon(cmd.Context())
		}),
	}
}
