package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"docvault/internal/config"
)

// @title Document Vault API
// @version 1.0
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	if err := newRootCommand(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCommand returns the docvault command. Without a subcommand it serves the API.
func newRootCommand(cfg *config.AppConfig) *cobra.Command {
	cobra.EnableCommandSorting = false
	rootCmd := &cobra.Command{
		Use:           "docvault",
		Short:         "Document vault HTTP API.",
		Long:          `Stores uploaded documents, renders thumbnails, bundles archives and issues public links.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	rootCmd.AddCommand(newServeCommand(cfg))
	rootCmd.AddCommand(newMigrateCommand(cfg))

	return rootCmd
}
