// pickroute drives a pick/place robot along stored routes.
//
// The serve command runs the playback engine with its HTTP API, the
// detection monitor and the command dispatcher. The remaining commands
// manage the database, the route catalogue and the serial link.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/pickroute/internal/infrastructure/config"
	"github.com/nerrad567/pickroute/internal/infrastructure/database"
	"github.com/nerrad567/pickroute/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnvVar overrides the default configuration path.
const configEnvVar = "PICKROUTE_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Tests build a fresh tree per case.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pickroute",
		Short:         "Route execution engine for a pick/place robot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "configuration file (default $"+configEnvVar+" or "+defaultConfigPath+")")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newRouteCmd(),
		newSerialCmd(),
		newVersionCmd(),
	)
	return root
}

// getConfigPath returns the --config flag, then PICKROUTE_CONFIG, then the
// default path.
func getConfigPath(cmd *cobra.Command) string {
	if path, _ := cmd.Root().PersistentFlags().GetString("config"); path != "" { //nolint:errcheck // registered on root
		return path
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig loads the configuration and builds the logger it describes.
func loadConfig(cmd *cobra.Command) (*config.Config, *logging.Logger, error) {
	path := getConfigPath(cmd)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, logging.New(cfg.Logging, version), nil
}

// openDatabase opens the configured SQLite file.
func openDatabase(cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}
