package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/pickroute/migrations"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // Process exits next

			if err := db.Migrate(cmd.Context(), migrations.FS); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
			log.Info("database migrations complete", "path", cfg.Database.Path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest applied migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // Process exits next

			if err := db.MigrateDown(cmd.Context(), migrations.FS); err != nil {
				return fmt.Errorf("rolling back migration: %w", err)
			}
			log.Info("latest migration rolled back", "path", cfg.Database.Path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // Process exits next

			applied, pending, err := db.MigrationStatus(cmd.Context(), migrations.FS)
			if err != nil {
				return fmt.Errorf("reading migration status: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED")
			for _, m := range applied {
				fmt.Fprintf(w, "%s\tapplied\t%s\n", m.Version, m.AppliedAt.UTC().Format(time.RFC3339))
			}
			for _, m := range pending {
				fmt.Fprintf(w, "%s_%s\tpending\t-\n", m.Version, m.Name)
			}
			return w.Flush()
		},
	})

	return cmd
}
