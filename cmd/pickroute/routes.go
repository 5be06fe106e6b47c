package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/pickroute/internal/route"
	"github.com/nerrad567/pickroute/migrations"
)

func newRouteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Inspect and import stored routes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, closeDB, err := openRegistry(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			routes, err := registry.ListRoutes(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing routes: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tMOVES")
			for _, rt := range routes {
				fmt.Fprintf(w, "%s\t%s\t%d\n", rt.ID, rt.Name, rt.Len())
			}
			return w.Flush()
		},
	})

	var replace bool
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import routes from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening export: %w", err)
			}
			defer f.Close() //nolint:errcheck // Read-only

			routes, err := route.ParseExport(f)
			if err != nil {
				return err
			}

			registry, closeDB, err := openRegistry(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			var created, updated, skipped int
			for i := range routes {
				rt := &routes[i]
				err := registry.CreateRoute(cmd.Context(), rt)
				switch {
				case err == nil:
					created++
				case errors.Is(err, route.ErrExists) && replace:
					if err := registry.UpdateRoute(cmd.Context(), rt); err != nil {
						return fmt.Errorf("updating route %s: %w", rt.ID, err)
					}
					updated++
				case errors.Is(err, route.ErrExists):
					skipped++
				default:
					return fmt.Errorf("importing route %s: %w", rt.ID, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d routes (%d updated, %d skipped)\n", created, updated, skipped)
			return nil
		},
	}
	importCmd.Flags().BoolVar(&replace, "replace", false, "overwrite routes that already exist")
	cmd.AddCommand(importCmd)

	return cmd
}

// openRegistry opens and migrates the database and loads the route cache.
func openRegistry(cmd *cobra.Command) (*route.Registry, func(), error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database", "error", err)
		}
	}

	if err := db.Migrate(cmd.Context(), migrations.FS); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	registry := route.NewRegistry(route.NewSQLiteRepository(db.DB))
	registry.SetLogger(log)
	if err := registry.RefreshCache(cmd.Context()); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("loading routes: %w", err)
	}
	return registry, closeDB, nil
}
