package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpggio/carwizard/internal/catalog"
	"github.com/rpggio/carwizard/internal/config"
	"github.com/rpggio/carwizard/internal/sqlite"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the vehicle catalog",
	}
	cmd.AddCommand(newCatalogImportCmd())
	return cmd
}

func newCatalogImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load vehicles from a YAML catalog file",
		Long: `Validate a YAML catalog file and upsert its vehicles by id.

New vehicles are appended to the catalog order. Vehicles that already exist
are replaced in place. Nothing is written if any entry is invalid.`,
		Example: `  carwizard catalog import vehicles.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			db, err := openDB(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := importCatalog(cmd.Context(), sqlite.NewCatalogRepository(db), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d vehicles from %s\n", n, args[0])
			return nil
		},
	}
}

func importCatalog(ctx context.Context, repo *sqlite.CatalogRepository, path string) (int, error) {
	vehicles, err := catalog.LoadFile(path)
	if err != nil {
		return 0, err
	}
	if err := repo.Upsert(ctx, vehicles); err != nil {
		return 0, err
	}
	return len(vehicles), nil
}
