package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpggio/carwizard/internal/config"
	"github.com/rpggio/carwizard/internal/repository"
	"github.com/rpggio/carwizard/internal/sqlite"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}
	cmd.AddCommand(newKeysAddCmd())
	return cmd
}

func newKeysAddCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <identity> <token>",
		Short: "Register a bearer token for an identity",
		Long: `Register a bearer token for an identity. Only the sha256 of the token is
stored. Requests authenticate with "Authorization: Bearer <token>" when
auth is enabled.`,
		Example: `  carwizard keys add kiosk-1 "$(openssl rand -hex 32)" --description "showroom kiosk"`,
		Args:    cobra.ExactArgs(2),
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

			identity, token := args[0], args[1]
			err = sqlite.NewIdentityRepository(db).AddAPIKey(cmd.Context(), token, identity, description)
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("token is already registered")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added key for %s\n", identity)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Note stored with the key")
	return cmd
}
