package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planetf1/egeria-connector-xtdb/internal/config"
	"github.com/planetf1/egeria-connector-xtdb/internal/connector"
	"github.com/planetf1/egeria-connector-xtdb/internal/mapping"
)

func newDeleteCmd() *cobra.Command {
	var flagPurge bool

	cmd := &cobra.Command{
		Use:   "delete <entity-guid>",
		Short: "Soft-delete an entity (cascading over its relationships), or purge a tombstone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			types := mapping.NewTypeRegistry(mapping.NewStaticTypeSource())

			conn, err := connector.Open(cmd.Context(), cfg, nil, types)
			if err != nil {
				return err
			}
			defer conn.Close() //nolint:errcheck // exiting anyway.

			guid := args[0]

			if flagPurge {
				if err := conn.Repository().PurgeEntity(cmd.Context(), guid); err != nil {
					return err
				}

				_, err = fmt.Fprintf(os.Stdout, "purged %s\n", guid)

				return err
			}

			// Mutations through the CLI act as the configured server user.
			tombstone, err := conn.Repository().DeleteEntity(cmd.Context(), guid, cfg.ServerUserID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(tombstone)
		},
	}

	cmd.Flags().BoolVar(&flagPurge, "purge", false, "Hard-remove an already soft-deleted entity and its history")

	return cmd
}
