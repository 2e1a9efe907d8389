package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/planetf1/egeria-connector-xtdb/internal/config"
	"github.com/planetf1/egeria-connector-xtdb/internal/connector"
	"github.com/planetf1/egeria-connector-xtdb/internal/mapping"
)

type statusOutput struct {
	Backend              string    `json:"backend"`
	MetadataCollectionID string    `json:"metadataCollectionId"`
	LastTransactionID    int64     `json:"lastTransactionId"`
	LastTransactionAt    time.Time `json:"lastTransactionAt,omitempty"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the connector backend and its latest transaction instant",
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

			snap, err := conn.Store().DB(cmd.Context())
			if err != nil {
				return err
			}

			at := snap.ValidAt()

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(statusOutput{
				Backend:              cfg.Backend,
				MetadataCollectionID: cfg.MetadataCollectionID,
				LastTransactionID:    at.ID,
				LastTransactionAt:    at.At,
			})
		},
	}
}
