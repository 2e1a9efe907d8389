package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/planetf1/egeria-connector-xtdb/internal/config"
	"github.com/planetf1/egeria-connector-xtdb/internal/connector"
	"github.com/planetf1/egeria-connector-xtdb/internal/mapping"
	"github.com/planetf1/egeria-connector-xtdb/internal/models"
)

func newSearchCmd() *cobra.Command {
	var (
		flagTypeGUID string
		flagSubtypes []string
		flagOffset   int
		flagPageSize int
		flagCompile  bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run an entity search by type, or print the compiled query",
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

			criteria := &models.EntitySearchCriteria{
				TypeGUID:     flagTypeGUID,
				SubtypeGUIDs: flagSubtypes,
				Offset:       flagOffset,
				PageSize:     flagPageSize,
			}

			if flagCompile {
				doc, err := conn.Repository().CompileEntitySearch(criteria)
				if err != nil {
					return err
				}

				_, err = os.Stdout.WriteString(doc.EDN() + "\n")

				return err
			}

			entities, err := conn.Repository().FindEntities(cmd.Context(), criteria)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(entities)
		},
	}

	cmd.Flags().StringVar(&flagTypeGUID, "type-guid", "", "Restrict to instances of this type or its subtypes")
	cmd.Flags().StringSliceVar(&flagSubtypes, "subtype", nil, "Explicit subtype GUID restriction (repeatable)")
	cmd.Flags().IntVar(&flagOffset, "offset", 0, "Zero-based result offset")
	cmd.Flags().IntVar(&flagPageSize, "page-size", 0, "Maximum results per page")
	cmd.Flags().BoolVar(&flagCompile, "compile", false, "Print the compiled query instead of executing it")

	return cmd
}
