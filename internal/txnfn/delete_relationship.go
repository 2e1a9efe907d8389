package txnfn

import (
	"context"
	"fmt"

	"github.com/planetf1/egeria-connector-xtdb/internal/docstore"
	"github.com/planetf1/egeria-connector-xtdb/internal/mapping"
	"github.com/planetf1/egeria-connector-xtdb/internal/models"
)

// deleteRelationship soft-deletes a single relationship, preserving its prior
// status for a later restore.
func deleteRelationship(ctx context.Context, snap docstore.Snapshot, args []any) ([]docstore.TxOp, error) {
	ref, err := stringArg(args, 0, "relationshipRef")
	if err != nil {
		return nil, err
	}

	userID, err := stringArg(args, 1, "userID")
	if err != nil {
		return nil, err
	}

	at, err := timeArg(args, 2, "deleteTime")
	if err != nil {
		return nil, err
	}

	doc, err := requireDoc(ctx, snap, ref, models.RefRelationship)
	if err != nil {
		return nil, err
	}

	if isDeleted(doc) {
		return nil, fmt.Errorf("relationship %s is already deleted: %w", ref, models.ErrInvalidState)
	}

	return []docstore.TxOp{docstore.Put(mapping.MarkDeleted(doc, userID, at))}, nil
}
