package txnfn

import (
	"context"
	"fmt"

	"github.com/planetf1/egeria-connector-xtdb/internal/docstore"
	"github.com/planetf1/egeria-connector-xtdb/internal/models"
)

// purgeRelationship evicts a relationship and its history. Without force the
// relationship must already be soft-deleted; force covers the purge of
// reference copies, which never go through a local soft-delete first.
func purgeRelationship(ctx context.Context, snap docstore.Snapshot, args []any) ([]docstore.TxOp, error) {
	ref, err := stringArg(args, 0, "relationshipRef")
	if err != nil {
		return nil, err
	}

	force, err := boolArg(args, 1, "force")
	if err != nil {
		return nil, err
	}

	doc, err := requireDoc(ctx, snap, ref, models.RefRelationship)
	if err != nil {
		return nil, err
	}

	if !force && !isDeleted(doc) {
		return nil, fmt.Errorf("relationship %s must be soft-deleted before purge: %w", ref, models.ErrInvalidState)
	}

	return []docstore.TxOp{docstore.Evict(doc.ID())}, nil
}
