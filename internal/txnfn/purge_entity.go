package txnfn

import (
	"context"
	"fmt"

	"github.com/planetf1/egeria-connector-xtdb/internal/docstore"
	"github.com/planetf1/egeria-connector-xtdb/internal/metrics"
	"github.com/planetf1/egeria-connector-xtdb/internal/models"
)

// purgeEntity removes a soft-deleted entity and its history, evicting every
// relationship still referencing it regardless of home or status. Nothing may
// keep a dangling proxy after the commit.
func purgeEntity(ctx context.Context, snap docstore.Snapshot, args []any) ([]docstore.TxOp, error) {
	ref, err := stringArg(args, 0, "entityRef")
	if err != nil {
		return nil, err
	}

	doc, err := requireDoc(ctx, snap, ref, models.RefEntity)
	if err != nil {
		return nil, err
	}

	if !isDeleted(doc) {
		return nil, fmt.Errorf("entity %s must be soft-deleted before purge: %w", ref, models.ErrInvalidState)
	}

	attached, err := attachedRelationships(ctx, snap, ref)
	if err != nil {
		return nil, err
	}

	ops := make([]docstore.TxOp, 0, len(attached)+1)

	for _, rel := range attached {
		ops = append(ops, docstore.Evict(rel.ID()))
	}

	ops = append(ops, docstore.Evict(ref))

	metrics.CascadeFanout.Observe(float64(len(attached)))

	return ops, nil
}
