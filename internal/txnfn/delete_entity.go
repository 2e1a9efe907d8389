package txnfn

import (
	"context"
	"fmt"

	"github.com/planetf1/egeria-connector-xtdb/internal/docstore"
	"github.com/planetf1/egeria-connector-xtdb/internal/mapping"
	"github.com/planetf1/egeria-connector-xtdb/internal/metrics"
	"github.com/planetf1/egeria-connector-xtdb/internal/models"
)

// deleteEntity soft-deletes an entity and cascades over its relationships.
// The home collection is the entity's own metadataCollectionId as read inside
// this transaction, not anything the caller claims: relationships sharing the
// entity's home are soft-deleted with the same user and timestamp, reference
// copies homed elsewhere are purged. Relationships already soft-deleted keep
// their tombstones untouched, whatever their home. Every per-relationship
// effect is a nested invocation of the registered relationship function, so
// the cascade and direct calls validate on one path.
func deleteEntity(ctx context.Context, snap docstore.Snapshot, args []any) ([]docstore.TxOp, error) {
	ref, err := stringArg(args, 0, "entityRef")
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

	doc, err := requireDoc(ctx, snap, ref, models.RefEntity)
	if err != nil {
		return nil, err
	}

	if isDeleted(doc) {
		return nil, fmt.Errorf("entity %s is already deleted: %w", ref, models.ErrInvalidState)
	}

	home := mapping.AsString(doc[mapping.KwMetadataCollectionID])

	attached, err := attachedRelationships(ctx, snap, ref)
	if err != nil {
		return nil, err
	}

	ops := make([]docstore.TxOp, 0, len(attached)+1)

	for _, rel := range attached {
		if isDeleted(rel) {
			continue
		}

		if mapping.AsString(rel[mapping.KwMetadataCollectionID]) == home {
			ops = append(ops, DeleteRelationship(rel.ID(), userID, at))
		} else {
			ops = append(ops, PurgeRelationship(rel.ID(), true))
		}
	}

	ops = append(ops, docstore.Put(mapping.MarkDeleted(doc, userID, at)))

	metrics.CascadeFanout.Observe(float64(len(attached)))

	return ops, nil
}
