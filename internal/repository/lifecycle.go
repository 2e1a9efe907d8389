package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/planetf1/egeria-connector-xtdb/internal/docstore"
	"github.com/planetf1/egeria-connector-xtdb/internal/mapping"
	"github.com/planetf1/egeria-connector-xtdb/internal/metrics"
	"github.com/planetf1/egeria-connector-xtdb/internal/models"
	"github.com/planetf1/egeria-connector-xtdb/internal/txnfn"
)

// AddEntity stores a new entity. The caller supplies type GUID, creator and
// properties; the repository stamps identity, the resolved type with its
// supertype chain, home collection and the audit trail. The input is not
// mutated.
func (r *Repository) AddEntity(ctx context.Context, e *models.Entity, userID string) (*models.Entity, error) {
	if e == nil || e.Type.GUID == "" {
		return nil, fmt.Errorf("adding entity requires a type: %w", models.ErrInvalidParameter)
	}

	if userID == "" {
		return nil, fmt.Errorf("adding entity requires a user: %w", models.ErrInvalidParameter)
	}

	it, err := r.types.InstanceType(ctx, e.Type.GUID)
	if err != nil {
		return nil, err
	}

	if it.Category != models.CategoryEntityDef {
		return nil, fmt.Errorf("type %s is not an entity type: %w", e.Type.GUID, models.ErrInvalidParameter)
	}

	stamped := *e
	stamped.Type = it
	r.stampNew(&stamped.AuditHeader, userID)

	doc, err := mapping.NewEntityDoc(&stamped)
	if err != nil {
		return nil, err
	}

	if _, err := r.submit(ctx, "put", []docstore.TxOp{docstore.Put(doc)}); err != nil {
		return nil, err
	}

	return &stamped, nil
}

// AddRelationship stores a new relationship after resolving both endpoint
// proxies: each must exist and not be soft-deleted at the snapshot the check
// runs against.
func (r *Repository) AddRelationship(ctx context.Context, rel *models.Relationship, userID string) (*models.Relationship, error) {
	if rel == nil || rel.Type.GUID == "" {
		return nil, fmt.Errorf("adding relationship requires a type: %w", models.ErrInvalidParameter)
	}

	if userID == "" {
		return nil, fmt.Errorf("adding relationship requires a user: %w", models.ErrInvalidParameter)
	}

	it, err := r.types.InstanceType(ctx, rel.Type.GUID)
	if err != nil {
		return nil, err
	}

	if it.Category != models.CategoryRelationshipDef {
		return nil, fmt.Errorf("type %s is not a relationship type: %w", rel.Type.GUID, models.ErrInvalidParameter)
	}

	snap, err := r.store.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("taking snapshot: %w", err)
	}

	for i, proxy := range []models.ProxyRef{rel.EntityOne, rel.EntityTwo} {
		if err := r.checkProxy(ctx, snap, proxy); err != nil {
			return nil, fmt.Errorf("proxy %d: %w", i+1, err)
		}
	}

	stamped := *rel
	stamped.Type = it
	r.stampNew(&stamped.AuditHeader, userID)

	doc, err := mapping.NewRelationshipDoc(&stamped)
	if err != nil {
		return nil, err
	}

	if _, err := r.submit(ctx, "put", []docstore.TxOp{docstore.Put(doc)}); err != nil {
		return nil, err
	}

	return &stamped, nil
}

func (r *Repository) stampNew(h *models.AuditHeader, userID string) {
	if h.GUID == "" {
		h.GUID = uuid.NewString()
	}

	if h.Status == models.StatusUnknown {
		h.Status = models.StatusActive
	}

	if h.MetadataCollectionID == "" {
		h.MetadataCollectionID = r.collectionID
	}

	h.CreatedBy = userID
	h.CreateTime = time.Now().UTC()
	h.Version = 1
}

func (r *Repository) checkProxy(ctx context.Context, snap docstore.Snapshot, proxy models.ProxyRef) error {
	ref, err := mapping.Ref(proxy)
	if err != nil {
		return err
	}

	doc, err := snap.Entity(ctx, ref)
	if err != nil {
		return err
	}

	if mapping.AsInt64(doc[mapping.KwCurrentStatus]) == mapping.StatusOrdinal(models.StatusDeleted) {
		return fmt.Errorf("entity %s is deleted: %w", ref, models.ErrInvalidState)
	}

	return nil
}

// DeleteEntity soft-deletes an entity and cascades over its relationships in
// one atomic transaction. The returned entity is the tombstone read back at
// the commit's own instant, so it reflects exactly what the transaction
// wrote. Deterministic failures (absent entity, already deleted) surface as
// typed errors and must not be retried; anything else is a runtime failure
// that left the store untouched and is safe to retry.
func (r *Repository) DeleteEntity(ctx context.Context, guid, userID string) (*models.Entity, error) {
	ref, err := mapping.EntityRef(guid)
	if err != nil {
		return nil, err
	}

	if userID == "" {
		return nil, fmt.Errorf("deleting entity requires a user: %w", models.ErrInvalidParameter)
	}

	op := txnfn.DeleteEntity(ref, userID, time.Now().UTC())

	instant, err := r.submit(ctx, txnfn.FnDeleteEntity, []docstore.TxOp{op})
	if err != nil {
		return nil, err
	}

	doc, err := r.store.DBAt(instant).Entity(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("reading back deleted entity: %w", err)
	}

	return mapping.EntityFromDoc(doc)
}

// PurgeEntity removes a soft-deleted entity and every relationship still
// referencing it, history included.
func (r *Repository) PurgeEntity(ctx context.Context, guid string) error {
	ref, err := mapping.EntityRef(guid)
	if err != nil {
		return err
	}

	_, err = r.submit(ctx, txnfn.FnPurgeEntity, []docstore.TxOp{txnfn.PurgeEntity(ref)})

	return err
}

// DeleteRelationship soft-deletes a relationship and returns its tombstone.
func (r *Repository) DeleteRelationship(ctx context.Context, guid, userID string) (*models.Relationship, error) {
	ref, err := mapping.RelationshipRef(guid)
	if err != nil {
		return nil, err
	}

	if userID == "" {
		return nil, fmt.Errorf("deleting relationship requires a user: %w", models.ErrInvalidParameter)
	}

	op := txnfn.DeleteRelationship(ref, userID, time.Now().UTC())

	instant, err := r.submit(ctx, txnfn.FnDeleteRelationship, []docstore.TxOp{op})
	if err != nil {
		return nil, err
	}

	doc, err := r.store.DBAt(instant).Entity(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("reading back deleted relationship: %w", err)
	}

	return mapping.RelationshipFromDoc(doc)
}

// PurgeRelationship removes a relationship and its history. Unless force is
// set the relationship must already be soft-deleted.
func (r *Repository) PurgeRelationship(ctx context.Context, guid string, force bool) error {
	ref, err := mapping.RelationshipRef(guid)
	if err != nil {
		return err
	}

	_, err = r.submit(ctx, txnfn.FnPurgeRelationship, []docstore.TxOp{txnfn.PurgeRelationship(ref, force)})

	return err
}

// submit sends one transaction to the store, recording outcome metrics and a
// structured audit line.
func (r *Repository) submit(ctx context.Context, function string, ops []docstore.TxOp) (docstore.TxInstant, error) {
	instant, err := r.store.SubmitTx(ctx, ops)
	if err != nil {
		metrics.Transactions.WithLabelValues(function, "error").Inc()
		r.log.WithError(err).WithField("function", function).Warn("transaction failed")

		return docstore.TxInstant{}, err
	}

	metrics.Transactions.WithLabelValues(function, "ok").Inc()
	r.log.WithFields(logrus.Fields{"function": function, "tx": instant.ID}).Debug("transaction committed")

	return instant, nil
}
