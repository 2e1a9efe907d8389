package txnfn_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/planetf1/egeria-connector-xtdb/internal/docstore"
	"github.com/planetf1/egeria-connector-xtdb/internal/mapping"
	"github.com/planetf1/egeria-connector-xtdb/internal/models"
	"github.com/planetf1/egeria-connector-xtdb/internal/txnfn"
)

const localCollection = "local-collection"

var deleteTime = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func entityDoc(t *testing.T, guid, home string) docstore.Document {
	t.Helper()

	doc, err := mapping.NewEntityDoc(&models.Entity{
		AuditHeader: models.AuditHeader{
			GUID:                 guid,
			Type:                 models.InstanceType{GUID: "asset", Category: models.CategoryEntityDef},
			MetadataCollectionID: home,
			Status:               models.StatusActive,
			CreatedBy:            "alice",
			CreateTime:           time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Version:              1,
		},
	})
	if err != nil {
		t.Fatalf("building entity doc: %v", err)
	}

	return doc
}

func relationshipDoc(t *testing.T, guid, home, oneGUID, twoGUID string) docstore.Document {
	t.Helper()

	doc, err := mapping.NewRelationshipDoc(&models.Relationship{
		AuditHeader: models.AuditHeader{
			GUID:                 guid,
			Type:                 models.InstanceType{GUID: "related-to", Category: models.CategoryRelationshipDef},
			MetadataCollectionID: home,
			Status:               models.StatusActive,
			CreatedBy:            "alice",
			CreateTime:           time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Version:              1,
		},
		EntityOne: models.ProxyRef{Kind: models.RefEntity, GUID: oneGUID},
		EntityTwo: models.ProxyRef{Kind: models.RefEntity, GUID: twoGUID},
	})
	if err != nil {
		t.Fatalf("building relationship doc: %v", err)
	}

	return doc
}

// graphStore seeds a store with two entities joined by an owned relationship
// plus a reference-copy relationship onto the first entity.
func graphStore(t *testing.T) *docstore.MemStore {
	t.Helper()

	s := docstore.NewMemStore(nil)
	txnfn.RegisterAll(s)

	ops := []docstore.TxOp{
		docstore.Put(entityDoc(t, "ent-1", localCollection)),
		docstore.Put(entityDoc(t, "ent-2", localCollection)),
		docstore.Put(relationshipDoc(t, "rel-owned", localCollection, "ent-1", "ent-2")),
		docstore.Put(relationshipDoc(t, "rel-foreign", "remote-collection", "ent-1", "ent-2")),
	}

	if _, err := s.SubmitTx(context.Background(), ops); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	return s
}

func statusOf(t *testing.T, s *docstore.MemStore, ref string) int64 {
	t.Helper()

	snap, err := s.DB(context.Background())
	if err != nil {
		t.Fatalf("taking snapshot: %v", err)
	}

	doc, err := snap.Entity(context.Background(), ref)
	if err != nil {
		t.Fatalf("reading %s: %v", ref, err)
	}

	return mapping.AsInt64(doc[mapping.KwCurrentStatus])
}

func TestDeleteEntity_Cascade(t *testing.T) {
	s := graphStore(t)
	ctx := context.Background()

	op := txnfn.DeleteEntity("e_ent-1", "bob", deleteTime)

	if _, err := s.SubmitTx(ctx, []docstore.TxOp{op}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := statusOf(t, s, "e_ent-1"); got != int64(models.StatusDeleted) {
		t.Errorf("entity must be soft-deleted, status %d", got)
	}

	if got := statusOf(t, s, "r_rel-owned"); got != int64(models.StatusDeleted) {
		t.Errorf("owned relationship must be soft-deleted, status %d", got)
	}

	snap, err := s.DB(ctx)
	if err != nil {
		t.Fatalf("taking snapshot: %v", err)
	}

	if _, err := snap.Entity(ctx, "r_rel-foreign"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("reference-copy relationship must be purged, got %v", err)
	}

	if got := statusOf(t, s, "e_ent-2"); got != int64(models.StatusActive) {
		t.Errorf("other endpoint must be untouched, status %d", got)
	}
}

func TestDeleteEntity_TombstonePreservesPriorStatus(t *testing.T) {
	s := graphStore(t)
	ctx := context.Background()

	if _, err := s.SubmitTx(ctx, []docstore.TxOp{txnfn.DeleteEntity("e_ent-1", "bob", deleteTime)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := s.DB(ctx)
	if err != nil {
		t.Fatalf("taking snapshot: %v", err)
	}

	doc, err := snap.Entity(ctx, "e_ent-1")
	if err != nil {
		t.Fatalf("reading tombstone: %v", err)
	}

	if mapping.AsInt64(doc[mapping.KwStatusOnDelete]) != int64(models.StatusActive) {
		t.Errorf("prior status not preserved: %v", doc[mapping.KwStatusOnDelete])
	}

	if mapping.AsString(doc[mapping.KwUpdatedBy]) != "bob" {
		t.Errorf("deleting user not recorded: %v", doc[mapping.KwUpdatedBy])
	}

	if mapping.AsInt64(doc[mapping.KwVersion]) != 2 {
		t.Errorf("version not bumped: %v", doc[mapping.KwVersion])
	}
}

func TestDeleteEntity_AlreadyDeleted(t *testing.T) {
	s := graphStore(t)
	ctx := context.Background()

	op := txnfn.DeleteEntity("e_ent-1", "bob", deleteTime)

	if _, err := s.SubmitTx(ctx, []docstore.TxOp{op}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.SubmitTx(ctx, []docstore.TxOp{op}); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on re-delete, got %v", err)
	}
}

func TestDeleteEntity_NotFound(t *testing.T) {
	s := graphStore(t)

	op := txnfn.DeleteEntity("e_missing", "bob", deleteTime)

	if _, err := s.SubmitTx(context.Background(), []docstore.TxOp{op}); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteEntity_FailureLeavesNoPartialEffects(t *testing.T) {
	s := docstore.NewMemStore(nil)
	txnfn.RegisterAll(s)
	ctx := context.Background()

	// Seed an already-deleted entity so the delete fails after validation
	// would have staged nothing.
	ops := []docstore.TxOp{
		docstore.Put(entityDoc(t, "ent-1", localCollection)),
		docstore.Put(relationshipDoc(t, "rel-owned", localCollection, "ent-1", "ent-1")),
	}

	if _, err := s.SubmitTx(ctx, ops); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	if _, err := s.SubmitTx(ctx, []docstore.TxOp{txnfn.DeleteEntity("e_ent-1", "bob", deleteTime)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The second delete fails; the relationship tombstone must be exactly
	// as the first delete left it.
	if _, err := s.SubmitTx(ctx, []docstore.TxOp{txnfn.DeleteEntity("e_ent-1", "eve", deleteTime.Add(time.Hour))}); err == nil {
		t.Fatal("expected re-delete to fail")
	}

	snap, err := s.DB(ctx)
	if err != nil {
		t.Fatalf("taking snapshot: %v", err)
	}

	doc, err := snap.Entity(ctx, "r_rel-owned")
	if err != nil {
		t.Fatalf("reading relationship: %v", err)
	}

	if mapping.AsString(doc[mapping.KwUpdatedBy]) != "bob" {
		t.Errorf("failed transaction must leave no effects, updatedBy %v", doc[mapping.KwUpdatedBy])
	}
}

func TestDeleteEntity_HomeReadFromEntity(t *testing.T) {
	s := docstore.NewMemStore(nil)
	txnfn.RegisterAll(s)
	ctx := context.Background()

	// A reference-copy entity and a relationship sharing its remote home.
	// The cascade must classify against the entity's own collection, so the
	// relationship is owned and gets a tombstone, not an evict.
	ops := []docstore.TxOp{
		docstore.Put(entityDoc(t, "ent-remote", "remote-collection")),
		docstore.Put(entityDoc(t, "ent-2", localCollection)),
		docstore.Put(relationshipDoc(t, "rel-remote", "remote-collection", "ent-remote", "ent-2")),
	}

	if _, err := s.SubmitTx(ctx, ops); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	if _, err := s.SubmitTx(ctx, []docstore.TxOp{txnfn.DeleteEntity("e_ent-remote", "bob", deleteTime)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := statusOf(t, s, "r_rel-remote"); got != int64(models.StatusDeleted) {
		t.Errorf("relationship sharing the entity's home must be soft-deleted, status %d", got)
	}
}

func TestDeleteEntity_DeletedRelationshipsUntouched(t *testing.T) {
	s := graphStore(t)
	ctx := context.Background()

	// Tombstone the foreign relationship first. The later cascade must leave
	// it exactly as it is, not evict it.
	if _, err := s.SubmitTx(ctx, []docstore.TxOp{txnfn.DeleteRelationship("r_rel-foreign", "bob", deleteTime)}); err != nil {
		t.Fatalf("deleting relationship: %v", err)
	}

	if _, err := s.SubmitTx(ctx, []docstore.TxOp{txnfn.DeleteEntity("e_ent-1", "carol", deleteTime.Add(time.Hour))}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := s.DB(ctx)
	if err != nil {
		t.Fatalf("taking snapshot: %v", err)
	}

	doc, err := snap.Entity(ctx, "r_rel-foreign")
	if err != nil {
		t.Fatalf("tombstone must survive the cascade: %v", err)
	}

	if mapping.AsString(doc[mapping.KwUpdatedBy]) != "bob" {
		t.Errorf("cascade must not rewrite the tombstone, updatedBy %v", doc[mapping.KwUpdatedBy])
	}

	if got := statusOf(t, s, "r_rel-owned"); got != int64(models.StatusDeleted) {
		t.Errorf("live owned relationship must still cascade, status %d", got)
	}
}

func TestPurgeEntity_RequiresSoftDelete(t *testing.T) {
	s := graphStore(t)

	if _, err := s.SubmitTx(context.Background(), []docstore.TxOp{txnfn.PurgeEntity("e_ent-1")}); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestPurgeEntity_RemovesEntityAndRelationships(t *testing.T) {
	s := graphStore(t)
	ctx := context.Background()

	if _, err := s.SubmitTx(ctx, []docstore.TxOp{txnfn.DeleteEntity("e_ent-1", "bob", deleteTime)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.SubmitTx(ctx, []docstore.TxOp{txnfn.PurgeEntity("e_ent-1")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := s.DB(ctx)
	if err != nil {
		t.Fatalf("taking snapshot: %v", err)
	}

	for _, ref := range []string{"e_ent-1", "r_rel-owned"} {
		if _, err := snap.Entity(ctx, ref); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("%s must be purged, got %v", ref, err)
		}
	}

	if _, err := snap.Entity(ctx, "e_ent-2"); err != nil {
		t.Errorf("other endpoint must survive the purge: %v", err)
	}
}

func TestDeleteRelationship(t *testing.T) {
	s := graphStore(t)
	ctx := context.Background()

	op := txnfn.DeleteRelationship("r_rel-owned", "bob", deleteTime)

	if _, err := s.SubmitTx(ctx, []docstore.TxOp{op}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := statusOf(t, s, "r_rel-owned"); got != int64(models.StatusDeleted) {
		t.Errorf("relationship must be soft-deleted, status %d", got)
	}

	if _, err := s.SubmitTx(ctx, []docstore.TxOp{op}); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on re-delete, got %v", err)
	}
}

func TestPurgeRelationship(t *testing.T) {
	s := graphStore(t)
	ctx := context.Background()

	if _, err := s.SubmitTx(ctx, []docstore.TxOp{txnfn.PurgeRelationship("r_rel-owned", false)}); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState without force, got %v", err)
	}

	if _, err := s.SubmitTx(ctx, []docstore.TxOp{txnfn.PurgeRelationship("r_rel-owned", true)}); err != nil {
		t.Fatalf("unexpected error with force: %v", err)
	}

	snap, err := s.DB(ctx)
	if err != nil {
		t.Fatalf("taking snapshot: %v", err)
	}

	if _, err := snap.Entity(ctx, "r_rel-owned"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("relationship must be purged, got %v", err)
	}
}

func TestDeleteEntity_WrongKind(t *testing.T) {
	s := graphStore(t)

	op := txnfn.DeleteEntity("r_rel-owned", "bob", deleteTime)

	if _, err := s.SubmitTx(context.Background(), []docstore.TxOp{op}); !errors.Is(err, models.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}
