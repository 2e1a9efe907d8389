// Package txnfn implements the connector's transaction functions: named,
// registered procedures that run inside a store transaction and keep the
// graph consistent under concurrent callers. Each function validates against
// the transaction's own snapshot, so its checks and effects commit together.
package txnfn

import (
	"time"

	"github.com/planetf1/egeria-connector-xtdb/internal/docstore"
)

// Registered transaction function names.
const (
	FnDeleteEntity       = "egeria/deleteEntity"
	FnPurgeEntity        = "egeria/purgeEntity"
	FnDeleteRelationship = "egeria/deleteRelationship"
	FnPurgeRelationship  = "egeria/purgeRelationship"
)

// RegisterAll registers every transaction function on the store. Registration
// is idempotent and must happen before the first lifecycle transaction.
func RegisterAll(s docstore.Store) {
	s.RegisterFunction(FnDeleteEntity, deleteEntity)
	s.RegisterFunction(FnPurgeEntity, purgeEntity)
	s.RegisterFunction(FnDeleteRelationship, deleteRelationship)
	s.RegisterFunction(FnPurgeRelationship, purgeRelationship)
}

// DeleteEntity builds the invocation op for a cascading entity soft-delete.
// Relationships sharing the entity's home collection are soft-deleted
// alongside it; reference copies from other repositories are purged outright.
func DeleteEntity(ref, userID string, at time.Time) docstore.TxOp {
	return docstore.Invoke(FnDeleteEntity, ref, userID, at)
}

// PurgeEntity builds the invocation op removing a soft-deleted entity and
// every relationship still referencing it, history included.
func PurgeEntity(ref string) docstore.TxOp {
	return docstore.Invoke(FnPurgeEntity, ref)
}

// DeleteRelationship builds the invocation op for a relationship soft-delete.
func DeleteRelationship(ref, userID string, at time.Time) docstore.TxOp {
	return docstore.Invoke(FnDeleteRelationship, ref, userID, at)
}

// PurgeRelationship builds the invocation op removing a relationship and its
// history. Unless force is set the relationship must already be soft-deleted.
func PurgeRelationship(ref string, force bool) docstore.TxOp {
	return docstore.Invoke(FnPurgeRelationship, ref, force)
}
