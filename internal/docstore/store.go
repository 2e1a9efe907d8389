// Package docstore defines the bitemporal document store contract consumed
// by the connector core, together with an embedded in-memory implementation.
//
// The store provides serializable, single-writer transaction semantics: at
// most one transaction commits at a given logical instant, and every read
// inside one transaction-function invocation observes a single consistent
// snapshot. Transactions either apply every effect or none.
package docstore

import (
	"context"
	"time"

	"github.com/planetf1/egeria-connector-xtdb/internal/query"
)

// KeyID is the document identifier key.
const KeyID = "xt/id"

// Document is a stored document: keyword-string keys mapping to scalar
// values, string slices, or timestamps.
type Document map[string]any

// ID returns the document identifier, or "".
func (d Document) ID() string {
	id, _ := d[KeyID].(string)
	return id
}

// TxInstant identifies a committed transaction: its logical id and wall
// clock time. Snapshots are bound to an instant.
type TxInstant struct {
	ID int64
	At time.Time
}

// OpKind discriminates transaction operations.
type OpKind int

// Transaction operation kinds.
const (
	OpPut OpKind = iota
	OpEvict
	OpInvoke
)

// TxOp is one effect submitted in a transaction: write a document, remove a
// document and its history, or invoke a registered transaction function.
type TxOp struct {
	Kind OpKind
	Doc  Document
	ID   string
	Fn   string
	Args []any
}

// Put writes a document version at the transaction's instant.
func Put(doc Document) TxOp {
	return TxOp{Kind: OpPut, Doc: doc}
}

// Evict removes a document and its entire history.
func Evict(id string) TxOp {
	return TxOp{Kind: OpEvict, ID: id}
}

// Invoke calls a registered transaction function. The function runs inside
// the transaction and its resulting operations join the same commit.
func Invoke(fn string, args ...any) TxOp {
	return TxOp{Kind: OpInvoke, Fn: fn, Args: args}
}

// TxFunc is a registered, named transaction function: a pure function from
// the transaction's snapshot and validated arguments to further operations.
// It must not perform I/O of its own; every read it needs comes through the
// snapshot it is given.
type TxFunc func(ctx context.Context, snap Snapshot, args []any) ([]TxOp, error)

// Snapshot is a consistent point-in-time view of the store. Reads carry no
// write locks; query compilation output executes against whichever snapshot
// the caller chose.
type Snapshot interface {
	// ValidAt returns the transaction instant this snapshot observes.
	ValidAt() TxInstant

	// Entity reads a document by its canonical reference as of the
	// snapshot. Absence is models.ErrNotFound: the document does not
	// exist at this time.
	Entity(ctx context.Context, ref string) (Document, error)

	// Query executes a compiled query document, with values for its
	// :in variables, returning result tuples ordered per the query.
	Query(ctx context.Context, q *query.Document, args ...any) ([][]any, error)
}

// Store is the document store: point-in-time snapshots plus atomic
// transaction submission.
type Store interface {
	// DB returns a snapshot of the latest committed state.
	DB(ctx context.Context) (Snapshot, error)

	// DBAt returns a snapshot bound to the given transaction instant.
	DBAt(instant TxInstant) Snapshot

	// SubmitTx atomically applies the given operations, including any
	// operations produced by invoked functions. On error nothing is
	// applied.
	SubmitTx(ctx context.Context, ops []TxOp) (TxInstant, error)

	// RegisterFunction registers a named transaction function.
	// Re-registering the same name replaces the function; registration
	// is idempotent.
	RegisterFunction(name string, fn TxFunc)

	// Close releases resources held by the store.
	Close() error
}
