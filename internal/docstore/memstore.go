package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/planetf1/egeria-connector-xtdb/internal/models"
	"github.com/planetf1/egeria-connector-xtdb/internal/query"
)

// version is one document version with its transaction-time validity range.
// A zero "to" means the version is current.
type version struct {
	doc  Document
	from int64
	to   int64
}

// change is a staged effect inside an open transaction.
type change struct {
	doc   Document
	evict bool
}

// MemStore is an embedded, in-memory bitemporal document store. A single
// mutex serialises writers, giving every transaction a consistent snapshot
// and all-or-nothing application; readers take point-in-time snapshots that
// never block writers for long.
type MemStore struct {
	log *logrus.Logger

	mu   sync.RWMutex
	docs map[string][]version
	last TxInstant

	fnMu sync.RWMutex
	fns  map[string]TxFunc
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(log *logrus.Logger) *MemStore {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &MemStore{
		log:  log,
		docs: make(map[string][]version),
		fns:  make(map[string]TxFunc),
	}
}

// RegisterFunction implements Store. Registration is idempotent:
// re-registering a name replaces the previous function.
func (s *MemStore) RegisterFunction(name string, fn TxFunc) {
	s.fnMu.Lock()
	defer s.fnMu.Unlock()
	s.fns[name] = fn
}

func (s *MemStore) fn(name string) TxFunc {
	s.fnMu.RLock()
	defer s.fnMu.RUnlock()

	return s.fns[name]
}

// DB implements Store, returning a snapshot of the latest committed state.
func (s *MemStore) DB(_ context.Context) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &memSnapshot{store: s, at: s.last}, nil
}

// DBAt implements Store.
func (s *MemStore) DBAt(instant TxInstant) Snapshot {
	return &memSnapshot{store: s, at: instant}
}

// SubmitTx implements Store. Operations are processed in order; invoked
// functions observe the transaction's own staged effects, so a cascade sees
// the state its predecessors produced. Any error aborts the whole
// transaction with nothing applied.
func (s *MemStore) SubmitTx(ctx context.Context, ops []TxOp) (TxInstant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := TxInstant{ID: s.last.ID + 1, At: time.Now().UTC()}
	pending := make(map[string]change)
	view := &txView{store: s, at: next, base: s.last.ID, pending: pending}

	queue := append([]TxOp(nil), ops...)

	for i := 0; i < len(queue); i++ {
		if err := ctx.Err(); err != nil {
			return TxInstant{}, fmt.Errorf("transaction aborted: %w", err)
		}

		op := queue[i]

		switch op.Kind {
		case OpPut:
			id := op.Doc.ID()
			if id == "" {
				return TxInstant{}, fmt.Errorf("put without document id: %w", models.ErrInvalidParameter)
			}

			pending[id] = change{doc: cloneDoc(op.Doc)}
		case OpEvict:
			if op.ID == "" {
				return TxInstant{}, fmt.Errorf("evict without document id: %w", models.ErrInvalidParameter)
			}

			pending[op.ID] = change{evict: true}
		case OpInvoke:
			fn := s.fn(op.Fn)
			if fn == nil {
				return TxInstant{}, fmt.Errorf("transaction function %q is not registered: %w", op.Fn, models.ErrInvalidParameter)
			}

			nested, err := fn(ctx, view, op.Args)
			if err != nil {
				return TxInstant{}, err
			}

			queue = append(queue, nested...)
		default:
			return TxInstant{}, fmt.Errorf("unknown transaction op kind %d: %w", op.Kind, models.ErrInvalidParameter)
		}
	}

	for id, ch := range pending {
		if ch.evict {
			delete(s.docs, id)

			continue
		}

		versions := s.docs[id]
		if n := len(versions); n > 0 && versions[n-1].to == 0 {
			versions[n-1].to = next.ID
		}

		s.docs[id] = append(versions, version{doc: ch.doc, from: next.ID})
	}

	s.last = next

	s.log.WithFields(logrus.Fields{"tx": next.ID, "effects": len(pending)}).Debug("transaction committed")

	return next, nil
}

// Close implements Store.
func (s *MemStore) Close() error {
	return nil
}

// lockedVersionAt returns the document version visible at asOf.
// Caller must hold s.mu.
func (s *MemStore) lockedVersionAt(id string, asOf int64) (Document, bool) {
	for _, v := range s.docs[id] {
		if v.from <= asOf && (v.to == 0 || v.to > asOf) {
			return v.doc, true
		}
	}

	return nil, false
}

// lockedVisible collects every document visible at asOf.
// Caller must hold s.mu.
func (s *MemStore) lockedVisible(asOf int64) []docEntry {
	entries := make([]docEntry, 0, len(s.docs))

	for id := range s.docs {
		if doc, ok := s.lockedVersionAt(id, asOf); ok {
			entries = append(entries, docEntry{id: id, doc: doc})
		}
	}

	return entries
}

// memSnapshot is a read-only view of committed state at one instant.
type memSnapshot struct {
	store *MemStore
	at    TxInstant
}

// ValidAt implements Snapshot.
func (m *memSnapshot) ValidAt() TxInstant {
	return m.at
}

// Entity implements Snapshot.
func (m *memSnapshot) Entity(_ context.Context, ref string) (Document, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	doc, ok := m.store.lockedVersionAt(ref, m.at.ID)
	if !ok {
		return nil, fmt.Errorf("document %s: %w", ref, models.ErrNotFound)
	}

	return cloneDoc(doc), nil
}

// Query implements Snapshot.
func (m *memSnapshot) Query(_ context.Context, q *query.Document, args ...any) ([][]any, error) {
	m.store.mu.RLock()
	entries := m.store.lockedVisible(m.at.ID)
	m.store.mu.RUnlock()

	return evalQuery(q, args, entries)
}

// txView is the snapshot a transaction function observes: committed state as
// of the transaction's base, overlaid with the transaction's own staged
// effects. The store's writer lock is already held, so reads are lock-free.
type txView struct {
	store   *MemStore
	at      TxInstant
	base    int64
	pending map[string]change
}

// ValidAt implements Snapshot.
func (t *txView) ValidAt() TxInstant {
	return t.at
}

// Entity implements Snapshot.
func (t *txView) Entity(_ context.Context, ref string) (Document, error) {
	if ch, ok := t.pending[ref]; ok {
		if ch.evict {
			return nil, fmt.Errorf("document %s: %w", ref, models.ErrNotFound)
		}

		return cloneDoc(ch.doc), nil
	}

	doc, ok := t.store.lockedVersionAt(ref, t.base)
	if !ok {
		return nil, fmt.Errorf("document %s: %w", ref, models.ErrNotFound)
	}

	return cloneDoc(doc), nil
}

// Query implements Snapshot.
func (t *txView) Query(_ context.Context, q *query.Document, args ...any) ([][]any, error) {
	entries := make([]docEntry, 0, len(t.store.docs))

	for id := range t.store.docs {
		if _, staged := t.pending[id]; staged {
			continue
		}

		if doc, ok := t.store.lockedVersionAt(id, t.base); ok {
			entries = append(entries, docEntry{id: id, doc: doc})
		}
	}

	for id, ch := range t.pending {
		if !ch.evict {
			entries = append(entries, docEntry{id: id, doc: ch.doc})
		}
	}

	return evalQuery(q, args, entries)
}

// cloneDoc copies a document, including its slice values, so snapshots and
// staged writes never alias caller-held maps.
func cloneDoc(doc Document) Document {
	out := make(Document, len(doc))

	for k, v := range doc {
		switch val := v.(type) {
		case []string:
			out[k] = append([]string(nil), val...)
		case []any:
			out[k] = append([]any(nil), val...)
		default:
			out[k] = v
		}
	}

	return out
}
