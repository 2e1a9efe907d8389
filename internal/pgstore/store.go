// Package pgstore implements the document store contract on PostgreSQL:
// document versions in jsonb with transaction-time validity ranges, compiled
// queries lowered to SQL, and transaction functions executed inside one
// serializable database transaction.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/planetf1/egeria-connector-xtdb/internal/dbpool"
	"github.com/planetf1/egeria-connector-xtdb/internal/docstore"
	"github.com/planetf1/egeria-connector-xtdb/internal/models"
	"github.com/planetf1/egeria-connector-xtdb/internal/query"
)

// writerLockKey serialises writers via an advisory lock, giving the same
// single-writer semantics the embedded store has.
const writerLockKey = int64(0x7864622d777274) // "xdb-wrt"

const visibleDocsSQL = `SELECT id, doc FROM xtdb_documents
WHERE valid_from <= %[1]s AND (valid_to IS NULL OR valid_to > %[1]s)`

// querier is the subset of pgx execution shared by the pool and an open
// transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore is the PostgreSQL-backed document store.
type PgStore struct {
	log  *logrus.Logger
	pool *dbpool.Pool

	fnMu sync.RWMutex
	fns  map[string]docstore.TxFunc
}

// New creates a PgStore over an established pool. The schema must already be
// migrated; see RunMigrations.
func New(log *logrus.Logger, pool *dbpool.Pool) *PgStore {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &PgStore{
		log:  log,
		pool: pool,
		fns:  make(map[string]docstore.TxFunc),
	}
}

// RegisterFunction implements docstore.Store.
func (s *PgStore) RegisterFunction(name string, fn docstore.TxFunc) {
	s.fnMu.Lock()
	defer s.fnMu.Unlock()
	s.fns[name] = fn
}

func (s *PgStore) fn(name string) docstore.TxFunc {
	s.fnMu.RLock()
	defer s.fnMu.RUnlock()

	return s.fns[name]
}

// DB implements docstore.Store.
func (s *PgStore) DB(ctx context.Context) (docstore.Snapshot, error) {
	at, err := latestInstant(ctx, s.pool)
	if err != nil {
		return nil, err
	}

	return &pgSnapshot{q: s.pool, at: at}, nil
}

// DBAt implements docstore.Store.
func (s *PgStore) DBAt(instant docstore.TxInstant) docstore.Snapshot {
	return &pgSnapshot{q: s.pool, at: instant}
}

// SubmitTx implements docstore.Store. The whole transaction, including every
// invoked function's reads, runs inside one serializable database
// transaction holding the writer advisory lock, so functions observe a
// stable base state plus their own staged effects.
func (s *PgStore) SubmitTx(ctx context.Context, ops []docstore.TxOp) (docstore.TxInstant, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return docstore.TxInstant{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op.

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", writerLockKey); err != nil {
		return docstore.TxInstant{}, fmt.Errorf("acquiring writer lock: %w", err)
	}

	base, err := latestInstant(ctx, tx)
	if err != nil {
		return docstore.TxInstant{}, err
	}

	var next docstore.TxInstant

	err = tx.QueryRow(ctx, "INSERT INTO xtdb_transactions DEFAULT VALUES RETURNING id, committed").
		Scan(&next.ID, &next.At)
	if err != nil {
		return docstore.TxInstant{}, fmt.Errorf("recording transaction: %w", err)
	}

	pending := make(map[string]pendingChange)
	view := &pgTxView{q: tx, at: next, base: base, pending: pending}

	queue := append([]docstore.TxOp(nil), ops...)

	for i := 0; i < len(queue); i++ {
		op := queue[i]

		switch op.Kind {
		case docstore.OpPut:
			id := op.Doc.ID()
			if id == "" {
				return docstore.TxInstant{}, fmt.Errorf("put without document id: %w", models.ErrInvalidParameter)
			}

			pending[id] = pendingChange{doc: op.Doc}
		case docstore.OpEvict:
			if op.ID == "" {
				return docstore.TxInstant{}, fmt.Errorf("evict without document id: %w", models.ErrInvalidParameter)
			}

			pending[op.ID] = pendingChange{evict: true}
		case docstore.OpInvoke:
			fn := s.fn(op.Fn)
			if fn == nil {
				return docstore.TxInstant{}, fmt.Errorf("transaction function %q is not registered: %w", op.Fn, models.ErrInvalidParameter)
			}

			nested, err := fn(ctx, view, op.Args)
			if err != nil {
				return docstore.TxInstant{}, err
			}

			queue = append(queue, nested...)
		default:
			return docstore.TxInstant{}, fmt.Errorf("unknown transaction op kind %d: %w", op.Kind, models.ErrInvalidParameter)
		}
	}

	for id, ch := range pending {
		if ch.evict {
			if _, err := tx.Exec(ctx, "DELETE FROM xtdb_documents WHERE id = $1", id); err != nil {
				return docstore.TxInstant{}, fmt.Errorf("evicting %s: %w", id, err)
			}

			continue
		}

		encoded, err := json.Marshal(ch.doc)
		if err != nil {
			return docstore.TxInstant{}, fmt.Errorf("encoding %s: %w", id, err)
		}

		if _, err := tx.Exec(ctx,
			"UPDATE xtdb_documents SET valid_to = $2 WHERE id = $1 AND valid_to IS NULL",
			id, next.ID); err != nil {
			return docstore.TxInstant{}, fmt.Errorf("superseding %s: %w", id, err)
		}

		if _, err := tx.Exec(ctx,
			"INSERT INTO xtdb_documents (id, doc, valid_from) VALUES ($1, $2, $3)",
			id, encoded, next.ID); err != nil {
			return docstore.TxInstant{}, fmt.Errorf("writing %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return docstore.TxInstant{}, fmt.Errorf("committing transaction: %w", err)
	}

	s.log.WithFields(logrus.Fields{"tx": next.ID, "effects": len(pending)}).Debug("transaction committed")

	return next, nil
}

// Close implements docstore.Store.
func (s *PgStore) Close() error {
	s.pool.Close()

	return nil
}

type pendingChange struct {
	doc   docstore.Document
	evict bool
}

func latestInstant(ctx context.Context, q querier) (docstore.TxInstant, error) {
	var at docstore.TxInstant

	err := q.QueryRow(ctx, "SELECT id, committed FROM xtdb_transactions ORDER BY id DESC LIMIT 1").
		Scan(&at.ID, &at.At)
	if errors.Is(err, pgx.ErrNoRows) {
		return docstore.TxInstant{}, nil
	}

	if err != nil {
		return docstore.TxInstant{}, fmt.Errorf("reading latest transaction: %w", err)
	}

	return at, nil
}

func readDocument(ctx context.Context, q querier, ref string, asOf int64) (docstore.Document, error) {
	var encoded []byte

	err := q.QueryRow(ctx,
		`SELECT doc FROM xtdb_documents
		 WHERE id = $1 AND valid_from <= $2 AND (valid_to IS NULL OR valid_to > $2)`,
		ref, asOf).Scan(&encoded)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", ref, models.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", ref, err)
	}

	var doc docstore.Document
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", ref, err)
	}

	return doc, nil
}

func runCompiled(ctx context.Context, q querier, compiled *compiledQuery, from string, args []any) ([][]any, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s%s",
		compiled.selectList, from, compiled.where, compiled.orderBy, compiled.paging)

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	var out [][]any

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scanning query row: %w", err)
		}

		out = append(out, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query rows: %w", err)
	}

	return out, nil
}

// pgSnapshot reads committed state as of one instant.
type pgSnapshot struct {
	q  querier
	at docstore.TxInstant
}

// ValidAt implements docstore.Snapshot.
func (s *pgSnapshot) ValidAt() docstore.TxInstant {
	return s.at
}

// Entity implements docstore.Snapshot.
func (s *pgSnapshot) Entity(ctx context.Context, ref string) (docstore.Document, error) {
	return readDocument(ctx, s.q, ref, s.at.ID)
}

// Query implements docstore.Snapshot.
func (s *pgSnapshot) Query(ctx context.Context, q *query.Document, args ...any) ([][]any, error) {
	compiled, err := compileQuery(q, args)
	if err != nil {
		return nil, err
	}

	sqlArgs := append(compiled.args, s.at.ID)
	from := fmt.Sprintf("(%s) AS d", fmt.Sprintf(visibleDocsSQL, fmt.Sprintf("$%d", len(sqlArgs))))

	return runCompiled(ctx, s.q, compiled, from, sqlArgs)
}

// pgTxView is the snapshot a transaction function observes: committed state
// at the transaction's base overlaid with its own staged effects.
type pgTxView struct {
	q       querier
	at      docstore.TxInstant
	base    docstore.TxInstant
	pending map[string]pendingChange
}

// ValidAt implements docstore.Snapshot.
func (t *pgTxView) ValidAt() docstore.TxInstant {
	return t.at
}

// Entity implements docstore.Snapshot.
func (t *pgTxView) Entity(ctx context.Context, ref string) (docstore.Document, error) {
	if ch, ok := t.pending[ref]; ok {
		if ch.evict {
			return nil, fmt.Errorf("document %s: %w", ref, models.ErrNotFound)
		}

		return ch.doc, nil
	}

	return readDocument(ctx, t.q, ref, t.base.ID)
}

// Query implements docstore.Snapshot. Staged documents join the committed
// set through a jsonb array parameter, so one SQL execution covers the
// overlay.
func (t *pgTxView) Query(ctx context.Context, q *query.Document, args ...any) ([][]any, error) {
	compiled, err := compileQuery(q, args)
	if err != nil {
		return nil, err
	}

	stagedIDs := make([]string, 0, len(t.pending))
	stagedDocs := make([]docstore.Document, 0, len(t.pending))

	for id, ch := range t.pending {
		stagedIDs = append(stagedIDs, id)

		if !ch.evict {
			stagedDocs = append(stagedDocs, ch.doc)
		}
	}

	encoded, err := json.Marshal(stagedDocs)
	if err != nil {
		return nil, fmt.Errorf("encoding staged documents: %w", err)
	}

	sqlArgs := append(compiled.args, t.base.ID, stagedIDs, string(encoded))
	n := len(sqlArgs)

	from := fmt.Sprintf(`(%s AND NOT (id = ANY($%d))
UNION ALL
SELECT p.doc ->> 'xt/id', p.doc FROM jsonb_array_elements($%d::jsonb) AS p(doc)) AS d`,
		fmt.Sprintf(visibleDocsSQL, fmt.Sprintf("$%d", n-2)), n-1, n)

	return runCompiled(ctx, t.q, compiled, from, sqlArgs)
}
