package pgstore_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/planetf1/egeria-connector-xtdb/internal/dbpool"
	"github.com/planetf1/egeria-connector-xtdb/internal/docstore"
	"github.com/planetf1/egeria-connector-xtdb/internal/models"
	"github.com/planetf1/egeria-connector-xtdb/internal/pgstore"
	"github.com/planetf1/egeria-connector-xtdb/internal/query"
)

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

var sharedEnv *testEnv

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if sharedEnv != nil {
		return sharedEnv
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := dbpool.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("connecting to test DB: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	if err := pgstore.RunMigrations(ctx, pool, log); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	sharedEnv = &testEnv{
		pool: pool,
		log:  log,
	}

	return sharedEnv
}

// newTestStore returns a store sharing the pooled connection. Document ids are
// uuid-scoped per test, so tests stay independent on a shared database.
func newTestStore(t *testing.T) *pgstore.PgStore {
	t.Helper()

	env := getTestEnv(t)

	return pgstore.New(env.log, env.pool)
}

func testDoc(id string, extra map[string]any) docstore.Document {
	d := docstore.Document{docstore.KeyID: id}
	for k, v := range extra {
		d[k] = v
	}

	return d
}

func TestPgStore_PutAndRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := "e_" + uuid.NewString()

	if _, err := s.SubmitTx(ctx, []docstore.TxOp{docstore.Put(testDoc(id, map[string]any{"k": "v"}))}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := s.DB(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := snap.Entity(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got["k"] != "v" {
		t.Errorf("unexpected document: %v", got)
	}

	if _, err := snap.Entity(ctx, "e_"+uuid.NewString()); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPgStore_PointInTimeRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := "e_" + uuid.NewString()

	first, err := s.SubmitTx(ctx, []docstore.TxOp{docstore.Put(testDoc(id, map[string]any{"v": float64(1)}))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.SubmitTx(ctx, []docstore.TxOp{docstore.Put(testDoc(id, map[string]any{"v": float64(2)}))}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	old, err := s.DBAt(first).Entity(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// jsonb round-trips numbers as float64.
	if old["v"] != float64(1) {
		t.Errorf("point-in-time snapshot must see the old version, got %v", old["v"])
	}

	latest, err := s.DB(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current, err := latest.Entity(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if current["v"] != float64(2) {
		t.Errorf("latest snapshot must see the new version, got %v", current["v"])
	}
}

func TestPgStore_EvictRemovesHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := "e_" + uuid.NewString()

	first, err := s.SubmitTx(ctx, []docstore.TxOp{docstore.Put(testDoc(id, nil))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.SubmitTx(ctx, []docstore.TxOp{docstore.Evict(id)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.DBAt(first).Entity(ctx, id); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("evict must erase history, got %v", err)
	}
}

func TestPgStore_FunctionSeesStagedEffects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := "e_" + uuid.NewString()
	other := "e_" + uuid.NewString()

	s.RegisterFunction("stage-check", func(ctx context.Context, snap docstore.Snapshot, args []any) ([]docstore.TxOp, error) {
		staged, err := snap.Entity(ctx, id)
		if err != nil {
			return nil, err
		}

		if staged["k"] != "v" {
			return nil, errors.New("staged document not visible")
		}

		return []docstore.TxOp{docstore.Put(testDoc(other, nil))}, nil
	})

	ops := []docstore.TxOp{
		docstore.Put(testDoc(id, map[string]any{"k": "v"})),
		docstore.Invoke("stage-check"),
	}

	instant, err := s.SubmitTx(ctx, ops)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := s.DBAt(instant)

	for _, ref := range []string{id, other} {
		if _, err := snap.Entity(ctx, ref); err != nil {
			t.Errorf("expected %s committed, got %v", ref, err)
		}
	}
}

func TestPgStore_FunctionErrorAbortsEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := "e_" + uuid.NewString()

	boom := errors.New("boom")
	s.RegisterFunction("fail", func(context.Context, docstore.Snapshot, []any) ([]docstore.TxOp, error) {
		return nil, boom
	})

	ops := []docstore.TxOp{
		docstore.Put(testDoc(id, nil)),
		docstore.Invoke("fail"),
	}

	if _, err := s.SubmitTx(ctx, ops); !errors.Is(err, boom) {
		t.Fatalf("expected the function error, got %v", err)
	}

	snap, err := s.DB(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := snap.Entity(ctx, id); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("aborted transaction must leave no effects, got %v", err)
	}
}

func TestPgStore_CompiledQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A per-test marker keeps results disjoint from other tests' documents.
	marker := uuid.NewString()
	one := "e_" + uuid.NewString()
	two := "e_" + uuid.NewString()

	ops := []docstore.TxOp{
		docstore.Put(testDoc(one, map[string]any{"marker": marker, "currentStatus": int64(15)})),
		docstore.Put(testDoc(two, map[string]any{"marker": marker, "currentStatus": int64(99)})),
	}

	if _, err := s.SubmitTx(ctx, ops); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := s.DB(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := &query.Document{
		Find: []query.Variable{"e"},
		In:   []query.Variable{"m"},
		Where: []query.Clause{
			query.Triple{E: "e", Attr: "marker", Value: query.Variable("m")},
			query.Triple{E: "e", Attr: "currentStatus", Value: query.Variable("s")},
			query.Predicate{Op: "not=", Args: []any{query.Variable("s"), int64(99)}},
		},
	}

	rows, err := snap.Query(ctx, q, marker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 1 || rows[0][0] != one {
		t.Fatalf("expected only the non-deleted document, got %v", rows)
	}
}
