package docstore

import (
	"testing"

	"github.com/planetf1/egeria-connector-xtdb/internal/query"
)

func testEntries() []docEntry {
	return []docEntry{
		{id: "e_1", doc: Document{
			KeyID: "e_1", "type.guid": "asset", "currentStatus": int64(15),
			"entityProperties/name.value": "alpha", "entityProperties/level.value": int64(1),
		}},
		{id: "e_2", doc: Document{
			KeyID: "e_2", "type.guid": "database", "type.supers": []string{"asset", "referenceable"},
			"currentStatus": int64(15), "entityProperties/name.value": "bravo",
			"entityProperties/level.value": int64(5),
		}},
		{id: "e_3", doc: Document{
			KeyID: "e_3", "type.guid": "glossary", "currentStatus": int64(99),
			"entityProperties/name.value": "charlie",
		}},
	}
}

func find(vars ...query.Variable) []query.Variable { return vars }

func TestEvalQuery_EqualityTriple(t *testing.T) {
	q := &query.Document{
		Find:  find("e"),
		Where: []query.Clause{query.Triple{E: "e", Attr: "entityProperties/name.value", Value: "bravo"}},
	}

	rows, err := evalQuery(q, nil, testEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 1 || rows[0][0] != "e_2" {
		t.Fatalf("expected exactly e_2, got %v", rows)
	}
}

func TestEvalQuery_SliceContainment(t *testing.T) {
	// A supertype clause matches against the whole supers list.
	q := &query.Document{
		Find:  find("e"),
		Where: []query.Clause{query.Triple{E: "e", Attr: "type.supers", Value: "referenceable"}},
	}

	rows, err := evalQuery(q, nil, testEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 1 || rows[0][0] != "e_2" {
		t.Fatalf("expected e_2, got %v", rows)
	}
}

func TestEvalQuery_TypeDisjunction(t *testing.T) {
	// Exact-or-subtype union: searching "asset" finds the asset and its
	// subtype instance, same result as listing the subtypes explicitly.
	q := &query.Document{
		Find: find("e"),
		Where: []query.Clause{query.Boolean{Op: query.BoolOr, Clauses: []query.Clause{
			query.Triple{E: "e", Attr: "type.guid", Value: "asset"},
			query.Triple{E: "e", Attr: "type.supers", Value: "asset"},
		}}},
	}

	rows, err := evalQuery(q, nil, testEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 2 || rows[0][0] != "e_1" || rows[1][0] != "e_2" {
		t.Fatalf("expected e_1 and e_2, got %v", rows)
	}
}

func TestEvalQuery_ComparisonExcludesMissingProperty(t *testing.T) {
	// e_3 has no level property: a non-equality comparison must not match
	// it, absence is never a match.
	q := &query.Document{
		Find: find("e"),
		Where: []query.Clause{
			query.Triple{E: "e", Attr: "entityProperties/level.value", Value: query.Variable("v")},
			query.Predicate{Op: ">=", Args: []any{query.Variable("v"), int64(0)}},
		},
	}

	rows, err := evalQuery(q, nil, testEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected the two documents carrying level, got %v", rows)
	}
}

func TestEvalQuery_Negation(t *testing.T) {
	q := &query.Document{
		Find: find("e"),
		Where: []query.Clause{query.Boolean{Op: query.BoolNot, Clauses: []query.Clause{
			query.Triple{E: "e", Attr: "entityProperties/name.value", Value: "alpha"},
		}}},
	}

	rows, err := evalQuery(q, nil, testEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 2 || rows[0][0] != "e_2" || rows[1][0] != "e_3" {
		t.Fatalf("expected everything but e_1, got %v", rows)
	}
}

func TestEvalQuery_NotEqualPredicate(t *testing.T) {
	q := &query.Document{
		Find: find("e"),
		Where: []query.Clause{
			query.Triple{E: "e", Attr: "currentStatus", Value: query.Variable("s")},
			query.Predicate{Op: "not=", Args: []any{query.Variable("s"), int64(99)}},
		},
	}

	rows, err := evalQuery(q, nil, testEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected the two non-deleted documents, got %v", rows)
	}
}

func TestEvalQuery_InVariable(t *testing.T) {
	q := &query.Document{
		Find:  find("e"),
		In:    []query.Variable{"n"},
		Where: []query.Clause{query.Triple{E: "e", Attr: "entityProperties/name.value", Value: query.Variable("n")}},
	}

	rows, err := evalQuery(q, []any{"charlie"}, testEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 1 || rows[0][0] != "e_3" {
		t.Fatalf("expected e_3, got %v", rows)
	}

	if _, err := evalQuery(q, nil, testEntries()); err == nil {
		t.Fatal("expected an error for missing input values")
	}
}

func TestEvalQuery_OrderByProperty(t *testing.T) {
	// Sorting by a bound property excludes documents lacking it and orders
	// the rest; the result set is the binding's, not the full corpus.
	q := &query.Document{
		Find: find("e", "v"),
		Where: []query.Clause{
			query.Triple{E: "e", Attr: "entityProperties/level.value", Value: query.Variable("v")},
		},
		OrderBy: []query.OrderBy{{Var: "v", Dir: query.Descending}},
	}

	rows, err := evalQuery(q, nil, testEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 2 || rows[0][0] != "e_2" || rows[1][0] != "e_1" {
		t.Fatalf("expected e_2 then e_1, got %v", rows)
	}
}

func TestEvalQuery_DefaultOrderIsDocumentID(t *testing.T) {
	q := &query.Document{Find: find("e"), Where: []query.Clause{
		query.Triple{E: "e", Attr: "currentStatus", Value: query.Variable("s")},
	}}

	rows, err := evalQuery(q, nil, testEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 3 || rows[0][0] != "e_1" || rows[2][0] != "e_3" {
		t.Fatalf("expected ascending document-id order, got %v", rows)
	}
}

func TestEvalQuery_Paging(t *testing.T) {
	base := []query.Clause{query.Triple{E: "e", Attr: "currentStatus", Value: query.Variable("s")}}

	q := &query.Document{Find: find("e"), Where: base, Limit: 2}

	rows, err := evalQuery(q, nil, testEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 2 || rows[0][0] != "e_1" {
		t.Fatalf("expected first page of two, got %v", rows)
	}

	q = &query.Document{Find: find("e"), Where: base, Limit: 2, Offset: 2}

	rows, err = evalQuery(q, nil, testEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 1 || rows[0][0] != "e_3" {
		t.Fatalf("expected the final document, got %v", rows)
	}

	q = &query.Document{Find: find("e"), Where: base, Limit: 2, Offset: 10}

	rows, err = evalQuery(q, nil, testEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 0 {
		t.Fatalf("expected no rows past the end, got %v", rows)
	}
}

func TestEvalQuery_SequencingChangesOrderNotSet(t *testing.T) {
	where := []query.Clause{
		query.Triple{E: "e", Attr: "entityProperties/level.value", Value: query.Variable("v")},
	}

	asc := &query.Document{Find: find("e", "v"), Where: where,
		OrderBy: []query.OrderBy{{Var: "v", Dir: query.Ascending}}}
	desc := &query.Document{Find: find("e", "v"), Where: where,
		OrderBy: []query.OrderBy{{Var: "v", Dir: query.Descending}}}

	ascRows, err := evalQuery(asc, nil, testEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	descRows, err := evalQuery(desc, nil, testEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ascRows) != len(descRows) {
		t.Fatalf("ordering changed the result set: %v vs %v", ascRows, descRows)
	}

	if ascRows[0][0] != descRows[len(descRows)-1][0] {
		t.Errorf("expected reversed order: %v vs %v", ascRows, descRows)
	}
}
