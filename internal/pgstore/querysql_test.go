package pgstore

import (
	"errors"
	"strings"
	"testing"

	"github.com/planetf1/egeria-connector-xtdb/internal/models"
	"github.com/planetf1/egeria-connector-xtdb/internal/query"
)

func TestCompileQuery_EqualityTriple(t *testing.T) {
	q := &query.Document{
		Find:  []query.Variable{"e"},
		Where: []query.Clause{query.Triple{E: "e", Attr: "type.guid", Value: "asset"}},
	}

	compiled, err := compileQuery(q, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if compiled.selectList != "d.id" {
		t.Errorf("unexpected select list %q", compiled.selectList)
	}

	if !strings.Contains(compiled.where, "@>") {
		t.Errorf("equality must lower to jsonb containment: %q", compiled.where)
	}

	if len(compiled.args) != 2 || compiled.args[0] != "type.guid" || compiled.args[1] != `"asset"` {
		t.Errorf("unexpected args: %v", compiled.args)
	}

	if !strings.HasSuffix(compiled.orderBy, "d.id ASC") {
		t.Errorf("ordering must end on the document id: %q", compiled.orderBy)
	}
}

func TestCompileQuery_BindingAndPredicate(t *testing.T) {
	q := &query.Document{
		Find: []query.Variable{"e"},
		Where: []query.Clause{
			query.Triple{E: "e", Attr: "currentStatus", Value: query.Variable("s")},
			query.Predicate{Op: "not=", Args: []any{query.Variable("s"), int64(99)}},
		},
	}

	compiled, err := compileQuery(q, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(compiled.where, "d.doc ? $") {
		t.Errorf("binding must lower to attribute presence: %q", compiled.where)
	}

	if !strings.Contains(compiled.where, "<>") {
		t.Errorf("not= must lower to jsonb inequality: %q", compiled.where)
	}
}

func TestCompileQuery_ComparisonCasts(t *testing.T) {
	q := &query.Document{
		Find: []query.Variable{"e"},
		Where: []query.Clause{
			query.Triple{E: "e", Attr: "entityProperties/level.value", Value: query.Variable("v")},
			query.Predicate{Op: ">", Args: []any{query.Variable("v"), int64(3)}},
		},
	}

	compiled, err := compileQuery(q, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(compiled.where, "::numeric >") {
		t.Errorf("numeric comparison must cast the attribute: %q", compiled.where)
	}
}

func TestCompileQuery_BooleanNesting(t *testing.T) {
	q := &query.Document{
		Find: []query.Variable{"e"},
		Where: []query.Clause{
			query.Boolean{Op: query.BoolOr, Clauses: []query.Clause{
				query.Triple{E: "e", Attr: "type.guid", Value: "asset"},
				query.Triple{E: "e", Attr: "type.supers", Value: "asset"},
			}},
			query.Boolean{Op: query.BoolNot, Clauses: []query.Clause{
				query.Triple{E: "e", Attr: "entityProperties/name.value", Value: "alpha"},
			}},
		},
	}

	compiled, err := compileQuery(q, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(compiled.where, " OR ") {
		t.Errorf("disjunction missing: %q", compiled.where)
	}

	if !strings.Contains(compiled.where, "NOT (") {
		t.Errorf("negation missing: %q", compiled.where)
	}

	if !strings.Contains(compiled.where, ") AND ") {
		t.Errorf("top-level clauses must conjoin: %q", compiled.where)
	}
}

func TestCompileQuery_InVariable(t *testing.T) {
	q := &query.Document{
		Find:  []query.Variable{"r"},
		In:    []query.Variable{"e"},
		Where: []query.Clause{query.Triple{E: "r", Attr: "entityProxies", Value: query.Variable("e")}},
	}

	compiled, err := compileQuery(q, []any{"e_ent-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(compiled.where, "@>") {
		t.Errorf("in-variable must lower to containment: %q", compiled.where)
	}

	if len(compiled.args) != 2 || compiled.args[1] != `"e_ent-1"` {
		t.Errorf("in value must bind JSON-encoded: %v", compiled.args)
	}
}

func TestCompileQuery_SortKeyInSelectAndOrder(t *testing.T) {
	q := &query.Document{
		Find: []query.Variable{"e", "sp"},
		Where: []query.Clause{
			query.Triple{E: "e", Attr: "entityProperties/name.value", Value: query.Variable("sp")},
		},
		OrderBy: []query.OrderBy{{Var: "sp", Dir: query.Descending}},
	}

	compiled, err := compileQuery(q, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(compiled.selectList, "d.doc ->") {
		t.Errorf("sort key must join the select list: %q", compiled.selectList)
	}

	if !strings.Contains(compiled.orderBy, "DESC") {
		t.Errorf("descending order lost: %q", compiled.orderBy)
	}
}

func TestCompileQuery_Paging(t *testing.T) {
	q := &query.Document{
		Find:   []query.Variable{"e"},
		Where:  []query.Clause{query.Triple{E: "e", Attr: "type.guid", Value: "asset"}},
		Limit:  20,
		Offset: 40,
	}

	compiled, err := compileQuery(q, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(compiled.paging, "LIMIT") || !strings.Contains(compiled.paging, "OFFSET") {
		t.Errorf("paging fragments missing: %q", compiled.paging)
	}

	n := len(compiled.args)
	if compiled.args[n-2] != 20 || compiled.args[n-1] != 40 {
		t.Errorf("paging values must bind as parameters: %v", compiled.args)
	}
}

func TestCompileQuery_Unbounded(t *testing.T) {
	q := &query.Document{
		Find:  []query.Variable{"e"},
		Where: []query.Clause{query.Triple{E: "e", Attr: "type.guid", Value: "asset"}},
	}

	compiled, err := compileQuery(q, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if compiled.paging != "" {
		t.Errorf("zero limit must compile unbounded: %q", compiled.paging)
	}
}

func TestCompileQuery_Errors(t *testing.T) {
	if _, err := compileQuery(nil, nil); !errors.Is(err, models.ErrInvalidParameter) {
		t.Errorf("nil query: expected ErrInvalidParameter, got %v", err)
	}

	q := &query.Document{Find: []query.Variable{"e"}, In: []query.Variable{"x"}}
	if _, err := compileQuery(q, nil); !errors.Is(err, models.ErrInvalidParameter) {
		t.Errorf("missing inputs: expected ErrInvalidParameter, got %v", err)
	}

	q = &query.Document{
		Find: []query.Variable{"e"},
		Where: []query.Clause{
			query.Predicate{Op: "nil?", Args: []any{query.Variable("unbound")}},
		},
	}
	if _, err := compileQuery(q, nil); !errors.Is(err, models.ErrInvalidParameter) {
		t.Errorf("unbound predicate variable: expected ErrInvalidParameter, got %v", err)
	}
}
