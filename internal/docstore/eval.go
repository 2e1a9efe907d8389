package docstore

import (
	"fmt"
	"sort"
	"time"

	"github.com/planetf1/egeria-connector-xtdb/internal/models"
	"github.com/planetf1/egeria-connector-xtdb/internal/query"
)

// docEntry pairs a document with its identifier for evaluation.
type docEntry struct {
	id  string
	doc Document
}

// bindings maps logic variables to their values while matching one document.
type bindings map[query.Variable]any

func (b bindings) clone() bindings {
	out := make(bindings, len(b))
	for k, v := range b {
		out[k] = v
	}

	return out
}

// matchedRow carries a result tuple plus the full variable environment, so
// ordering can use variables even when they sit outside the find list.
type matchedRow struct {
	row []any
	env bindings
}

// evalQuery evaluates a compiled query document over the given documents.
// The first find element is the candidate document variable; :in variables
// are seeded from args. Results are ordered per the query's order-by, with
// the document id as deterministic tiebreaker, then paged.
func evalQuery(q *query.Document, args []any, entries []docEntry) ([][]any, error) {
	if q == nil || len(q.Find) == 0 {
		return nil, fmt.Errorf("query has no find elements: %w", models.ErrInvalidParameter)
	}

	if len(args) != len(q.In) {
		return nil, fmt.Errorf("query expects %d input values, got %d: %w",
			len(q.In), len(args), models.ErrInvalidParameter)
	}

	seed := make(bindings, len(q.In)+1)
	for i, v := range q.In {
		seed[v] = args[i]
	}

	docVar := q.Find[0]

	var matched []matchedRow

	for _, entry := range entries {
		env := seed.clone()
		env[docVar] = entry.id

		ok, err := matchAll(q.Where, entry.doc, env)
		if err != nil {
			return nil, err
		}

		if !ok {
			continue
		}

		row := make([]any, len(q.Find))

		for i, v := range q.Find {
			val, bound := env[v]
			if !bound {
				return nil, fmt.Errorf("find variable %s is not bound by any clause: %w", v, models.ErrInvalidParameter)
			}

			row[i] = val
		}

		matched = append(matched, matchedRow{row: row, env: env})
	}

	sortRows(matched, q.OrderBy)

	rows := make([][]any, 0, len(matched))
	for _, m := range matched {
		rows = append(rows, m.row)
	}

	return page(rows, q.Offset, q.Limit), nil
}

func matchAll(clauses []query.Clause, doc Document, env bindings) (bool, error) {
	for _, c := range clauses {
		ok, err := matchClause(c, doc, env)
		if err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}

func matchClause(c query.Clause, doc Document, env bindings) (bool, error) {
	switch clause := c.(type) {
	case query.Triple:
		return matchTriple(clause, doc, env)
	case query.Predicate:
		return evalPredicate(clause, env)
	case query.Boolean:
		return matchBoolean(clause, doc, env)
	default:
		return false, fmt.Errorf("clause type %T: %w", c, models.ErrUnmappedConstruct)
	}
}

// matchTriple matches one [e :attr value] clause. A document lacking the
// attribute never matches: property absence is not a match. Literal values
// compare by equality, with containment for multi-valued attributes; an
// unbound variable binds the attribute value, a bound one compares.
func matchTriple(t query.Triple, doc Document, env bindings) (bool, error) {
	attrVal, present := doc[string(t.Attr)]
	if !present {
		return false, nil
	}

	if v, isVar := t.Value.(query.Variable); isVar {
		if bound, ok := env[v]; ok {
			return containsOrEqual(attrVal, bound), nil
		}

		env[v] = attrVal

		return true, nil
	}

	return containsOrEqual(attrVal, t.Value), nil
}

func matchBoolean(b query.Boolean, doc Document, env bindings) (bool, error) {
	switch b.Op {
	case query.BoolAnd, query.BoolNot:
		ok, err := matchAll(b.Clauses, doc, env.clone())
		if err != nil {
			return false, err
		}

		if b.Op == query.BoolNot {
			return !ok, nil
		}

		return ok, nil
	case query.BoolOr:
		for _, c := range b.Clauses {
			ok, err := matchClause(c, doc, env.clone())
			if err != nil {
				return false, err
			}

			if ok {
				return true, nil
			}
		}

		return false, nil
	default:
		return false, fmt.Errorf("boolean operator %q: %w", b.Op, models.ErrUnmappedConstruct)
	}
}

// evalPredicate applies a comparison predicate to resolved arguments. A
// predicate whose variable is unbound in this branch simply fails to match;
// it never errors, since disjunctive flattening can separate a predicate
// from its binding clause.
func evalPredicate(p query.Predicate, env bindings) (bool, error) {
	resolved := make([]any, len(p.Args))

	for i, a := range p.Args {
		if v, isVar := a.(query.Variable); isVar {
			bound, ok := env[v]
			if !ok {
				return false, nil
			}

			resolved[i] = bound

			continue
		}

		resolved[i] = a
	}

	switch p.Op {
	case "not=":
		if len(resolved) != 2 {
			return false, fmt.Errorf("not= expects 2 arguments: %w", models.ErrInvalidParameter)
		}

		return !equalValues(resolved[0], resolved[1]), nil
	case ">", ">=", "<", "<=":
		if len(resolved) != 2 {
			return false, fmt.Errorf("%s expects 2 arguments: %w", p.Op, models.ErrInvalidParameter)
		}

		cmp, ok := compareValues(resolved[0], resolved[1])
		if !ok {
			return false, nil
		}

		switch p.Op {
		case ">":
			return cmp > 0, nil
		case ">=":
			return cmp >= 0, nil
		case "<":
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	case "nil?":
		if len(resolved) != 1 {
			return false, fmt.Errorf("nil? expects 1 argument: %w", models.ErrInvalidParameter)
		}

		return resolved[0] == nil, nil
	default:
		return false, fmt.Errorf("predicate %q: %w", p.Op, models.ErrUnmappedConstruct)
	}
}

func containsOrEqual(attrVal, want any) bool {
	switch vals := attrVal.(type) {
	case []string:
		for _, v := range vals {
			if equalValues(v, want) {
				return true
			}
		}

		return false
	case []any:
		for _, v := range vals {
			if equalValues(v, want) {
				return true
			}
		}

		return false
	default:
		return equalValues(attrVal, want)
	}
}

func equalValues(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)

		return bok && af == bf
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)

		return ok && av == bv
	case bool:
		bv, ok := b.(bool)

		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)

		return ok && av.Equal(bv)
	case nil:
		return b == nil
	default:
		return false
	}
}

// compareValues orders two values of the same kind. Mixed or unordered
// kinds report not-comparable, which predicates treat as no-match.
func compareValues(a, b any) (int, bool) {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		if !bok {
			return 0, false
		}

		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}

		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		default:
			return 0, true
		}
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}

		switch {
		case av.Before(bv):
			return -1, true
		case av.After(bv):
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}

// sortRows orders matches per the query's order-by entries, falling back to
// the document id for determinism.
func sortRows(matched []matchedRow, orderBy []query.OrderBy) {
	sort.SliceStable(matched, func(i, j int) bool {
		for _, o := range orderBy {
			cmp, ok := compareValues(matched[i].env[o.Var], matched[j].env[o.Var])
			if !ok || cmp == 0 {
				continue
			}

			if o.Dir == query.Descending {
				return cmp > 0
			}

			return cmp < 0
		}

		idI, _ := matched[i].row[0].(string)
		idJ, _ := matched[j].row[0].(string)

		return idI < idJ
	})
}

func page(rows [][]any, offset, limit int) [][]any {
	if offset >= len(rows) {
		return nil
	}

	rows = rows[offset:]

	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}

	return rows
}
