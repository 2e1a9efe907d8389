// Package query compiles search criteria into the Datalog-style query
// document executed by the document store: a find-list of bound variables, a
// vector of where-clauses, ordering and paging.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Variable is a bound logic variable, e.g. "e" or "v_qualifiedName".
type Variable string

// Keyword is a qualified document attribute reference,
// e.g. "currentStatus" or "entityProperties/qualifiedName.value".
type Keyword string

// Clause is one entry in the query's where vector: a triple, a predicate
// application, or a boolean combination of clauses.
type Clause interface {
	clause()

	// EDN renders the clause in its wire form, used for logging and
	// debugging against the store's native query language.
	EDN() string
}

// Triple binds a document variable, an attribute and a value. The value is
// either a literal (direct equality, with set-containment semantics for
// multi-valued attributes) or a Variable to bind for later predicates and
// ordering.
type Triple struct {
	E     Variable
	Attr  Keyword
	Value any
}

func (Triple) clause() {}

// EDN implements Clause.
func (t Triple) EDN() string {
	return fmt.Sprintf("[%s :%s %s]", t.E, t.Attr, ednValue(t.Value))
}

// Predicate applies a comparison operator to previously bound variables
// and literals, e.g. [(not= s 99)].
type Predicate struct {
	Op   string
	Args []any
}

func (Predicate) clause() {}

// EDN implements Clause.
func (p Predicate) EDN() string {
	parts := make([]string, 0, len(p.Args)+1)
	parts = append(parts, p.Op)

	for _, a := range p.Args {
		parts = append(parts, ednValue(a))
	}

	return "[(" + strings.Join(parts, " ") + ")]"
}

// BoolOp is a boolean combinator over clauses.
type BoolOp string

// Boolean combinators.
const (
	BoolAnd BoolOp = "and"
	BoolOr  BoolOp = "or"
	BoolNot BoolOp = "not"
)

// Boolean combines nested clauses under a single combinator.
type Boolean struct {
	Op      BoolOp
	Clauses []Clause
}

func (Boolean) clause() {}

// EDN implements Clause.
func (b Boolean) EDN() string {
	parts := make([]string, 0, len(b.Clauses)+1)
	parts = append(parts, string(b.Op))

	for _, c := range b.Clauses {
		parts = append(parts, c.EDN())
	}

	return "(" + strings.Join(parts, " ") + ")"
}

// Direction orders a sort key ascending or descending.
type Direction string

// Sort directions.
const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// OrderBy sorts results by a bound variable.
type OrderBy struct {
	Var Variable
	Dir Direction
}

// Document is the compiled query: the find-list (document-id variable always
// first), optional externally bound input variables, where-clauses, ordering
// and paging.
type Document struct {
	Find    []Variable
	In      []Variable
	Where   []Clause
	OrderBy []OrderBy
	Limit   int
	Offset  int
}

// EDN renders the whole query document in its wire form.
func (d *Document) EDN() string {
	var b strings.Builder

	b.WriteString("{:find [")
	b.WriteString(joinVars(d.Find))
	b.WriteString("]")

	if len(d.In) > 0 {
		b.WriteString(" :in [")
		b.WriteString(joinVars(d.In))
		b.WriteString("]")
	}

	b.WriteString(" :where [")

	for i, c := range d.Where {
		if i > 0 {
			b.WriteString(" ")
		}

		b.WriteString(c.EDN())
	}

	b.WriteString("]")

	if len(d.OrderBy) > 0 {
		b.WriteString(" :order-by [")

		for i, o := range d.OrderBy {
			if i > 0 {
				b.WriteString(" ")
			}

			fmt.Fprintf(&b, "[%s :%s]", o.Var, o.Dir)
		}

		b.WriteString("]")
	}

	fmt.Fprintf(&b, " :limit %d :offset %d}", d.Limit, d.Offset)

	return b.String()
}

func joinVars(vars []Variable) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = string(v)
	}

	return strings.Join(parts, " ")
}

// ednValue renders a literal or variable in EDN form. The query document is
// built from Go data, so only the value types the translator produces need
// rendering here.
func ednValue(v any) string {
	switch val := v.(type) {
	case Variable:
		return string(val)
	case Keyword:
		return ":" + string(val)
	case string:
		return strconv.Quote(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return `#inst "` + val.UTC().Format(time.RFC3339Nano) + `"`
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%v", val)
	}
}
