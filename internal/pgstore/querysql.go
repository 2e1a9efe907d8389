package pgstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/planetf1/egeria-connector-xtdb/internal/models"
	"github.com/planetf1/egeria-connector-xtdb/internal/query"
)

// compiledQuery is a query document lowered to SQL fragments over a document
// source aliased "d" with columns (id TEXT, doc JSONB). The caller supplies
// the FROM clause, so the same compilation serves both point-in-time reads
// and transaction overlays.
type compiledQuery struct {
	selectList string
	where      string
	orderBy    string
	paging     string
	args       []any
}

// sqlCompiler lowers one query document. Literal values are bound as
// JSON-encoded parameters compared with jsonb operators, so the comparison
// semantics follow the stored document encoding exactly.
type sqlCompiler struct {
	args    []any
	inVals  map[query.Variable]any
	varExpr map[query.Variable]string
	docVar  query.Variable
}

func compileQuery(q *query.Document, inArgs []any) (*compiledQuery, error) {
	if q == nil || len(q.Find) == 0 {
		return nil, fmt.Errorf("query has no find elements: %w", models.ErrInvalidParameter)
	}

	if len(inArgs) != len(q.In) {
		return nil, fmt.Errorf("query expects %d input values, got %d: %w",
			len(q.In), len(inArgs), models.ErrInvalidParameter)
	}

	c := &sqlCompiler{
		inVals:  make(map[query.Variable]any, len(q.In)),
		varExpr: make(map[query.Variable]string),
		docVar:  q.Find[0],
	}

	for i, v := range q.In {
		c.inVals[v] = inArgs[i]
	}

	// Pre-register every binding triple in the tree so predicates and
	// ordering can reference the bound attribute wherever they sit.
	c.registerBindings(q.Where)

	where, err := c.conjunction(q.Where)
	if err != nil {
		return nil, err
	}

	if where == "" {
		where = "TRUE"
	}

	selectList, err := c.selectList(q.Find)
	if err != nil {
		return nil, err
	}

	return &compiledQuery{
		selectList: selectList,
		where:      where,
		orderBy:    c.orderBy(q.OrderBy),
		paging:     c.paging(q.Limit, q.Offset),
		args:       c.args,
	}, nil
}

func (c *sqlCompiler) registerBindings(clauses []query.Clause) {
	for _, cl := range clauses {
		switch clause := cl.(type) {
		case query.Triple:
			v, isVar := clause.Value.(query.Variable)
			if !isVar || v == c.docVar {
				continue
			}

			if _, isIn := c.inVals[v]; isIn {
				continue
			}

			if _, seen := c.varExpr[v]; !seen {
				c.varExpr[v] = fmt.Sprintf("d.doc -> %s", c.param(string(clause.Attr)))
			}
		case query.Boolean:
			c.registerBindings(clause.Clauses)
		}
	}
}

func (c *sqlCompiler) conjunction(clauses []query.Clause) (string, error) {
	parts := make([]string, 0, len(clauses))

	for _, cl := range clauses {
		part, err := c.clause(cl)
		if err != nil {
			return "", err
		}

		parts = append(parts, part)
	}

	return strings.Join(parts, " AND "), nil
}

func (c *sqlCompiler) clause(cl query.Clause) (string, error) {
	switch clause := cl.(type) {
	case query.Triple:
		return c.triple(clause)
	case query.Predicate:
		return c.predicate(clause)
	case query.Boolean:
		return c.boolean(clause)
	default:
		return "", fmt.Errorf("clause type %T: %w", cl, models.ErrUnmappedConstruct)
	}
}

// triple lowers [e :attr value]. Literals and :in values compare with jsonb
// containment, which covers both scalar equality and membership in
// multi-valued attributes; an unbound variable lowers to attribute presence,
// its comparisons carried by the registered expression.
func (c *sqlCompiler) triple(t query.Triple) (string, error) {
	attr := string(t.Attr)

	if v, isVar := t.Value.(query.Variable); isVar {
		if val, isIn := c.inVals[v]; isIn {
			return c.containment(attr, val)
		}

		if v == c.docVar {
			return "", fmt.Errorf("document variable cannot appear as a triple value: %w", models.ErrUnmappedConstruct)
		}

		return fmt.Sprintf("d.doc ? %s::text", c.param(attr)), nil
	}

	return c.containment(attr, t.Value)
}

func (c *sqlCompiler) containment(attr string, value any) (string, error) {
	encoded, err := jsonLiteral(value)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("d.doc -> %s @> %s::jsonb", c.param(attr), c.param(encoded)), nil
}

func (c *sqlCompiler) predicate(p query.Predicate) (string, error) {
	switch p.Op {
	case "not=":
		if len(p.Args) != 2 {
			return "", fmt.Errorf("not= expects 2 arguments: %w", models.ErrInvalidParameter)
		}

		left, right, err := c.comparisonSides(p.Args[0], p.Args[1], "jsonb")
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("%s <> %s", left, right), nil
	case ">", ">=", "<", "<=":
		if len(p.Args) != 2 {
			return "", fmt.Errorf("%s expects 2 arguments: %w", p.Op, models.ErrInvalidParameter)
		}

		left, right, err := c.comparisonSides(p.Args[0], p.Args[1], comparisonCast(p.Args[1]))
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("%s %s %s", left, p.Op, right), nil
	case "nil?":
		if len(p.Args) != 1 {
			return "", fmt.Errorf("nil? expects 1 argument: %w", models.ErrInvalidParameter)
		}

		expr, err := c.varExpression(p.Args[0])
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("%s = 'null'::jsonb", expr), nil
	default:
		return "", fmt.Errorf("predicate %q: %w", p.Op, models.ErrUnmappedConstruct)
	}
}

// comparisonSides lowers a (variable, literal) predicate pair, casting the
// jsonb attribute expression to the literal's comparison domain.
func (c *sqlCompiler) comparisonSides(varArg, litArg any, cast string) (string, string, error) {
	expr, err := c.varExpression(varArg)
	if err != nil {
		return "", "", err
	}

	switch cast {
	case "jsonb":
		encoded, err := jsonLiteral(c.resolveLiteral(litArg))
		if err != nil {
			return "", "", err
		}

		return expr, fmt.Sprintf("%s::jsonb", c.param(encoded)), nil
	case "numeric":
		return fmt.Sprintf("(%s)::numeric", expr), c.param(c.resolveLiteral(litArg)), nil
	case "timestamptz":
		return fmt.Sprintf("(%s #>> '{}')::timestamptz", expr), c.param(c.resolveLiteral(litArg)), nil
	default:
		return fmt.Sprintf("(%s #>> '{}')", expr), fmt.Sprintf("%s::text", c.param(c.resolveLiteral(litArg))), nil
	}
}

func (c *sqlCompiler) varExpression(arg any) (string, error) {
	v, isVar := arg.(query.Variable)
	if !isVar {
		return "", fmt.Errorf("predicate argument %v is not a variable: %w", arg, models.ErrUnmappedConstruct)
	}

	expr, ok := c.varExpr[v]
	if !ok {
		return "", fmt.Errorf("predicate variable %s has no binding clause: %w", v, models.ErrInvalidParameter)
	}

	return expr, nil
}

// resolveLiteral substitutes :in values referenced by variable.
func (c *sqlCompiler) resolveLiteral(arg any) any {
	if v, isVar := arg.(query.Variable); isVar {
		if val, isIn := c.inVals[v]; isIn {
			return val
		}
	}

	return arg
}

func (c *sqlCompiler) boolean(b query.Boolean) (string, error) {
	parts := make([]string, 0, len(b.Clauses))

	for _, cl := range b.Clauses {
		part, err := c.clause(cl)
		if err != nil {
			return "", err
		}

		parts = append(parts, part)
	}

	switch b.Op {
	case query.BoolAnd:
		return "(" + strings.Join(parts, " AND ") + ")", nil
	case query.BoolOr:
		return "(" + strings.Join(parts, " OR ") + ")", nil
	case query.BoolNot:
		return "NOT (" + strings.Join(parts, " AND ") + ")", nil
	default:
		return "", fmt.Errorf("boolean operator %q: %w", b.Op, models.ErrUnmappedConstruct)
	}
}

func (c *sqlCompiler) selectList(find []query.Variable) (string, error) {
	cols := make([]string, 0, len(find))

	for _, v := range find {
		if v == c.docVar {
			cols = append(cols, "d.id")

			continue
		}

		expr, ok := c.varExpr[v]
		if !ok {
			return "", fmt.Errorf("find variable %s has no binding clause: %w", v, models.ErrInvalidParameter)
		}

		cols = append(cols, expr)
	}

	return strings.Join(cols, ", "), nil
}

// orderBy lowers the order-by entries, always ending on the document id so
// result order is deterministic. jsonb ordering compares numbers numerically
// and strings lexically, matching the document encoding of sort keys.
func (c *sqlCompiler) orderBy(entries []query.OrderBy) string {
	parts := make([]string, 0, len(entries)+1)

	for _, o := range entries {
		if o.Var == c.docVar {
			continue
		}

		expr, ok := c.varExpr[o.Var]
		if !ok {
			continue
		}

		dir := "ASC"
		if o.Dir == query.Descending {
			dir = "DESC"
		}

		parts = append(parts, expr+" "+dir)
	}

	parts = append(parts, "d.id ASC")

	return strings.Join(parts, ", ")
}

func (c *sqlCompiler) paging(limit, offset int) string {
	var sb strings.Builder

	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %s", c.param(limit))
	}

	if offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %s", c.param(offset))
	}

	return sb.String()
}

func (c *sqlCompiler) param(v any) string {
	c.args = append(c.args, v)

	return fmt.Sprintf("$%d", len(c.args))
}

// jsonLiteral encodes a literal exactly as document values are stored, so
// jsonb comparisons are byte-consistent. Timestamps keep their marshalled
// RFC 3339 form.
func jsonLiteral(v any) (string, error) {
	if t, ok := v.(time.Time); ok {
		v = t.UTC()
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding literal %v: %w", v, err)
	}

	return string(b), nil
}

// comparisonCast picks the SQL comparison domain from the literal's Go type.
func comparisonCast(lit any) string {
	switch lit.(type) {
	case int, int64, float64:
		return "numeric"
	case time.Time:
		return "timestamptz"
	case query.Variable:
		return "jsonb"
	default:
		return "text"
	}
}
