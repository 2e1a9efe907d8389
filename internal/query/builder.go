package query

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/planetf1/egeria-connector-xtdb/internal/mapping"
	"github.com/planetf1/egeria-connector-xtdb/internal/models"
)

// VarDocID is the document-id variable, always the first find element.
const VarDocID Variable = "e"

// Synthesized variables for sequencing and status binding.
const (
	varCreateTime   Variable = "ct"
	varUpdateTime   Variable = "ut"
	varSortProperty Variable = "sp"
	varStatus       Variable = "s"
)

// DefaultPageSize bounds result sets when the caller sets no explicit page
// size. Queries are never compiled unbounded.
const DefaultPageSize = 200

// Query accumulates search conditions and produces the compiled Document.
// It is a pure, synchronous builder: safe to use from multiple goroutines
// only if each goroutine owns its own instance.
type Query struct {
	log *logrus.Logger

	find   []Variable
	where  []Clause
	order  []OrderBy
	limit  int
	offset int
}

// New creates a query with the document-id variable as its first find
// element and the default page bound.
func New(log *logrus.Logger) *Query {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Query{
		log:   log,
		find:  []Variable{VarDocID},
		limit: DefaultPageSize,
	}
}

// AddTypeCondition limits results by type identity: a disjunction of "exact
// type" and "is-subtype-of" clauses. When an explicit subtype restriction
// list is supplied it replaces the broad subtype clause with one exact/
// subtype pair per listed subtype. An empty non-nil list is treated as no
// restriction; this is a caller-contract ambiguity, so it is logged.
func (q *Query) AddTypeCondition(typeGUID string, subtypeLimits []string) {
	if typeGUID == "" {
		return
	}

	if subtypeLimits != nil && len(subtypeLimits) == 0 {
		q.log.WithField("type", typeGUID).
			Warn("empty subtype restriction list treated as no restriction")
	}

	var pairs []Clause

	if len(subtypeLimits) > 0 {
		for _, subtype := range subtypeLimits {
			pairs = append(pairs,
				Triple{E: VarDocID, Attr: mapping.KwTypeGUID, Value: subtype},
				Triple{E: VarDocID, Attr: mapping.KwTypeSupers, Value: subtype},
			)
		}
	} else {
		pairs = append(pairs,
			Triple{E: VarDocID, Attr: mapping.KwTypeGUID, Value: typeGUID},
			Triple{E: VarDocID, Attr: mapping.KwTypeSupers, Value: typeGUID},
		)
	}

	q.where = append(q.where, Boolean{Op: BoolOr, Clauses: pairs})
}

// AddPropertyConditions compiles a property condition tree under the given
// namespace and appends the resulting clauses.
func (q *Query) AddPropertyConditions(sp *models.SearchProperties, namespace string) error {
	clauses, err := q.conditionsFor(sp, namespace, false)
	if err != nil {
		return err
	}

	q.where = append(q.where, clauses...)

	return nil
}

// AddClassificationConditions compiles classification conditions: for each
// named classification a membership clause plus its property conditions,
// qualified by the per-classification namespace.
func (q *Query) AddClassificationConditions(sc *models.SearchClassifications) error {
	if sc == nil {
		return nil
	}

	for _, cond := range sc.Conditions {
		if cond.Name == "" {
			return fmt.Errorf("classification condition without a name: %w", models.ErrInvalidParameter)
		}

		q.where = append(q.where, Triple{E: VarDocID, Attr: Keyword(mapping.NsClassifications), Value: cond.Name})

		ns := mapping.ClassificationNamespace(mapping.NsClassifications, cond.Name)

		clauses, err := q.conditionsFor(cond.MatchProperties, ns, sc.Match == models.MatchAny)
		if err != nil {
			return err
		}

		q.where = append(q.where, clauses...)
	}

	return nil
}

// conditionsFor flattens a condition tree depth-first into clauses, applying
// the tree's match mode. A top-level ALL stays a bare clause list, since
// conjunction is the query language's default; an ALL nested inside an OR
// must be wrapped explicitly so it is not absorbed into the disjunction.
func (q *Query) conditionsFor(sp *models.SearchProperties, namespace string, orNested bool) ([]Clause, error) {
	if sp == nil || len(sp.Conditions) == 0 {
		return nil, nil
	}

	var all []Clause

	for _, cond := range sp.Conditions {
		if cond.Nested != nil {
			nested, err := q.conditionsFor(cond.Nested, namespace, sp.Match == models.MatchAny)
			if err != nil {
				return nil, err
			}

			all = append(all, nested...)

			continue
		}

		clauses, err := translateCondition(cond, namespace)
		if err != nil {
			return nil, err
		}

		all = append(all, clauses...)
	}

	switch sp.Match {
	case models.MatchAll:
		if orNested {
			return []Clause{Boolean{Op: BoolAnd, Clauses: all}}, nil
		}

		return all, nil
	case models.MatchAny:
		return []Clause{Boolean{Op: BoolOr, Clauses: all}}, nil
	case models.MatchNone:
		return []Clause{Boolean{Op: BoolNot, Clauses: all}}, nil
	default:
		return nil, fmt.Errorf("match criteria %d: %w", sp.Match, models.ErrUnmappedConstruct)
	}
}

// AddStatusLimiters limits results to the given statuses: one direct clause
// for a single status, a disjunction for several.
func (q *Query) AddStatusLimiters(statuses []models.InstanceStatus) {
	if len(statuses) == 0 {
		return
	}

	clauses := make([]Clause, 0, len(statuses))
	for _, s := range statuses {
		clauses = append(clauses, Triple{E: VarDocID, Attr: mapping.KwCurrentStatus, Value: mapping.StatusOrdinal(s)})
	}

	if len(clauses) == 1 {
		q.where = append(q.where, clauses[0])

		return
	}

	q.where = append(q.where, Boolean{Op: BoolOr, Clauses: clauses})
}

// ExcludeDeleted filters out soft-deleted tombstones. This is the default
// status filter for active searches when the caller supplies none.
func (q *Query) ExcludeDeleted() {
	q.where = append(q.where,
		Triple{E: VarDocID, Attr: mapping.KwCurrentStatus, Value: varStatus},
		Predicate{Op: "not=", Args: []any{varStatus, mapping.StatusOrdinal(models.StatusDeleted)}},
	)
}

// AddSequencing orders results. Anything other than the document-id default
// requires binding the sort key, which also constrains matches to documents
// carrying that key: documents lacking the sort property are silently
// excluded. Sorting by property requires the property name and the namespace
// qualifying it.
func (q *Query) AddSequencing(order models.SequencingOrder, property, namespace string) error {
	switch order {
	case models.SequenceUpdateOldest:
		q.bindSortKey(varUpdateTime, mapping.KwUpdateTime, Ascending)
	case models.SequenceUpdateRecent:
		q.bindSortKey(varUpdateTime, mapping.KwUpdateTime, Descending)
	case models.SequenceCreateOldest:
		q.bindSortKey(varCreateTime, mapping.KwCreateTime, Ascending)
	case models.SequenceCreateRecent:
		q.bindSortKey(varCreateTime, mapping.KwCreateTime, Descending)
	case models.SequencePropertyAscending, models.SequencePropertyDescending:
		if property == "" {
			return fmt.Errorf("sequencing by property requires a property name: %w", models.ErrInvalidParameter)
		}

		dir := Ascending
		if order == models.SequencePropertyDescending {
			dir = Descending
		}

		q.bindSortKey(varSortProperty, propertyRef(namespace, property), dir)
	default:
		q.order = append(q.order, OrderBy{Var: VarDocID, Dir: Ascending})
	}

	return nil
}

func (q *Query) bindSortKey(v Variable, attr Keyword, dir Direction) {
	q.addFindElement(v)
	q.where = append(q.where, Triple{E: VarDocID, Attr: attr, Value: v})
	q.order = append(q.order, OrderBy{Var: v, Dir: dir})
}

// AddPaging sets the zero-based offset and the maximum result count. A
// non-positive page size falls back to the bounded default.
func (q *Query) AddPaging(offset, pageSize int) {
	if offset > 0 {
		q.offset = offset
	}

	if pageSize > 0 {
		q.limit = pageSize
	} else {
		q.limit = DefaultPageSize
	}
}

// Document assembles the compiled query. It may be called once all add
// operations are complete, and is idempotent: repeated calls return
// equivalent documents.
func (q *Query) Document() *Document {
	return &Document{
		Find:    append([]Variable(nil), q.find...),
		Where:   append([]Clause(nil), q.where...),
		OrderBy: append([]OrderBy(nil), q.order...),
		Limit:   q.limit,
		Offset:  q.offset,
	}
}

func (q *Query) addFindElement(v Variable) {
	for _, existing := range q.find {
		if existing == v {
			return
		}
	}

	q.find = append(q.find, v)
}
