package models

// MatchCriteria is the boolean mode combining a set of property conditions.
type MatchCriteria int

// Match modes.
const (
	MatchAll MatchCriteria = iota
	MatchAny
	MatchNone
)

// String returns the match mode name used in logs.
func (m MatchCriteria) String() string {
	switch m {
	case MatchAll:
		return "all"
	case MatchAny:
		return "any"
	case MatchNone:
		return "none"
	default:
		return "invalid"
	}
}

// Operator is a property comparison operator.
type Operator int

// Comparison operators. OpLike and OpIn are recognised but unmapped: the
// query translator rejects them rather than compiling an incorrect query.
const (
	OpEQ Operator = iota
	OpNEQ
	OpGT
	OpGTE
	OpLT
	OpLTE
	OpIsNull
	OpLike
	OpIn
)

// String returns the operator name used in logs and error messages.
func (o Operator) String() string {
	switch o {
	case OpEQ:
		return "eq"
	case OpNEQ:
		return "neq"
	case OpGT:
		return "gt"
	case OpGTE:
		return "gte"
	case OpLT:
		return "lt"
	case OpLTE:
		return "lte"
	case OpIsNull:
		return "is-null"
	case OpLike:
		return "like"
	case OpIn:
		return "in"
	default:
		return "invalid"
	}
}

// PropertyCondition is one leaf or branch of a property condition tree.
// Exactly one of (Property, Operator, Value) or Nested should be set.
type PropertyCondition struct {
	Property string
	Operator Operator
	Value    PropertyValue
	Nested   *SearchProperties
}

// SearchProperties is a boolean-combined tree of property conditions.
type SearchProperties struct {
	Conditions []PropertyCondition
	Match      MatchCriteria
}

// ClassificationCondition matches entities carrying a named classification,
// optionally constrained by conditions on the classification's properties.
type ClassificationCondition struct {
	Name            string
	MatchProperties *SearchProperties
}

// SearchClassifications is a set of classification conditions combined under
// one match mode.
type SearchClassifications struct {
	Conditions []ClassificationCondition
	Match      MatchCriteria
}

// SequencingOrder selects how search results are ordered.
type SequencingOrder int

// Sequencing orders. SequenceGUID is the default: results ordered by
// document identifier.
const (
	SequenceGUID SequencingOrder = iota
	SequenceCreateOldest
	SequenceCreateRecent
	SequenceUpdateOldest
	SequenceUpdateRecent
	SequencePropertyAscending
	SequencePropertyDescending
)

// EntitySearchCriteria describes an entity search: type filter, property and
// classification condition trees, status filter, sequencing and paging.
// A nil StatusFilter excludes deleted instances; an explicit filter replaces
// that default entirely.
type EntitySearchCriteria struct {
	TypeGUID     string
	SubtypeGUIDs []string

	Properties      *SearchProperties
	Classifications *SearchClassifications
	StatusFilter    []InstanceStatus

	Order         SequencingOrder
	OrderProperty string

	Offset   int
	PageSize int
}

// RelationshipSearchCriteria describes a relationship search. Relationships
// carry no classifications, so only property conditions apply.
type RelationshipSearchCriteria struct {
	TypeGUID     string
	SubtypeGUIDs []string

	Properties   *SearchProperties
	StatusFilter []InstanceStatus

	Order         SequencingOrder
	OrderProperty string

	Offset   int
	PageSize int
}
