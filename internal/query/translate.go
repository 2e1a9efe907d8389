package query

import (
	"fmt"
	"strings"

	"github.com/planetf1/egeria-connector-xtdb/internal/mapping"
	"github.com/planetf1/egeria-connector-xtdb/internal/models"
)

// propertyRef builds the qualified attribute reference for a property
// condition. Header properties are native scalars: referenced unqualified,
// except inside a classification namespace where the namespace alone applies.
// Every other property is a typed value needing namespace and ".value"
// qualification, with the classification property sub-namespace inserted for
// properties owned by a classification rather than the instance itself.
func propertyRef(namespace, name string) Keyword {
	inClassification := strings.HasPrefix(namespace, mapping.NsClassifications)

	if mapping.IsHeaderProperty(name) {
		if inClassification {
			return Keyword(mapping.Qualify(namespace, name))
		}

		return Keyword(name)
	}

	if inClassification {
		namespace = namespace + "." + mapping.NsClassificationProperties
	}

	return Keyword(mapping.Qualify(namespace, name+".value"))
}

// sortVariable names the synthesized variable binding a property for a
// non-equality predicate, deterministically from the property name.
func sortVariable(property string) Variable {
	return Variable("v_" + property)
}

// predicateForOperator maps a comparison operator to its logic-language
// predicate symbol. LIKE and IN have no mapping and reject the compilation.
func predicateForOperator(op models.Operator) (string, error) {
	switch op {
	case models.OpNEQ:
		return "not=", nil
	case models.OpGT:
		return ">", nil
	case models.OpGTE:
		return ">=", nil
	case models.OpLT:
		return "<", nil
	case models.OpLTE:
		return "<=", nil
	case models.OpIsNull:
		return "nil?", nil
	default:
		return "", fmt.Errorf("comparison operator %s: %w", op, models.ErrUnmappedConstruct)
	}
}

// translateCondition compiles a single non-nested property condition into
// logic clauses. Equality compiles to one direct triple; every other
// supported operator compiles to a binding triple plus a predicate clause on
// the synthesized variable.
func translateCondition(c models.PropertyCondition, namespace string) ([]Clause, error) {
	ref := propertyRef(namespace, c.Property)

	if c.Operator == models.OpEQ {
		literal, err := mapping.ValueForComparison(c.Value)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", c.Property, err)
		}

		return []Clause{Triple{E: VarDocID, Attr: ref, Value: literal}}, nil
	}

	predicate, err := predicateForOperator(c.Operator)
	if err != nil {
		return nil, fmt.Errorf("property %q: %w", c.Property, err)
	}

	v := sortVariable(c.Property)
	binding := Triple{E: VarDocID, Attr: ref, Value: v}

	if c.Operator == models.OpIsNull {
		// Null tests apply to the bound variable alone: the binding
		// clause already requires the attribute to be present.
		return []Clause{binding, Predicate{Op: predicate, Args: []any{v}}}, nil
	}

	literal, err := mapping.ValueForComparison(c.Value)
	if err != nil {
		return nil, fmt.Errorf("property %q: %w", c.Property, err)
	}

	return []Clause{binding, Predicate{Op: predicate, Args: []any{v, literal}}}, nil
}
