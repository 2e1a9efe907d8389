package models

import "time"

// ValueCategory classifies a typed property value.
type ValueCategory int

// Property value categories. Only primitives and enums have a comparable
// scalar form; the remainder are rejected by the query translator.
const (
	CategoryPrimitive ValueCategory = iota
	CategoryEnum
	CategoryStruct
	CategoryArray
	CategoryMap
)

// String returns the category name used in logs and error messages.
func (c ValueCategory) String() string {
	switch c {
	case CategoryPrimitive:
		return "primitive"
	case CategoryEnum:
		return "enum"
	case CategoryStruct:
		return "struct"
	case CategoryArray:
		return "array"
	case CategoryMap:
		return "map"
	default:
		return "unknown"
	}
}

// PropertyValue is a typed property value. Value holds the native Go form for
// primitives (string, int64, float64, bool, time.Time); enums carry a symbolic
// name plus the stored ordinal.
type PropertyValue struct {
	Category ValueCategory
	Value    any
	Symbol   string
	Ordinal  int
}

// StringValue wraps a string primitive.
func StringValue(v string) PropertyValue {
	return PropertyValue{Category: CategoryPrimitive, Value: v}
}

// IntValue wraps an integer primitive.
func IntValue(v int64) PropertyValue {
	return PropertyValue{Category: CategoryPrimitive, Value: v}
}

// FloatValue wraps a floating-point primitive.
func FloatValue(v float64) PropertyValue {
	return PropertyValue{Category: CategoryPrimitive, Value: v}
}

// BoolValue wraps a boolean primitive.
func BoolValue(v bool) PropertyValue {
	return PropertyValue{Category: CategoryPrimitive, Value: v}
}

// TimeValue wraps a timestamp primitive.
func TimeValue(v time.Time) PropertyValue {
	return PropertyValue{Category: CategoryPrimitive, Value: v}
}

// EnumValue wraps an enumeration value by symbolic name and stored ordinal.
func EnumValue(symbol string, ordinal int) PropertyValue {
	return PropertyValue{Category: CategoryEnum, Symbol: symbol, Ordinal: ordinal}
}
