// Package models defines the metadata instance types, search criteria and
// error taxonomy shared across the connector.
package models

import "time"

// InstanceStatus is the lifecycle status of a stored instance.
// Ordinal values are stable and persisted; never renumber.
type InstanceStatus int

// Lifecycle statuses. Active instances transition to Deleted (a queryable
// tombstone) and may then be purged, which removes the document entirely.
const (
	StatusUnknown  InstanceStatus = 0
	StatusDraft    InstanceStatus = 1
	StatusPrepared InstanceStatus = 2
	StatusProposed InstanceStatus = 3
	StatusApproved InstanceStatus = 4
	StatusActive   InstanceStatus = 15
	StatusDeleted  InstanceStatus = 99
)

// String returns the symbolic name of the status.
func (s InstanceStatus) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusPrepared:
		return "prepared"
	case StatusProposed:
		return "proposed"
	case StatusApproved:
		return "approved"
	case StatusActive:
		return "active"
	case StatusDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// TypeCategory distinguishes the kind of type definition an instance carries.
// Ordinal values are stable and persisted; never renumber.
type TypeCategory int

// Type definition categories.
const (
	CategoryUnknownDef        TypeCategory = 0
	CategoryEntityDef         TypeCategory = 6
	CategoryClassificationDef TypeCategory = 7
	CategoryRelationshipDef   TypeCategory = 8
)

// InstanceType identifies the type of an instance, including the chain of
// supertype GUIDs used by "exact type or subtype" search conditions.
type InstanceType struct {
	GUID           string
	Name           string
	Category       TypeCategory
	SuperTypeGUIDs []string
}

// AuditHeader carries the common header fields shared by entities and
// relationships: identity, type, home collection, lifecycle and audit trail.
type AuditHeader struct {
	GUID                 string
	Type                 InstanceType
	MetadataCollectionID string
	Status               InstanceStatus
	StatusOnDelete       InstanceStatus
	CreatedBy            string
	UpdatedBy            string
	CreateTime           time.Time
	UpdateTime           time.Time
	Version              int64
}

// Classification is a named decoration on an entity with its own property bag.
type Classification struct {
	Name       string
	Properties map[string]PropertyValue
}

// Entity is a typed node in the metadata graph.
type Entity struct {
	AuditHeader
	Properties      map[string]PropertyValue
	Classifications []Classification
}

// RefKind distinguishes entity references from relationship references.
type RefKind int

// Reference kinds.
const (
	RefEntity RefKind = iota
	RefRelationship
)

// ProxyRef is a weak reference from a relationship to one of its endpoint
// entities. It records an association, never ownership: resolution happens
// lazily against a point-in-time snapshot and can fail if the referenced
// document was purged.
type ProxyRef struct {
	Kind RefKind
	GUID string
}

// Relationship is a typed, directed edge connecting two entities by proxy
// reference. A relationship always has exactly two proxy references.
type Relationship struct {
	AuditHeader
	EntityOne  ProxyRef
	EntityTwo  ProxyRef
	Properties map[string]PropertyValue
}

// TypeDef is a registered type definition, as supplied by the type source.
type TypeDef struct {
	GUID          string
	Name          string
	Category      TypeCategory
	SuperTypeGUID string
}
