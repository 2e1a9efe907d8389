// Package mapping translates between domain instances and their stored
// document form: canonical references, header keywords, namespace
// qualification and scalar value conversion.
package mapping

// KwDocID is the document identifier key. It is always the first find
// element of a compiled query.
const KwDocID = "xt/id"

// Audit header keywords. Header properties are native scalars on the
// document, never namespace-qualified typed values.
const (
	KwTypeGUID             = "type.guid"
	KwTypeSupers           = "type.supers"
	KwTypeCategory         = "type.category"
	KwCurrentStatus        = "currentStatus"
	KwStatusOnDelete       = "statusOnDelete"
	KwMetadataCollectionID = "metadataCollectionId"
	KwCreateTime           = "createTime"
	KwUpdateTime           = "updateTime"
	KwCreatedBy            = "createdBy"
	KwUpdatedBy            = "updatedBy"
	KwVersion              = "version"
	KwEntityProxies        = "entityProxies"
)

// Property namespaces.
const (
	NsEntityProperties         = "entityProperties"
	NsRelationshipProperties   = "relationshipProperties"
	NsClassifications          = "classifications"
	NsClassificationProperties = "classificationProperties"
)

// headerProperties is the fixed set of property names that live on the
// instance header rather than in a typed property bag.
var headerProperties = map[string]bool{
	KwTypeGUID:             true,
	KwTypeSupers:           true,
	KwTypeCategory:         true,
	KwCurrentStatus:        true,
	KwStatusOnDelete:       true,
	KwMetadataCollectionID: true,
	KwCreateTime:           true,
	KwUpdateTime:           true,
	KwCreatedBy:            true,
	KwUpdatedBy:            true,
	KwVersion:              true,
}

// IsHeaderProperty reports whether name is a fixed header property.
func IsHeaderProperty(name string) bool {
	return headerProperties[name]
}

// ClassificationNamespace returns the namespace qualifying properties of the
// named classification, e.g. "classifications.Confidentiality".
func ClassificationNamespace(base, classificationName string) string {
	return base + "." + classificationName
}

// Qualify joins a namespace and a property name into a qualified keyword,
// e.g. ("entityProperties", "qualifiedName.value") -> "entityProperties/qualifiedName.value".
func Qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}

	return namespace + "/" + name
}
