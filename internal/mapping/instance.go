package mapping

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/planetf1/egeria-connector-xtdb/internal/models"
)

// NewEntityDoc builds the stored document for an entity. Typed properties are
// stored in their comparable scalar form under the entity property namespace;
// classification properties under their per-classification namespace.
func NewEntityDoc(e *models.Entity) (map[string]any, error) {
	ref, err := EntityRef(e.GUID)
	if err != nil {
		return nil, err
	}

	doc := make(map[string]any)
	doc[KwDocID] = ref
	putHeader(doc, &e.AuditHeader)

	if err := putProperties(doc, NsEntityProperties, e.Properties); err != nil {
		return nil, fmt.Errorf("entity %s: %w", e.GUID, err)
	}

	if len(e.Classifications) > 0 {
		names := make([]string, 0, len(e.Classifications))

		for _, c := range e.Classifications {
			names = append(names, c.Name)
			ns := ClassificationNamespace(NsClassifications, c.Name) + "." + NsClassificationProperties

			if err := putProperties(doc, ns, c.Properties); err != nil {
				return nil, fmt.Errorf("entity %s classification %s: %w", e.GUID, c.Name, err)
			}
		}

		sort.Strings(names)
		doc[NsClassifications] = names
	}

	return doc, nil
}

// NewRelationshipDoc builds the stored document for a relationship, including
// its two proxy references.
func NewRelationshipDoc(r *models.Relationship) (map[string]any, error) {
	ref, err := RelationshipRef(r.GUID)
	if err != nil {
		return nil, err
	}

	one, err := Ref(r.EntityOne)
	if err != nil {
		return nil, fmt.Errorf("relationship %s proxy one: %w", r.GUID, err)
	}

	two, err := Ref(r.EntityTwo)
	if err != nil {
		return nil, fmt.Errorf("relationship %s proxy two: %w", r.GUID, err)
	}

	doc := make(map[string]any)
	doc[KwDocID] = ref
	putHeader(doc, &r.AuditHeader)
	doc[KwEntityProxies] = []string{one, two}

	if err := putProperties(doc, NsRelationshipProperties, r.Properties); err != nil {
		return nil, fmt.Errorf("relationship %s: %w", r.GUID, err)
	}

	return doc, nil
}

// EntityFromDoc reconstructs an entity from its stored document.
func EntityFromDoc(doc map[string]any) (*models.Entity, error) {
	header, err := headerFromDoc(doc, models.RefEntity)
	if err != nil {
		return nil, err
	}

	e := &models.Entity{
		AuditHeader: *header,
		Properties:  propertiesFromDoc(doc, NsEntityProperties),
	}

	for _, name := range asStringSlice(doc[NsClassifications]) {
		ns := ClassificationNamespace(NsClassifications, name) + "." + NsClassificationProperties
		e.Classifications = append(e.Classifications, models.Classification{
			Name:       name,
			Properties: propertiesFromDoc(doc, ns),
		})
	}

	return e, nil
}

// RelationshipFromDoc reconstructs a relationship from its stored document.
func RelationshipFromDoc(doc map[string]any) (*models.Relationship, error) {
	header, err := headerFromDoc(doc, models.RefRelationship)
	if err != nil {
		return nil, err
	}

	proxies := asStringSlice(doc[KwEntityProxies])
	if len(proxies) != 2 {
		return nil, fmt.Errorf("relationship %s: expected 2 entity proxies, found %d: %w",
			header.GUID, len(proxies), models.ErrInvalidState)
	}

	one, err := ParseRef(proxies[0])
	if err != nil {
		return nil, err
	}

	two, err := ParseRef(proxies[1])
	if err != nil {
		return nil, err
	}

	return &models.Relationship{
		AuditHeader: *header,
		EntityOne:   one,
		EntityTwo:   two,
		Properties:  propertiesFromDoc(doc, NsRelationshipProperties),
	}, nil
}

// MarkDeleted returns a copy of doc with the soft-delete status transition
// applied and the audit header bumped: the prior status is preserved for a
// later restore, the update stamp and version advance, and the acting user
// is recorded.
func MarkDeleted(doc map[string]any, userID string, at time.Time) map[string]any {
	updated := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		updated[k] = v
	}

	updated[KwStatusOnDelete] = asInt64(doc[KwCurrentStatus])
	updated[KwCurrentStatus] = StatusOrdinal(models.StatusDeleted)
	updated[KwUpdateTime] = at
	updated[KwUpdatedBy] = userID
	updated[KwVersion] = asInt64(doc[KwVersion]) + 1

	return updated
}

func putHeader(doc map[string]any, h *models.AuditHeader) {
	doc[KwTypeGUID] = h.Type.GUID
	doc[KwTypeCategory] = int64(h.Type.Category)

	if len(h.Type.SuperTypeGUIDs) > 0 {
		doc[KwTypeSupers] = append([]string(nil), h.Type.SuperTypeGUIDs...)
	}

	doc[KwCurrentStatus] = StatusOrdinal(h.Status)

	if h.StatusOnDelete != models.StatusUnknown {
		doc[KwStatusOnDelete] = StatusOrdinal(h.StatusOnDelete)
	}

	doc[KwMetadataCollectionID] = h.MetadataCollectionID
	doc[KwCreateTime] = h.CreateTime
	doc[KwCreatedBy] = h.CreatedBy

	if !h.UpdateTime.IsZero() {
		doc[KwUpdateTime] = h.UpdateTime
	}

	if h.UpdatedBy != "" {
		doc[KwUpdatedBy] = h.UpdatedBy
	}

	doc[KwVersion] = h.Version
}

func headerFromDoc(doc map[string]any, kind models.RefKind) (*models.AuditHeader, error) {
	ref, ok := doc[KwDocID].(string)
	if !ok {
		return nil, fmt.Errorf("document has no identifier: %w", models.ErrInvalidState)
	}

	parsed, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}

	if parsed.Kind != kind {
		return nil, fmt.Errorf("document %s is not of the requested kind: %w", ref, models.ErrInvalidParameter)
	}

	return &models.AuditHeader{
		GUID: parsed.GUID,
		Type: models.InstanceType{
			GUID:           asString(doc[KwTypeGUID]),
			Category:       models.TypeCategory(asInt64(doc[KwTypeCategory])),
			SuperTypeGUIDs: asStringSlice(doc[KwTypeSupers]),
		},
		MetadataCollectionID: asString(doc[KwMetadataCollectionID]),
		Status:               models.InstanceStatus(asInt64(doc[KwCurrentStatus])),
		StatusOnDelete:       models.InstanceStatus(asInt64(doc[KwStatusOnDelete])),
		CreatedBy:            asString(doc[KwCreatedBy]),
		UpdatedBy:            asString(doc[KwUpdatedBy]),
		CreateTime:           asTime(doc[KwCreateTime]),
		UpdateTime:           asTime(doc[KwUpdateTime]),
		Version:              asInt64(doc[KwVersion]),
	}, nil
}

func putProperties(doc map[string]any, namespace string, props map[string]models.PropertyValue) error {
	for name, pv := range props {
		scalar, err := ValueForComparison(pv)
		if err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}

		doc[Qualify(namespace, name+".value")] = scalar
	}

	return nil
}

// propertiesFromDoc recovers the typed property bag for a namespace. Values
// come back in their comparable scalar form: enum ordinals read back as
// integer primitives, which is sufficient for search and cascade decisions.
func propertiesFromDoc(doc map[string]any, namespace string) map[string]models.PropertyValue {
	prefix := namespace + "/"

	var props map[string]models.PropertyValue

	for key, v := range doc {
		name, found := strings.CutPrefix(key, prefix)
		if !found {
			continue
		}

		name, found = strings.CutSuffix(name, ".value")
		if !found || strings.Contains(name, "/") {
			continue
		}

		if props == nil {
			props = make(map[string]models.PropertyValue)
		}

		props[name] = scalarPropertyValue(v)
	}

	return props
}

func scalarPropertyValue(v any) models.PropertyValue {
	switch val := v.(type) {
	case string:
		return models.StringValue(val)
	case bool:
		return models.BoolValue(val)
	case int64:
		return models.IntValue(val)
	case float64:
		return models.FloatValue(val)
	case time.Time:
		return models.TimeValue(val)
	default:
		return models.PropertyValue{Category: models.CategoryPrimitive, Value: val}
	}
}
