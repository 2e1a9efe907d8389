package mapping

import (
	"fmt"
	"strings"

	"github.com/planetf1/egeria-connector-xtdb/internal/models"
)

// Reference prefixes distinguishing entity documents from relationship
// documents in the store.
const (
	entityRefPrefix       = "e"
	relationshipRefPrefix = "r"
)

// EntityRef returns the canonical document reference for an entity GUID.
func EntityRef(guid string) (string, error) {
	return Ref(models.ProxyRef{Kind: models.RefEntity, GUID: guid})
}

// RelationshipRef returns the canonical document reference for a
// relationship GUID.
func RelationshipRef(guid string) (string, error) {
	return Ref(models.ProxyRef{Kind: models.RefRelationship, GUID: guid})
}

// Ref builds the canonical document reference for a proxy reference.
// Construction is pure and deterministic; the only failure mode is an
// empty GUID.
func Ref(ref models.ProxyRef) (string, error) {
	if ref.GUID == "" {
		return "", fmt.Errorf("building reference: empty GUID: %w", models.ErrInvalidParameter)
	}

	switch ref.Kind {
	case models.RefEntity:
		return entityRefPrefix + "_" + ref.GUID, nil
	case models.RefRelationship:
		return relationshipRefPrefix + "_" + ref.GUID, nil
	default:
		return "", fmt.Errorf("building reference: unknown kind %d: %w", ref.Kind, models.ErrInvalidParameter)
	}
}

// ParseRef decomposes a canonical document reference into its kind and GUID.
func ParseRef(ref string) (models.ProxyRef, error) {
	prefix, guid, ok := strings.Cut(ref, "_")
	if !ok || guid == "" {
		return models.ProxyRef{}, fmt.Errorf("parsing reference %q: %w", ref, models.ErrInvalidParameter)
	}

	switch prefix {
	case entityRefPrefix:
		return models.ProxyRef{Kind: models.RefEntity, GUID: guid}, nil
	case relationshipRefPrefix:
		return models.ProxyRef{Kind: models.RefRelationship, GUID: guid}, nil
	default:
		return models.ProxyRef{}, fmt.Errorf("parsing reference %q: unknown prefix %q: %w", ref, prefix, models.ErrInvalidParameter)
	}
}
