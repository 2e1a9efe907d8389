package mapping

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/planetf1/egeria-connector-xtdb/internal/models"
)

// TypeSource supplies type definitions by GUID. Implementations may be
// backed by a remote type catalogue; lookups are deduplicated and cached by
// the registry.
type TypeSource interface {
	TypeDef(ctx context.Context, guid string) (*models.TypeDef, error)
}

// TypeRegistry caches type definitions and resolves supertype chains.
// Concurrent lookups for the same GUID are collapsed into a single source
// call via singleflight.
type TypeRegistry struct {
	source TypeSource

	mu    sync.RWMutex
	cache map[string]*models.TypeDef
	group singleflight.Group
}

// NewTypeRegistry creates a TypeRegistry backed by the given source.
func NewTypeRegistry(source TypeSource) *TypeRegistry {
	return &TypeRegistry{
		source: source,
		cache:  make(map[string]*models.TypeDef),
	}
}

// TypeDef returns the type definition for guid, loading it through the
// source on first use.
func (r *TypeRegistry) TypeDef(ctx context.Context, guid string) (*models.TypeDef, error) {
	if guid == "" {
		return nil, fmt.Errorf("type lookup: empty GUID: %w", models.ErrInvalidParameter)
	}

	r.mu.RLock()
	cached, ok := r.cache[guid]
	r.mu.RUnlock()

	if ok {
		return cached, nil
	}

	v, err, _ := r.group.Do(guid, func() (any, error) {
		td, err := r.source.TypeDef(ctx, guid)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[guid] = td
		r.mu.Unlock()

		return td, nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading type %s: %w", guid, err)
	}

	return v.(*models.TypeDef), nil
}

// SuperTypes resolves the chain of supertype GUIDs for the given type, most
// immediate first.
func (r *TypeRegistry) SuperTypes(ctx context.Context, guid string) ([]string, error) {
	var supers []string

	seen := map[string]bool{guid: true}

	for current := guid; ; {
		td, err := r.TypeDef(ctx, current)
		if err != nil {
			return nil, err
		}

		if td.SuperTypeGUID == "" {
			return supers, nil
		}

		if seen[td.SuperTypeGUID] {
			return nil, fmt.Errorf("type %s: supertype cycle at %s: %w", guid, td.SuperTypeGUID, models.ErrInvalidState)
		}

		seen[td.SuperTypeGUID] = true
		supers = append(supers, td.SuperTypeGUID)
		current = td.SuperTypeGUID
	}
}

// InstanceType assembles the full instance type identity, including the
// supertype chain, for stamping onto new instances.
func (r *TypeRegistry) InstanceType(ctx context.Context, guid string) (models.InstanceType, error) {
	td, err := r.TypeDef(ctx, guid)
	if err != nil {
		return models.InstanceType{}, err
	}

	supers, err := r.SuperTypes(ctx, guid)
	if err != nil {
		return models.InstanceType{}, err
	}

	return models.InstanceType{
		GUID:           td.GUID,
		Name:           td.Name,
		Category:       td.Category,
		SuperTypeGUIDs: supers,
	}, nil
}

// StaticTypeSource is a map-backed TypeSource for embedded use and tests.
type StaticTypeSource struct {
	mu   sync.RWMutex
	defs map[string]models.TypeDef
}

// NewStaticTypeSource creates an empty StaticTypeSource.
func NewStaticTypeSource() *StaticTypeSource {
	return &StaticTypeSource{defs: make(map[string]models.TypeDef)}
}

// Register adds or replaces a type definition.
func (s *StaticTypeSource) Register(td models.TypeDef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs[td.GUID] = td
}

// TypeDef implements TypeSource.
func (s *StaticTypeSource) TypeDef(_ context.Context, guid string) (*models.TypeDef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	td, ok := s.defs[guid]
	if !ok {
		return nil, fmt.Errorf("type %s: %w", guid, models.ErrNotFound)
	}

	return &td, nil
}
