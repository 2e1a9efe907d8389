// Package repository implements the metadata repository operations on top of
// the document store: search compilation and execution, instance lifecycle,
// and the cascading deletes that keep the graph consistent.
package repository

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/planetf1/egeria-connector-xtdb/internal/docstore"
	"github.com/planetf1/egeria-connector-xtdb/internal/mapping"
	"github.com/planetf1/egeria-connector-xtdb/internal/models"
	"github.com/planetf1/egeria-connector-xtdb/internal/query"
)

// Repository exposes the metadata collection operations. It is safe for
// concurrent use: searches run against point-in-time snapshots and all
// mutations go through the store's serialized transaction path.
type Repository struct {
	log   *logrus.Logger
	store docstore.Store
	types *mapping.TypeRegistry

	// collectionID is the local metadata collection. Instances homed here
	// are owned; anything else is a reference copy.
	collectionID string

	// defaultPageSize caps searches that carry no explicit page size.
	defaultPageSize int
}

// New creates a Repository over the given store and type registry. A
// non-positive defaultPageSize falls back to the compiler's default.
func New(log *logrus.Logger, store docstore.Store, types *mapping.TypeRegistry, collectionID string, defaultPageSize int) (*Repository, error) {
	if store == nil || types == nil {
		return nil, fmt.Errorf("repository requires a store and a type registry: %w", models.ErrInvalidParameter)
	}

	if collectionID == "" {
		return nil, fmt.Errorf("repository requires a metadata collection id: %w", models.ErrInvalidParameter)
	}

	if log == nil {
		log = logrus.StandardLogger()
	}

	if defaultPageSize <= 0 {
		defaultPageSize = query.DefaultPageSize
	}

	return &Repository{
		log:             log,
		store:           store,
		types:           types,
		collectionID:    collectionID,
		defaultPageSize: defaultPageSize,
	}, nil
}

// MetadataCollectionID returns the local collection identifier.
func (r *Repository) MetadataCollectionID() string {
	return r.collectionID
}
