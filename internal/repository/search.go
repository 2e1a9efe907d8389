package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/planetf1/egeria-connector-xtdb/internal/docstore"
	"github.com/planetf1/egeria-connector-xtdb/internal/mapping"
	"github.com/planetf1/egeria-connector-xtdb/internal/metrics"
	"github.com/planetf1/egeria-connector-xtdb/internal/models"
	"github.com/planetf1/egeria-connector-xtdb/internal/query"
)

// CompileEntitySearch compiles entity search criteria into an executable
// query document. Compilation is pure: no store access, deterministic output
// for equal input. Criteria containing a construct with no query-language
// mapping reject the whole compilation rather than silently narrowing or
// widening the result set.
func (r *Repository) CompileEntitySearch(c *models.EntitySearchCriteria) (*query.Document, error) {
	if c == nil {
		return nil, fmt.Errorf("entity search requires criteria: %w", models.ErrInvalidParameter)
	}

	q := query.New(r.log)
	q.AddTypeCondition(c.TypeGUID, c.SubtypeGUIDs)

	if err := q.AddPropertyConditions(c.Properties, mapping.NsEntityProperties); err != nil {
		return nil, r.rejected("entity", err)
	}

	if err := q.AddClassificationConditions(c.Classifications); err != nil {
		return nil, r.rejected("entity", err)
	}

	r.addStatusFilter(q, c.StatusFilter)

	if err := q.AddSequencing(c.Order, c.OrderProperty, mapping.NsEntityProperties); err != nil {
		return nil, r.rejected("entity", err)
	}

	q.AddPaging(c.Offset, r.limitFor(c.PageSize))

	metrics.SearchCompilations.WithLabelValues("entity", "ok").Inc()

	return q.Document(), nil
}

// CompileRelationshipSearch compiles relationship search criteria. It mirrors
// the entity compiler without classification conditions, which relationships
// do not carry.
func (r *Repository) CompileRelationshipSearch(c *models.RelationshipSearchCriteria) (*query.Document, error) {
	if c == nil {
		return nil, fmt.Errorf("relationship search requires criteria: %w", models.ErrInvalidParameter)
	}

	q := query.New(r.log)
	q.AddTypeCondition(c.TypeGUID, c.SubtypeGUIDs)

	if err := q.AddPropertyConditions(c.Properties, mapping.NsRelationshipProperties); err != nil {
		return nil, r.rejected("relationship", err)
	}

	r.addStatusFilter(q, c.StatusFilter)

	if err := q.AddSequencing(c.Order, c.OrderProperty, mapping.NsRelationshipProperties); err != nil {
		return nil, r.rejected("relationship", err)
	}

	q.AddPaging(c.Offset, r.limitFor(c.PageSize))

	metrics.SearchCompilations.WithLabelValues("relationship", "ok").Inc()

	return q.Document(), nil
}

// addStatusFilter applies the caller's status filter, or the exclude-deleted
// default when none is given. An explicit filter replaces the default
// entirely, so callers can search tombstones on purpose.
func (r *Repository) addStatusFilter(q *query.Query, filter []models.InstanceStatus) {
	if filter == nil {
		q.ExcludeDeleted()

		return
	}

	q.AddStatusLimiters(filter)
}

// limitFor resolves the effective page size: the caller's when positive,
// otherwise the repository's configured default.
func (r *Repository) limitFor(pageSize int) int {
	if pageSize > 0 {
		return pageSize
	}

	return r.defaultPageSize
}

func (r *Repository) rejected(kind string, err error) error {
	metrics.SearchCompilations.WithLabelValues(kind, "rejected").Inc()

	if errors.Is(err, models.ErrUnmappedConstruct) {
		metrics.UnmappedConstructs.WithLabelValues(kind).Inc()
	}

	r.log.WithError(err).WithField("kind", kind).Warn("search criteria rejected")

	return err
}

// FindEntities compiles and executes an entity search against the latest
// snapshot, returning full entities in the compiled order.
func (r *Repository) FindEntities(ctx context.Context, c *models.EntitySearchCriteria) ([]*models.Entity, error) {
	doc, err := r.CompileEntitySearch(c)
	if err != nil {
		return nil, err
	}

	snap, err := r.store.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("taking snapshot: %w", err)
	}

	refs, err := r.execute(ctx, snap, doc, "entity")
	if err != nil {
		return nil, err
	}

	entities := make([]*models.Entity, 0, len(refs))

	for _, ref := range refs {
		d, err := snap.Entity(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("reading result %s: %w", ref, err)
		}

		e, err := mapping.EntityFromDoc(d)
		if err != nil {
			return nil, err
		}

		entities = append(entities, e)
	}

	return entities, nil
}

// FindRelationships compiles and executes a relationship search against the
// latest snapshot.
func (r *Repository) FindRelationships(ctx context.Context, c *models.RelationshipSearchCriteria) ([]*models.Relationship, error) {
	doc, err := r.CompileRelationshipSearch(c)
	if err != nil {
		return nil, err
	}

	snap, err := r.store.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("taking snapshot: %w", err)
	}

	refs, err := r.execute(ctx, snap, doc, "relationship")
	if err != nil {
		return nil, err
	}

	rels := make([]*models.Relationship, 0, len(refs))

	for _, ref := range refs {
		d, err := snap.Entity(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("reading result %s: %w", ref, err)
		}

		rel, err := mapping.RelationshipFromDoc(d)
		if err != nil {
			return nil, err
		}

		rels = append(rels, rel)
	}

	return rels, nil
}

// execute runs a compiled query, extracting the document references from the
// first column of each result tuple.
func (r *Repository) execute(ctx context.Context, snap docstore.Snapshot, doc *query.Document, kind string) ([]string, error) {
	start := time.Now()

	rows, err := snap.Query(ctx, doc)

	metrics.QueryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, fmt.Errorf("executing %s search: %w", kind, err)
	}

	refs := make([]string, 0, len(rows))

	for _, row := range rows {
		if ref, ok := row[0].(string); ok {
			refs = append(refs, ref)
		}
	}

	return refs, nil
}

// EntityByGUID reads one entity from the latest snapshot. Soft-deleted
// entities are returned as tombstones; purged entities are not found.
func (r *Repository) EntityByGUID(ctx context.Context, guid string) (*models.Entity, error) {
	ref, err := mapping.EntityRef(guid)
	if err != nil {
		return nil, err
	}

	snap, err := r.store.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("taking snapshot: %w", err)
	}

	doc, err := snap.Entity(ctx, ref)
	if err != nil {
		return nil, err
	}

	return mapping.EntityFromDoc(doc)
}

// RelationshipByGUID reads one relationship from the latest snapshot.
func (r *Repository) RelationshipByGUID(ctx context.Context, guid string) (*models.Relationship, error) {
	ref, err := mapping.RelationshipRef(guid)
	if err != nil {
		return nil, err
	}

	snap, err := r.store.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("taking snapshot: %w", err)
	}

	doc, err := snap.Entity(ctx, ref)
	if err != nil {
		return nil, err
	}

	return mapping.RelationshipFromDoc(doc)
}
