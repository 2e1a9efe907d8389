package txnfn

import (
	"context"
	"fmt"

	"github.com/planetf1/egeria-connector-xtdb/internal/docstore"
	"github.com/planetf1/egeria-connector-xtdb/internal/mapping"
	"github.com/planetf1/egeria-connector-xtdb/internal/query"
)

// relationshipsQuery finds every relationship document holding a proxy
// reference to the entity bound into :in. Unbounded on purpose: a cascade
// must see every attached relationship, not a page of them.
func relationshipsQuery() *query.Document {
	return &query.Document{
		Find: []query.Variable{"r"},
		In:   []query.Variable{"e"},
		Where: []query.Clause{
			query.Triple{E: "r", Attr: mapping.KwEntityProxies, Value: query.Variable("e")},
		},
	}
}

// attachedRelationships reads the documents of every relationship referencing
// the entity, as of the transaction's snapshot.
func attachedRelationships(ctx context.Context, snap docstore.Snapshot, entityRef string) ([]docstore.Document, error) {
	rows, err := snap.Query(ctx, relationshipsQuery(), entityRef)
	if err != nil {
		return nil, fmt.Errorf("finding relationships of %s: %w", entityRef, err)
	}

	docs := make([]docstore.Document, 0, len(rows))

	for _, row := range rows {
		ref, ok := row[0].(string)
		if !ok {
			continue
		}

		doc, err := snap.Entity(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("reading relationship %s: %w", ref, err)
		}

		docs = append(docs, doc)
	}

	return docs, nil
}
