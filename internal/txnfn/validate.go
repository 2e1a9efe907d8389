package txnfn

import (
	"context"
	"fmt"
	"time"

	"github.com/planetf1/egeria-connector-xtdb/internal/docstore"
	"github.com/planetf1/egeria-connector-xtdb/internal/mapping"
	"github.com/planetf1/egeria-connector-xtdb/internal/models"
)

func stringArg(args []any, i int, name string) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing argument %s: %w", name, models.ErrInvalidParameter)
	}

	s, ok := args[i].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %s must be a non-empty string: %w", name, models.ErrInvalidParameter)
	}

	return s, nil
}

func timeArg(args []any, i int, name string) (time.Time, error) {
	if i >= len(args) {
		return time.Time{}, fmt.Errorf("missing argument %s: %w", name, models.ErrInvalidParameter)
	}

	t, ok := args[i].(time.Time)
	if !ok || t.IsZero() {
		return time.Time{}, fmt.Errorf("argument %s must be a timestamp: %w", name, models.ErrInvalidParameter)
	}

	return t, nil
}

func boolArg(args []any, i int, name string) (bool, error) {
	if i >= len(args) {
		return false, fmt.Errorf("missing argument %s: %w", name, models.ErrInvalidParameter)
	}

	b, ok := args[i].(bool)
	if !ok {
		return false, fmt.Errorf("argument %s must be a boolean: %w", name, models.ErrInvalidParameter)
	}

	return b, nil
}

// requireDoc reads a document and checks it is of the expected kind.
func requireDoc(ctx context.Context, snap docstore.Snapshot, ref string, kind models.RefKind) (docstore.Document, error) {
	parsed, err := mapping.ParseRef(ref)
	if err != nil {
		return nil, err
	}

	if parsed.Kind != kind {
		return nil, fmt.Errorf("reference %s is not of the expected kind: %w", ref, models.ErrInvalidParameter)
	}

	return snap.Entity(ctx, ref)
}

func isDeleted(doc docstore.Document) bool {
	return mapping.AsInt64(doc[mapping.KwCurrentStatus]) == mapping.StatusOrdinal(models.StatusDeleted)
}
