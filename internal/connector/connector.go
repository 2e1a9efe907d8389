// Package connector wires configuration, storage backend, transaction
// functions and the repository into one managed lifecycle.
package connector

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/planetf1/egeria-connector-xtdb/internal/config"
	"github.com/planetf1/egeria-connector-xtdb/internal/dbpool"
	"github.com/planetf1/egeria-connector-xtdb/internal/docstore"
	"github.com/planetf1/egeria-connector-xtdb/internal/mapping"
	"github.com/planetf1/egeria-connector-xtdb/internal/pgstore"
	"github.com/planetf1/egeria-connector-xtdb/internal/repository"
	"github.com/planetf1/egeria-connector-xtdb/internal/txnfn"
)

// Connector owns a configured store and the repository over it.
type Connector struct {
	log   *logrus.Logger
	cfg   *config.Config
	store docstore.Store
	repo  *repository.Repository
}

// Open builds the configured backend, applies schema migrations where the
// backend has any, registers the transaction functions and constructs the
// repository. The returned connector must be closed.
func Open(ctx context.Context, cfg *config.Config, log *logrus.Logger, types *mapping.TypeRegistry) (*Connector, error) {
	if log == nil {
		log = NewLogger(cfg)
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	txnfn.RegisterAll(store)

	repo, err := repository.New(log, store, types, cfg.MetadataCollectionID, cfg.DefaultPageSize)
	if err != nil {
		store.Close() //nolint:errcheck // already failing.

		return nil, err
	}

	log.WithFields(logrus.Fields{
		"backend":    cfg.Backend,
		"collection": cfg.MetadataCollectionID,
	}).Info("connector opened")

	return &Connector{log: log, cfg: cfg, store: store, repo: repo}, nil
}

func openStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (docstore.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return docstore.NewMemStore(log), nil
	case config.BackendPostgres:
		pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value())
		if err != nil {
			return nil, err
		}

		if err := pgstore.RunMigrations(ctx, pool, log); err != nil {
			pool.Close()

			return nil, err
		}

		return pgstore.New(log, pool), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// Repository returns the metadata repository.
func (c *Connector) Repository() *repository.Repository {
	return c.repo
}

// Store returns the underlying document store.
func (c *Connector) Store() docstore.Store {
	return c.store
}

// Close releases the store and its resources.
func (c *Connector) Close() error {
	c.log.Info("connector closing")

	return c.store.Close()
}

// NewLogger builds a logger at the configured level, defaulting to info on an
// unparseable level rather than failing startup.
func NewLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}

	log.SetLevel(level)

	return log
}
