// Package commands implements the ontoforge CLI subcommands.
package commands

import (
	"context"
	"database/sql"

	"github.com/silvamed/ontoforge/config"
	"github.com/silvamed/ontoforge/db"
	"github.com/silvamed/ontoforge/errors"
	"github.com/silvamed/ontoforge/logger"
	"github.com/silvamed/ontoforge/ontology"
	"github.com/silvamed/ontoforge/store"
)

// workspace bundles everything a command needs: the loaded config, the
// open database and the container restored from the stored snapshot.
type workspace struct {
	cfg       *config.Config
	database  *sql.DB
	store     *store.Store
	container *ontology.Container
}

// openWorkspace loads config, opens the database with migrations applied
// and restores the container from the stored snapshot. Callers must Close.
func openWorkspace(ctx context.Context) (*workspace, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}

	database, err := db.OpenWithMigrations(cfg.Database.Path, logger.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	s := store.New(database, logger.Named("store"))
	container := ontology.New(cfg.ContainerOptions())

	count, err := s.EntityCount(ctx)
	if err != nil {
		database.Close()
		return nil, err
	}
	if count > 0 {
		snap, err := s.Load(ctx)
		if err != nil {
			database.Close()
			return nil, errors.Wrap(err, "load snapshot")
		}
		if err := container.Restore(snap); err != nil {
			database.Close()
			return nil, errors.Wrap(err, "restore ontology")
		}
	}

	return &workspace{
		cfg:       cfg,
		database:  database,
		store:     s,
		container: container,
	}, nil
}

// save persists the container back to the database.
func (w *workspace) save(ctx context.Context) error {
	return w.store.Save(ctx, w.container.Snapshot())
}

func (w *workspace) Close() error {
	return w.database.Close()
}
