package main

import (
	"context"
	"fmt"
	"log"

	"github.com/piskoqo/backend/internal/config"
	"github.com/piskoqo/backend/internal/store"
	memstore "github.com/piskoqo/backend/internal/store/memory"
	"github.com/piskoqo/backend/internal/store/postgres"
	"github.com/piskoqo/backend/internal/store/sqlite"
)

type migrator interface {
	Migrate(ctx context.Context) error
}

// openStore connects the configured driver. SQLite is migrated on open since
// the file may be brand new; Postgres needs an explicit `migrate`.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		log.Println("[store] using in-memory store, data is lost on restart")
		return memstore.New(), nil
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DSN)
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownDriver, cfg.Driver)
	}
}
