package storage

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"studydeck/internal/config"
	"studydeck/internal/database"
)

// Open connects the backend selected by cfg and runs migrations. The
// returned DB is nil when cfg selects the in-memory store.
func Open(cfg *config.Config, logger logrus.FieldLogger) (*Store, *database.DB, error) {
	if cfg.UsesMemoryStore() {
		return New(NewMemoryBackend(), logger), nil, nil
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return New(NewSQLBackend(db), logger), db, nil
}
