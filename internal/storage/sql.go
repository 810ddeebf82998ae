package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"studydeck/internal/database"
)

// SQLBackend stores entries in the kv_entries table
type SQLBackend struct {
	db database.DBTX
}

// NewSQLBackend creates a backend over a migrated database or transaction
func NewSQLBackend(db database.DBTX) *SQLBackend {
	return &SQLBackend{db: db}
}

func (b *SQLBackend) Get(key string) ([]byte, bool, error) {
	var value string
	err := b.db.Get(&value, "SELECT entry_value FROM kv_entries WHERE entry_key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read entry %s: %w", key, err)
	}
	return []byte(value), true, nil
}

func (b *SQLBackend) Set(key string, value []byte) error {
	if _, err := b.db.Exec(b.db.GetDialect().UpsertEntryQuery(), key, string(value)); err != nil {
		return fmt.Errorf("failed to write entry %s: %w", key, err)
	}
	return nil
}

func (b *SQLBackend) Delete(key string) error {
	if _, err := b.db.Exec("DELETE FROM kv_entries WHERE entry_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete entry %s: %w", key, err)
	}
	return nil
}

func (b *SQLBackend) Keys() ([]string, error) {
	var keys []string
	if err := b.db.Select(&keys, "SELECT entry_key FROM kv_entries ORDER BY entry_key"); err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return keys, nil
}
