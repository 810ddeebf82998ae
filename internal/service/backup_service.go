package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"studydeck/internal/database"
	"studydeck/internal/storage"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData represents the complete storage backup structure
type BackupData struct {
	Version      string        `json:"version"`
	ExportedAt   time.Time     `json:"exported_at"`
	DatabaseType string        `json:"database_type"`
	Entries      []EntryBackup `json:"entries"`
}

// EntryBackup is one stored key with its JSON value
type EntryBackup struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// ImportResult summarises an import
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Cleared  int `json:"cleared"`
}

// BackupService handles export and import of stored progress, settings
// and activity
type BackupService struct {
	db  *database.DB
	log logrus.FieldLogger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger logrus.FieldLogger) *BackupService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BackupService{db: db, log: logger}
}

// Export writes every stored entry to w as indented JSON
func (s *BackupService) Export(w io.Writer) (*BackupData, error) {
	backend := storage.NewSQLBackend(s.db)

	keys, err := backend.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
		Entries:      make([]EntryBackup, 0, len(keys)),
	}

	for _, key := range keys {
		value, ok, err := backend.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if !json.Valid(value) {
			s.log.WithField("key", key).Warn("skipping entry with invalid JSON value")
			continue
		}
		backup.Entries = append(backup.Entries, EntryBackup{Key: key, Value: json.RawMessage(value)})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.WithField("entries", len(backup.Entries)).Info("backup exported")
	return backup, nil
}

// ExportToFile writes the backup to outputPath, creating parent directories
func (s *BackupService) ExportToFile(outputPath string) (*BackupData, error) {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}
	defer file.Close()

	return s.Export(file)
}

// Import restores entries from r in a single transaction. With clear set,
// every existing entry is removed first.
func (s *BackupService) Import(r io.Reader, clear bool) (*ImportResult, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version == "" {
		return nil, fmt.Errorf("backup has no version")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	backend := storage.NewSQLBackend(tx)
	result := &ImportResult{}

	if clear {
		keys, err := backend.Keys()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			if err := backend.Delete(key); err != nil {
				return nil, err
			}
		}
		result.Cleared = len(keys)
	}

	for _, entry := range backup.Entries {
		var value bytes.Buffer
		if entry.Key == "" || json.Compact(&value, entry.Value) != nil {
			s.log.WithField("key", entry.Key).Warn("skipping invalid backup entry")
			result.Skipped++
			continue
		}
		if err := backend.Set(entry.Key, value.Bytes()); err != nil {
			return nil, err
		}
		result.Imported++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"cleared":  result.Cleared,
	}).Info("backup imported")
	return result, nil
}

// ImportFromFile restores entries from the backup at inputPath
func (s *BackupService) ImportFromFile(inputPath string, clear bool) (*ImportResult, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer file.Close()

	return s.Import(file, clear)
}
