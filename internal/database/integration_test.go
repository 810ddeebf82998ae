package database

import (
	"path/filepath"
	"testing"
)

// Both the connection and a transaction serve as a DBTX
var (
	_ DBTX = (*DB)(nil)
	_ DBTX = (*Tx)(nil)
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Initialize(filepath.Join(t.TempDir(), "test_integration.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)

	var name string
	err := db.Get(&name, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", "kv_entries")
	if err != nil {
		t.Errorf("Table kv_entries not found: %v", err)
	}

	// Running migrations twice must be a no-op
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}

	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM migrations"); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 recorded migration, got %d", count)
	}
}

// TestUpsertEntry tests that the dialect upsert replaces previous values
func TestUpsertEntry(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)

	for _, value := range []string{`{"a":1}`, `{"a":2}`} {
		if _, err := db.Exec(db.Dialect.UpsertEntryQuery(), "history_progress", value); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	var value string
	if err := db.Get(&value, "SELECT entry_value FROM kv_entries WHERE entry_key = ?", "history_progress"); err != nil {
		t.Fatalf("Failed to read entry: %v", err)
	}
	if value != `{"a":2}` {
		t.Errorf("Expected latest value, got %s", value)
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	if _, err := tx.Exec(tx.GetDialect().UpsertEntryQuery(), "committed", "1"); err != nil {
		tx.Rollback()
		t.Fatalf("Failed to insert in transaction: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit transaction: %v", err)
	}

	tx2, err := db.Begin()
	if err != nil {
		t.Fatalf("Failed to begin second transaction: %v", err)
	}
	if _, err := tx2.Exec(tx2.GetDialect().UpsertEntryQuery(), "rolled_back", "1"); err != nil {
		tx2.Rollback()
		t.Fatalf("Failed to insert in second transaction: %v", err)
	}
	if err := tx2.Rollback(); err != nil {
		t.Fatalf("Failed to rollback transaction: %v", err)
	}

	var keys []string
	if err := db.Select(&keys, "SELECT entry_key FROM kv_entries ORDER BY entry_key"); err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "committed" {
		t.Errorf("Expected only the committed key, got %v", keys)
	}
}

// TestTransactionRewritesPlaceholders runs DBTX calls inside a transaction
func TestTransactionRewritesPlaceholders(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	var conn DBTX = tx
	if _, err := conn.Exec(conn.GetDialect().UpsertEntryQuery(), "geography_settings", `{"randomOrder":true}`); err != nil {
		t.Fatalf("Upsert in transaction failed: %v", err)
	}
	var value string
	if err := conn.Get(&value, "SELECT entry_value FROM kv_entries WHERE entry_key = ?", "geography_settings"); err != nil {
		t.Fatalf("Get in transaction failed: %v", err)
	}
	if value != `{"randomOrder":true}` {
		t.Errorf("value = %s", value)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM kv_entries"); err != nil {
		t.Fatalf("Failed to count entries: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected rolled back entry to be gone, got %d rows", count)
	}
}
