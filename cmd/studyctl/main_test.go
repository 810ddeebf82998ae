package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studydeck/internal/config"
	"studydeck/internal/progress"
	"studydeck/internal/storage"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seedDB(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	path := filepath.Join(t.TempDir(), "studydeck.db")
	kv, db, err := storage.Open(&config.Config{DatabaseType: "sqlite", DatabasePath: path}, nil)
	require.NoError(t, err)
	defer db.Close()

	p := progress.Load(kv, "history")
	p.MarkCorrect("1")
	p.MarkIncorrect("2")
	storage.Write(kv, "daily_activity_stats", map[string]map[string]map[string]int{
		"2024-05-01": {"history": {"quizAttempts": 4, "correctAnswers": 3}},
	})
	return path
}

func TestContentConvert(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "capitals.csv")
	require.NoError(t, os.WriteFile(input, []byte("id,country,capital\nfr,France,Paris\nde,Germany,Berlin\n"), 0o644))

	out, err := execute(t, "content", "convert", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 items")

	raw, err := os.ReadFile(filepath.Join(dir, "capitals.json"))
	require.NoError(t, err)
	var doc struct {
		Items []map[string]string `json:"items"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Items, 2)
	assert.Equal(t, "Paris", doc.Items[0]["capital"])
}

func TestContentConvertRejectsUnknownType(t *testing.T) {
	_, err := execute(t, "content", "convert", filepath.Join(t.TempDir(), "deck.txt"))
	assert.Error(t, err)
}

func TestMemoryStoreIsRejected(t *testing.T) {
	_, err := execute(t, "--db-type", "memory", "activity")
	assert.ErrorContains(t, err, "memory store")
}

func TestProgressReset(t *testing.T) {
	path := seedDB(t)

	_, err := execute(t, "--db-path", path, "progress", "reset", "astrology")
	assert.ErrorContains(t, err, "unknown deck")

	out, err := execute(t, "--db-path", path, "progress", "reset", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Progress for history reset")

	out, err = execute(t, "--db-path", path, "progress", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "history      correct 0    incorrect 0")
}

func TestActivityJSON(t *testing.T) {
	path := seedDB(t)

	out, err := execute(t, "--db-path", path, "activity", "--json")
	require.NoError(t, err)

	var report struct {
		Histogram []struct {
			Date         string `json:"date"`
			AccuracyRate int    `json:"accuracyRate"`
		} `json:"histogram"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Histogram, 1)
	assert.Equal(t, "2024-05-01", report.Histogram[0].Date)
	assert.Equal(t, 75, report.Histogram[0].AccuracyRate)

	out, err = execute(t, "--db-path", path, "activity")
	require.NoError(t, err)
	assert.Contains(t, out, "75%")
}

func TestBackupExportImport(t *testing.T) {
	source := seedDB(t)
	backup := filepath.Join(t.TempDir(), "out", "backup.json")

	out, err := execute(t, "--db-path", source, "backup", "export", "-o", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 entries")

	target := filepath.Join(t.TempDir(), "restored.db")
	out, err = execute(t, "--db-path", target, "backup", "import", "-i", backup, "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Import cancelled")

	out, err = execute(t, "--db-path", target, "backup", "import", "-i", backup, "--clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 entries")

	out, err = execute(t, "--db-path", target, "progress", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "history      correct 1    incorrect 1")
}
