package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"wrapped", `{"items":[{"id":1},{"id":2}]}`, 2, false},
		{"bare array", `[{"id":"a"}]`, 1, false},
		{"missing items", `{"title":"x"}`, 0, false},
		{"empty", `  `, 0, true},
		{"garbage", `{items`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := Decode([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, items, tt.want)
			assert.NotNil(t, items)
		})
	}
}

func TestLoaderFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "history.json"), []byte(`{"items":[{"id":"1"}]}`), 0o644))

	l, err := NewLoader("", dir, nil)
	require.NoError(t, err)

	items, err := l.Items(context.Background(), "history")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = l.Items(context.Background(), "geography")
	require.Error(t, err)
	assert.Contains(t, Message(err), "no cards found for geography")

	_, err = l.Items(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidDeckID)
}

func TestLoaderFromHTTP(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/data/civics.json":
			<-release
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":"a"},{"id":"b"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l, err := NewLoader(srv.URL+"/data", "", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := l.Items(context.Background(), "civics")
			if err == nil {
				results[i] = len(items)
			}
		}()
	}
	close(release)
	wg.Wait()

	assert.Equal(t, []int{2, 2, 2, 2, 2}, results)
	before := hits.Load()
	_, err = l.Items(context.Background(), "civics")
	require.NoError(t, err)
	assert.Equal(t, before, hits.Load(), "cached decks are not refetched")

	_, err = l.Items(context.Background(), "science")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	l.Invalidate("civics")
	_, err = l.Items(context.Background(), "civics")
	require.NoError(t, err)
	assert.Greater(t, hits.Load(), before)
}

func TestLeavingCallerDoesNotFailSharedFetch(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(`[{"id":"1"}]`))
	}))
	defer srv.Close()
	defer close(release)

	l, err := NewLoader(srv.URL, "", nil)
	require.NoError(t, err)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := l.Items(ctxA, "history")
		errA <- err
	}()
	require.Eventually(t, func() bool { return hits.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	type result struct {
		items []json.RawMessage
		err   error
	}
	resB := make(chan result, 1)
	go func() {
		items, err := l.Items(context.Background(), "history")
		resB <- result{items, err}
	}()

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	release <- struct{}{}
	res := <-resB
	require.NoError(t, res.err)
	assert.Len(t, res.items, 1)
	assert.Equal(t, int32(1), hits.Load())
}

func TestPreloadReportsFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`[]`), 0o644))

	l, err := NewLoader("", dir, nil)
	require.NoError(t, err)

	assert.NoError(t, l.Preload(context.Background(), []string{"a"}))
	assert.Error(t, l.Preload(context.Background(), []string{"a", "missing"}))
}

func TestNewLoaderRejectsBadURL(t *testing.T) {
	_, err := NewLoader("ftp://example.com", "", nil)
	assert.Error(t, err)
}

func TestConvertCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capitals.csv")
	data := "id,country,capital\n" +
		"fr,France,Paris\n" +
		",Nowhere,None\n" +
		",,\n" +
		"fr,France again,Paris\n" +
		"de,Germany,Berlin\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg := DefaultConvertConfig()
	cfg.FilePath = path
	result, err := Convert(cfg)
	require.NoError(t, err)

	require.Len(t, result.Document.Items, 2)
	var first map[string]string
	require.NoError(t, json.Unmarshal(result.Document.Items[0], &first))
	assert.Equal(t, map[string]string{"id": "fr", "country": "France", "capital": "Paris"}, first)
	assert.Equal(t, 3, result.Skipped)
	assert.Len(t, result.Errors, 2)
}

func TestConvertWorkbookNumbersRowsWithoutIDColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.xlsx")
	f := excelize.NewFile()
	rows := [][]string{
		{"term", "definition"},
		{"Photosynthesis", "Light to sugar"},
		{"Osmosis", "Water through a membrane"},
	}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, value))
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	result, err := Convert(ConvertConfig{FilePath: path})
	require.NoError(t, err)

	require.Len(t, result.Document.Items, 2)
	var second map[string]string
	require.NoError(t, json.Unmarshal(result.Document.Items[1], &second))
	assert.Equal(t, "2", second["id"])
	assert.Equal(t, "Osmosis", second["term"])
}

func TestConvertRejectsUnknownType(t *testing.T) {
	_, err := Convert(ConvertConfig{FilePath: "deck.txt"})
	assert.Error(t, err)
}
