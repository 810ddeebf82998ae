// Package content fetches deck item lists, either over HTTP from a static
// asset host or from JSON files in a local directory.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// maxDocumentSize bounds a single deck document
const maxDocumentSize = 10 << 20

var deckIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ErrInvalidDeckID is returned for identifiers that cannot name a document
var ErrInvalidDeckID = errors.New("invalid deck id")

// Document is the JSON shape of a deck file
type Document struct {
	Items []json.RawMessage `json:"items"`
}

// Loader fetches deck documents and keeps successful results in memory.
// A failed fetch is not cached, so the next request tries again.
type Loader struct {
	baseURL *url.URL
	dir     string
	client  *http.Client
	log     logrus.FieldLogger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string][]json.RawMessage
}

// NewLoader creates a loader. A non-empty baseURL takes precedence over dir.
func NewLoader(baseURL, dir string, logger logrus.FieldLogger) (*Loader, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	l := &Loader{
		dir:    dir,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    logger,
		cache:  make(map[string][]json.RawMessage),
	}
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid content URL")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, errors.Errorf("content URL must be http or https, got %q", u.Scheme)
		}
		l.baseURL = u
	}
	return l, nil
}

// WithHTTPClient replaces the HTTP client used for remote content
func (l *Loader) WithHTTPClient(c *http.Client) *Loader {
	l.client = c
	return l
}

// Items returns the raw items of deckID. Concurrent calls for the same
// deck share one fetch.
func (l *Loader) Items(ctx context.Context, deckID string) ([]json.RawMessage, error) {
	if !deckIDPattern.MatchString(deckID) {
		return nil, errors.Wrapf(ErrInvalidDeckID, "%q", deckID)
	}

	l.mu.RLock()
	items, ok := l.cache[deckID]
	l.mu.RUnlock()
	if ok {
		return items, nil
	}

	// The shared fetch outlives any one caller; each caller stops waiting
	// when its own context ends.
	shared := context.WithoutCancel(ctx)
	ch := l.group.DoChan(deckID, func() (interface{}, error) {
		raw, err := l.fetch(shared, deckID)
		if err != nil {
			return nil, err
		}
		items, err := Decode(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse cards for %s", deckID)
		}

		l.mu.Lock()
		l.cache[deckID] = items
		l.mu.Unlock()
		return items, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			l.log.WithError(res.Err).WithField("deck", deckID).Warn("failed to load deck content")
			return nil, res.Err
		}
		return res.Val.([]json.RawMessage), nil
	}
}

// Invalidate drops the cached items of deckID so the next call refetches
func (l *Loader) Invalidate(deckID string) {
	l.mu.Lock()
	delete(l.cache, deckID)
	l.mu.Unlock()
}

// Preload fetches several decks concurrently. It returns the first error
// but keeps loading the others.
func (l *Loader) Preload(ctx context.Context, deckIDs []string) error {
	var g errgroup.Group
	g.SetLimit(4)
	for _, id := range deckIDs {
		g.Go(func() error {
			_, err := l.Items(ctx, id)
			return err
		})
	}
	return g.Wait()
}

func (l *Loader) fetch(ctx context.Context, deckID string) ([]byte, error) {
	if l.baseURL != nil {
		return l.fetchRemote(ctx, deckID)
	}
	return l.fetchLocal(deckID)
}

func (l *Loader) fetchRemote(ctx context.Context, deckID string) ([]byte, error) {
	target := l.baseURL.JoinPath(deckID + ".json").String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build content request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch cards for %s", deckID)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("failed to fetch cards for %s: %s", deckID, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read cards for %s", deckID)
	}
	return body, nil
}

func (l *Loader) fetchLocal(deckID string) ([]byte, error) {
	path := filepath.Join(l.dir, deckID+".json")
	body, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("no cards found for %s", deckID)
		}
		return nil, errors.Wrapf(err, "failed to read cards for %s", deckID)
	}
	return body, nil
}

// Decode accepts either {"items": [...]} or a bare JSON array
func Decode(raw []byte) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty document")
	}

	if raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, errors.Wrap(err, "malformed item list")
		}
		return items, nil
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "malformed document")
	}
	if doc.Items == nil {
		return []json.RawMessage{}, nil
	}
	return doc.Items, nil
}

// Message turns a load error into the text shown in place of a deck
func Message(err error) string {
	if err == nil {
		return ""
	}
	return "Could not load cards: " + err.Error()
}
