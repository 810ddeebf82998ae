// Package view binds a deck session to one visitor's page: it serialises
// access, keeps the per-card flip state and defers the advance that follows
// an answer.
package view

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"studydeck/internal/activity"
	"studydeck/internal/deck"
	"studydeck/internal/progress"
	"studydeck/internal/storage"
)

// Card is the rendered content of an item, as Markdown
type Card struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// Choice is one value of a deck-specific setting
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Option describes a deck-specific setting shown in the settings panel
type Option struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Choices []Choice `json:"choices"`
}

// Source supplies the raw items of a deck
type Source interface {
	Items(ctx context.Context, deckID string) ([]json.RawMessage, error)
}

// Config describes one deck for the view layer
type Config[T any] struct {
	DeckID   string
	Title    string
	Defaults deck.Settings
	Options  []Option
	Session  deck.Options[T]
	Render   func(item T, settings deck.Settings) Card
	// Delay between an answer and the move to the next card
	Delay time.Duration
}

// State is everything a page needs to draw the deck
type State struct {
	DeckID     string          `json:"deckId"`
	Title      string          `json:"title"`
	Loading    bool            `json:"loading"`
	Error      string          `json:"error,omitempty"`
	ItemID     string          `json:"itemId,omitempty"`
	Card       *Card           `json:"card,omitempty"`
	Flipped    bool            `json:"flipped"`
	Position   deck.Position   `json:"position"`
	Completion deck.Completion `json:"completion"`
	Summary    deck.Summary    `json:"summary"`
	Settings   deck.Settings   `json:"settings"`
	Options    []Option        `json:"options,omitempty"`
	RenderKey  int             `json:"renderKey"`
	Pending    bool            `json:"pending"`
}

// Controller is the type-erased interface handlers drive a deck through
type Controller interface {
	DeckID() string
	Load(source Source)
	State() State
	Flip() State
	Correct() State
	Incorrect() State
	Next() State
	ResetProgress() State
	UpdateSettings(patch map[string]json.RawMessage) State
	LastActive() time.Time
	Close()
}

// Deck is the view binding of one deck for one visitor
type Deck[T any] struct {
	cfg     Config[T]
	kv      *storage.Store
	tracker *activity.Tracker
	log     logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	session    *deck.Session[T]
	flipped    bool
	flipKey    int
	pending    int
	lastActive time.Time
}

// New opens a deck view. The deck shows a loading state until Load
// completes. Close must be called when the visitor leaves.
func New[T any](cfg Config[T], kv *storage.Store, tracker *activity.Tracker, logger logrus.FieldLogger) *Deck[T] {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	settings := deck.LoadSettings(kv, cfg.DeckID, cfg.Defaults)
	store := progress.Load(kv, cfg.DeckID)

	ctx, cancel := context.WithCancel(context.Background())
	return &Deck[T]{
		cfg:        cfg,
		kv:         kv,
		tracker:    tracker,
		log:        logger.WithField("deck", cfg.DeckID),
		ctx:        ctx,
		cancel:     cancel,
		session:    deck.NewSession(cfg.DeckID, store, settings, cfg.Session),
		lastActive: time.Now(),
	}
}

func (d *Deck[T]) DeckID() string { return d.cfg.DeckID }

// Load fetches the deck's items in the background
func (d *Deck[T]) Load(source Source) {
	d.mu.Lock()
	d.session.SetLoading()
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		raw, err := source.Items(d.ctx, d.cfg.DeckID)

		d.mu.Lock()
		defer d.mu.Unlock()
		if d.ctx.Err() != nil {
			return
		}
		if err != nil {
			d.session.SetError(err)
			return
		}
		d.session.SetItems(d.decode(raw))
	}()
}

// SetItems installs already decoded items, bypassing any source
func (d *Deck[T]) SetItems(items []T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.session.SetItems(items)
}

// decode keeps every item that parses and has an unused id
func (d *Deck[T]) decode(raw []json.RawMessage) []T {
	items := make([]T, 0, len(raw))
	ids := make(map[progress.ItemID]bool, len(raw))
	for i, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			d.log.WithError(err).WithField("index", i).Warn("skipping malformed item")
			continue
		}
		id := d.cfg.Session.ID(item)
		if id == "" || ids[id] {
			d.log.WithField("index", i).WithField("id", id).Warn("skipping item without a unique id")
			continue
		}
		ids[id] = true
		items = append(items, item)
	}
	return items
}

// State returns the current page state
func (d *Deck[T]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state()
}

// Flip turns the current card over
func (d *Deck[T]) Flip() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.touch()
	if _, ok := d.session.CurrentItem(); ok {
		d.flipped = !d.isFlipped()
		d.flipKey = d.session.RenderKey()
	}
	return d.state()
}

// Correct records a correct answer for the current card
func (d *Deck[T]) Correct() State {
	return d.answer(true)
}

// Incorrect records an incorrect answer for the current card
func (d *Deck[T]) Incorrect() State {
	return d.answer(false)
}

// answer marks the card that is current now and moves on after the delay.
// The card is turned face down at once.
func (d *Deck[T]) answer(correct bool) State {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.touch()
	if _, ok := d.session.Mark(correct); !ok {
		return d.state()
	}
	d.tracker.TrackAttempt(d.cfg.DeckID)
	if correct {
		d.tracker.TrackCorrect(d.cfg.DeckID)
	}
	d.flipped = false

	if d.cfg.Delay <= 0 {
		d.session.Advance()
		return d.state()
	}

	d.pending++
	d.wg.Add(1)
	go d.deferAdvance()
	return d.state()
}

func (d *Deck[T]) deferAdvance() {
	defer d.wg.Done()

	timer := time.NewTimer(d.cfg.Delay)
	defer timer.Stop()

	select {
	case <-d.ctx.Done():
		return
	case <-timer.C:
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx.Err() != nil {
		return
	}
	d.pending--
	d.session.Advance()
}

// Next moves to the next card without recording an answer
func (d *Deck[T]) Next() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.touch()
	d.session.Advance()
	return d.state()
}

// ResetProgress forgets the deck's progress
func (d *Deck[T]) ResetProgress() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.touch()
	d.session.ResetProgress()
	d.log.Info("deck progress reset")
	return d.state()
}

// UpdateSettings merges patch into the settings record and persists it.
// Fields the patch does not name keep their values.
func (d *Deck[T]) UpdateSettings(patch map[string]json.RawMessage) State {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.touch()
	current, err := json.Marshal(d.session.Settings())
	if err != nil {
		d.log.WithError(err).Warn("failed to encode settings")
		return d.state()
	}
	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(current, &merged); err != nil {
		d.log.WithError(err).Warn("failed to decode settings")
		return d.state()
	}
	for key, value := range patch {
		merged[key] = value
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		d.log.WithError(err).Warn("failed to encode settings")
		return d.state()
	}
	var next deck.Settings
	if err := json.Unmarshal(raw, &next); err != nil {
		d.log.WithError(err).Warn("failed to decode settings")
		return d.state()
	}

	d.session.SetSettings(next)
	deck.SaveSettings(d.kv, d.cfg.DeckID, next)
	return d.state()
}

// LastActive returns when the visitor last acted on the deck
func (d *Deck[T]) LastActive() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastActive
}

// Close tears the view down. Pending advances are discarded and a load in
// flight is abandoned.
func (d *Deck[T]) Close() {
	d.cancel()
	d.wg.Wait()
}

func (d *Deck[T]) touch() {
	d.lastActive = time.Now()
}

// isFlipped reports the flip state of the card on display; it is
// dropped whenever a fresh card presentation starts
func (d *Deck[T]) isFlipped() bool {
	return d.flipped && d.flipKey == d.session.RenderKey()
}

func (d *Deck[T]) state() State {
	s := State{
		DeckID:     d.cfg.DeckID,
		Title:      d.cfg.Title,
		Loading:    d.session.Loading(),
		Error:      d.session.Err(),
		Flipped:    d.isFlipped(),
		Position:   d.session.Position(),
		Completion: d.session.Completion(),
		Summary:    d.session.Summary(),
		Settings:   d.session.Settings(),
		Options:    d.cfg.Options,
		RenderKey:  d.session.RenderKey(),
		Pending:    d.pending > 0,
	}
	if item, ok := d.session.CurrentItem(); ok && s.Completion == deck.CompletionNone {
		card := d.cfg.Render(item, s.Settings)
		s.Card = &card
		s.ItemID = string(d.cfg.Session.ID(item))
	}
	return s
}
