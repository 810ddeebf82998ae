// Package deck drives a flashcard deck: which items are visible, in what
// order they are shown and which card comes next.
//
// A Session is not safe for concurrent use. It performs no I/O of its own
// beyond the progress store it is given.
package deck

import (
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/samber/lo"

	"studydeck/internal/progress"
)

// Completion is the terminal state a view renders instead of a card
type Completion string

const (
	CompletionNone     Completion = "none"
	AllMastered        Completion = "allMastered"
	IncorrectOnlyEmpty Completion = "incorrectOnlyEmpty"
)

// Position is the 1-based index of the current card within the display list
type Position struct {
	Index int `json:"index"`
	Total int `json:"total"`
}

// Summary counts a deck's progress
type Summary struct {
	Total     int `json:"total"`
	Seen      int `json:"seen"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}

// IDFunc extracts an item's identifier
type IDFunc[T any] func(item T) progress.ItemID

// FilterFunc computes the visible subset of a deck's items
type FilterFunc[T any] func(items []T, settings Settings, p progress.Progress, id IDFunc[T]) []T

// Rand is the source of randomness for shuffling and card selection
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Options configures a Session
type Options[T any] struct {
	// ID is required
	ID IDFunc[T]
	// Filter replaces DefaultFilter when set
	Filter FilterFunc[T]
	// Rand defaults to math/rand/v2
	Rand Rand
}

// DefaultFilter keeps every item, or only incorrectly answered ones when
// the deck shows incorrect items only.
func DefaultFilter[T any](items []T, settings Settings, p progress.Progress, id IDFunc[T]) []T {
	if !settings.ShowIncorrectOnly {
		return items
	}
	return lo.Filter(items, func(item T, _ int) bool {
		return p.IsIncorrect(id(item))
	})
}

// Session is the in-memory browsing state of one deck for one page visit
type Session[T any] struct {
	deckID   string
	id       IDFunc[T]
	filter   FilterFunc[T]
	rnd      Rand
	progress *progress.Store

	items    []T
	settings Settings
	loading  bool
	errMsg   string

	visible    []T
	order      []T
	membership string

	current   int
	shown     map[int]struct{}
	renderKey int

	computed          bool
	lastLen           int
	lastRandom        bool
	lastIncorrectOnly bool
}

// NewSession creates a session for deckID. The session starts loading and
// shows nothing until SetItems or SetError is called.
func NewSession[T any](deckID string, store *progress.Store, settings Settings, opts Options[T]) *Session[T] {
	s := &Session[T]{
		deckID:   deckID,
		id:       opts.ID,
		filter:   opts.Filter,
		rnd:      opts.Rand,
		progress: store,
		settings: settings,
		loading:  true,
		shown:    make(map[int]struct{}),
	}
	if s.filter == nil {
		s.filter = DefaultFilter[T]
	}
	if s.rnd == nil {
		s.rnd = globalRand{}
	}
	return s
}

// DeckID returns the deck identifier
func (s *Session[T]) DeckID() string { return s.deckID }

// SetItems replaces the deck's items once they have been fetched
func (s *Session[T]) SetItems(items []T) {
	s.items = items
	s.loading = false
	s.errMsg = ""
	s.recompute(false)
}

// SetError records a failed fetch. The deck is treated as having no items.
func (s *Session[T]) SetError(err error) {
	s.items = nil
	s.loading = false
	s.errMsg = "failed to load cards"
	if err != nil {
		s.errMsg = err.Error()
	}
	s.recompute(false)
}

// SetLoading marks the items as being fetched. No selection work happens
// while loading.
func (s *Session[T]) SetLoading() {
	s.loading = true
}

// Loading reports whether items are still being fetched
func (s *Session[T]) Loading() bool { return s.loading }

// Err returns the fetch error message, if any
func (s *Session[T]) Err() string { return s.errMsg }

// Items returns all items of the deck
func (s *Session[T]) Items() []T { return s.items }

// Settings returns the active settings
func (s *Session[T]) Settings() Settings { return s.settings }

// SetSettings applies new settings
func (s *Session[T]) SetSettings(settings Settings) {
	s.settings = settings
	s.recompute(false)
}

// Progress returns a copy of the deck's progress
func (s *Session[T]) Progress() progress.Progress { return s.progress.Snapshot() }

// Visible returns the items eligible for display under the active filter
func (s *Session[T]) Visible() []T { return s.visible }

// Order returns the visible items in display order
func (s *Session[T]) Order() []T { return s.order }

// CurrentIndex returns the index of the current card in Order
func (s *Session[T]) CurrentIndex() int { return s.current }

// RenderKey changes every time a fresh card presentation is due
func (s *Session[T]) RenderKey() int { return s.renderKey }

// Shown returns the indices presented in random mode this visit
func (s *Session[T]) Shown() []int {
	indices := lo.Keys(s.shown)
	sort.Ints(indices)
	return indices
}

// CurrentItem returns the item on display, if any
func (s *Session[T]) CurrentItem() (T, bool) {
	var zero T
	if s.loading || s.current < 0 || s.current >= len(s.order) {
		return zero, false
	}
	return s.order[s.current], true
}

// Position returns the current card's position for display
func (s *Session[T]) Position() Position {
	if s.loading || len(s.order) == 0 {
		return Position{}
	}
	return Position{Index: s.current + 1, Total: len(s.order)}
}

// Summary counts the deck's progress
func (s *Session[T]) Summary() Summary {
	p := s.progress.Snapshot()
	return Summary{
		Total:     len(s.items),
		Seen:      len(p.Seen),
		Correct:   len(p.Correct),
		Incorrect: len(p.Incorrect),
	}
}

// Completion reports whether the view should show a terminal state
func (s *Session[T]) Completion() Completion {
	if s.loading || len(s.items) == 0 {
		return CompletionNone
	}
	if !s.settings.ShowIncorrectOnly && len(s.progress.Snapshot().Correct) == len(s.items) {
		return AllMastered
	}
	if s.settings.ShowIncorrectOnly && len(s.visible) == 0 {
		return IncorrectOnlyEmpty
	}
	return CompletionNone
}

// ReportCorrect marks the current card as answered correctly and advances
func (s *Session[T]) ReportCorrect() {
	if _, ok := s.Mark(true); ok {
		s.Advance()
	}
}

// ReportIncorrect marks the current card as answered incorrectly and advances
func (s *Session[T]) ReportIncorrect() {
	if _, ok := s.Mark(false); ok {
		s.Advance()
	}
}

// Mark records an outcome for the current card without advancing. It
// returns the id that was marked, so a caller deferring the advance still
// knows which card the answer belonged to.
func (s *Session[T]) Mark(correct bool) (progress.ItemID, bool) {
	item, ok := s.CurrentItem()
	if !ok {
		return "", false
	}
	id := s.id(item)
	s.MarkItem(id, correct)
	return id, true
}

// MarkItem records an outcome for a specific item
func (s *Session[T]) MarkItem(id progress.ItemID, correct bool) {
	if correct {
		s.progress.MarkCorrect(id)
	} else {
		s.progress.MarkIncorrect(id)
	}
	s.recompute(false)
}

// ResetProgress forgets the deck's progress and starts browsing afresh
func (s *Session[T]) ResetProgress() {
	s.progress.Reset()
	s.shown = make(map[int]struct{})
	s.recompute(true)
}

// Advance moves to the next card
func (s *Session[T]) Advance() {
	n := len(s.order)
	if s.loading || n <= 1 {
		return
	}

	if !s.settings.RandomOrder {
		s.current++
		if s.current >= n {
			s.current = 0
		}
		s.renderKey++
		return
	}

	if len(s.shown) >= n-1 {
		s.shown = map[int]struct{}{s.current: {}}
	}

	p := s.progress.Snapshot()
	unmastered := lo.ContainsBy(s.order, func(item T) bool {
		return !p.IsCorrect(s.id(item))
	})

	candidate := s.current
	for attempt := 0; attempt < 2*n; attempt++ {
		candidate = s.rnd.IntN(n)
		if candidate == s.current {
			continue
		}
		if unmastered && p.IsCorrect(s.id(s.order[candidate])) {
			continue
		}
		if _, seen := s.shown[candidate]; seen {
			continue
		}
		break
	}

	s.shown[candidate] = struct{}{}
	s.current = candidate
	s.renderKey++
}

// recompute derives the visible set and display order from the inputs and
// applies the current-index reset rule.
func (s *Session[T]) recompute(force bool) {
	if s.loading {
		return
	}

	s.visible = s.filter(s.items, s.settings, s.progress.Snapshot(), s.id)
	membership := s.membershipKey(s.visible)

	reorder := force || !s.computed ||
		membership != s.membership ||
		s.settings.RandomOrder != s.lastRandom
	if reorder {
		s.order = append([]T(nil), s.visible...)
		if s.settings.RandomOrder {
			s.shuffle(s.order)
		}
		s.membership = membership
	}

	reset := force || !s.computed ||
		len(s.visible) != s.lastLen ||
		s.settings.RandomOrder != s.lastRandom ||
		s.settings.ShowIncorrectOnly != s.lastIncorrectOnly

	s.computed = true
	s.lastLen = len(s.visible)
	s.lastRandom = s.settings.RandomOrder
	s.lastIncorrectOnly = s.settings.ShowIncorrectOnly

	switch {
	case reset:
		s.resetIndex()
	case reorder:
		// Same length, different cards: the card under the index changed
		s.renderKey++
	}
}

func (s *Session[T]) resetIndex() {
	s.current = 0
	if s.settings.RandomOrder && len(s.order) > 0 {
		s.current = s.rnd.IntN(len(s.order))
	}
	s.renderKey++
}

func (s *Session[T]) shuffle(items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := s.rnd.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

func (s *Session[T]) membershipKey(items []T) string {
	ids := lo.Map(items, func(item T, _ int) string {
		return string(s.id(item))
	})
	return strings.Join(ids, "\x00")
}
