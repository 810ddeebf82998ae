package view

import (
	"sync"
	"time"
)

// Factory opens the view of a deck for a new visit
type Factory func(deckID string) (Controller, bool)

// Visits tracks the open decks of every visitor. A visitor has at most one
// view per deck; opening a deck again reuses it.
type Visits struct {
	mu      sync.Mutex
	open    Factory
	source  Source
	visits  map[string]map[string]Controller
	created map[string]time.Time
}

// NewVisits creates an empty registry. Views opened through it load their
// items from source.
func NewVisits(open Factory, source Source) *Visits {
	return &Visits{
		open:    open,
		source:  source,
		visits:  make(map[string]map[string]Controller),
		created: make(map[string]time.Time),
	}
}

// Get returns the view of deckID for visitID, opening it when needed.
// The boolean is false for unknown decks.
func (v *Visits) Get(visitID, deckID string) (Controller, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if c, ok := v.visits[visitID][deckID]; ok {
		return c, true
	}

	// Unknown decks leave no trace of the visit
	c, ok := v.open(deckID)
	if !ok {
		return nil, false
	}

	decks, ok := v.visits[visitID]
	if !ok {
		decks = make(map[string]Controller)
		v.visits[visitID] = decks
		v.created[visitID] = time.Now()
	}
	c.Load(v.source)
	decks[deckID] = c
	return c, true
}

// Leave closes the view of deckID for visitID
func (v *Visits) Leave(visitID, deckID string) {
	v.mu.Lock()
	c, ok := v.visits[visitID][deckID]
	if ok {
		delete(v.visits[visitID], deckID)
	}
	v.mu.Unlock()

	if ok {
		c.Close()
	}
}

// EvictIdle closes every view untouched for longer than maxIdle and
// forgets visitors left without views. It returns how many views closed.
func (v *Visits) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	v.mu.Lock()
	var stale []Controller
	for visitID, decks := range v.visits {
		for deckID, c := range decks {
			if c.LastActive().Before(cutoff) {
				stale = append(stale, c)
				delete(decks, deckID)
			}
		}
		if len(decks) == 0 && v.created[visitID].Before(cutoff) {
			delete(v.visits, visitID)
			delete(v.created, visitID)
		}
	}
	v.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	return len(stale)
}

// Count returns the number of open views
func (v *Visits) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := 0
	for _, decks := range v.visits {
		n += len(decks)
	}
	return n
}

// CloseAll closes every view, for shutdown
func (v *Visits) CloseAll() {
	v.mu.Lock()
	var all []Controller
	for _, decks := range v.visits {
		for _, c := range decks {
			all = append(all, c)
		}
	}
	v.visits = make(map[string]map[string]Controller)
	v.created = make(map[string]time.Time)
	v.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
}
