// Package subjects defines the study decks: each subject's item shape, how
// an item is identified and how it is drawn on a card.
package subjects

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"studydeck/internal/activity"
	"studydeck/internal/deck"
	"studydeck/internal/storage"
	"studydeck/internal/view"
)

// Env holds what every deck view is built from
type Env struct {
	KV      *storage.Store
	Tracker *activity.Tracker
	Log     logrus.FieldLogger
	Delay   time.Duration
}

// Subject is one deck offered on the index page
type Subject struct {
	ID          string
	Title       string
	Description string

	open func(env Env) view.Controller
}

func define[T any](cfg view.Config[T], description string) Subject {
	return Subject{
		ID:          cfg.DeckID,
		Title:       cfg.Title,
		Description: description,
		open: func(env Env) view.Controller {
			c := cfg
			c.Delay = env.Delay
			return view.New(c, env.KV, env.Tracker, env.Log)
		},
	}
}

// Registry maps deck identifiers to subjects
type Registry struct {
	env      Env
	subjects map[string]Subject
}

// NewRegistry creates a registry of the built-in subjects
func NewRegistry(env Env) *Registry {
	return NewRegistryOf(env, History(), Geography(), Civics(), Science(), Language())
}

// NewRegistryOf creates a registry of the given subjects
func NewRegistryOf(env Env, subjects ...Subject) *Registry {
	r := &Registry{env: env, subjects: make(map[string]Subject, len(subjects))}
	for _, s := range subjects {
		r.subjects[s.ID] = s
	}
	return r
}

// Open builds a fresh view of deckID
func (r *Registry) Open(deckID string) (view.Controller, bool) {
	s, ok := r.subjects[deckID]
	if !ok {
		return nil, false
	}
	return s.open(r.env), true
}

// Get returns the subject for deckID
func (r *Registry) Get(deckID string) (Subject, bool) {
	s, ok := r.subjects[deckID]
	return s, ok
}

// List returns all subjects ordered by title
func (r *Registry) List() []Subject {
	out := make([]Subject, 0, len(r.subjects))
	for _, s := range r.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// IDs returns all deck identifiers, sorted
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.subjects))
	for id := range r.subjects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// defaults is the starting settings record of every deck
func defaults(extra map[string]string) deck.Settings {
	s := deck.Settings{}
	for key, value := range extra {
		s = s.With(key, value)
	}
	return s
}
