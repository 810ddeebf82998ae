// Package progress records which items of a deck were seen and how they
// were last answered.
package progress

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/samber/lo"

	"studydeck/internal/storage"
)

// ItemID identifies an item within a deck. Numeric identifiers found in
// stored or fetched JSON are accepted and kept in their decimal form.
type ItemID string

// UnmarshalJSON accepts both JSON strings and JSON numbers
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ItemID(n.String())
	return nil
}

// IntID converts an integer identifier
func IntID(n int) ItemID {
	return ItemID(strconv.Itoa(n))
}

// Progress is the persisted state of one deck
type Progress struct {
	Seen      []ItemID `json:"seen"`
	Correct   []ItemID `json:"correct"`
	Incorrect []ItemID `json:"incorrect"`
}

// Empty returns progress with no recorded items
func Empty() Progress {
	return Progress{Seen: []ItemID{}, Correct: []ItemID{}, Incorrect: []ItemID{}}
}

// Clone returns a deep copy
func (p Progress) Clone() Progress {
	return Progress{
		Seen:      append([]ItemID{}, p.Seen...),
		Correct:   append([]ItemID{}, p.Correct...),
		Incorrect: append([]ItemID{}, p.Incorrect...),
	}
}

// IsCorrect reports whether id is mastered
func (p Progress) IsCorrect(id ItemID) bool {
	return lo.Contains(p.Correct, id)
}

// IsIncorrect reports whether id was last answered incorrectly
func (p Progress) IsIncorrect(id ItemID) bool {
	return lo.Contains(p.Incorrect, id)
}

// IsSeen reports whether id was ever answered
func (p Progress) IsSeen(id ItemID) bool {
	return lo.Contains(p.Seen, id)
}

// Key returns the storage key for a deck's progress
func Key(deckID string) string {
	return deckID + "_progress"
}

// Store owns the progress of one deck and persists every transition
type Store struct {
	kv    *storage.Store
	key   string
	state Progress
}

// Load reads the progress of deckID, starting empty when nothing usable
// is stored.
func Load(kv *storage.Store, deckID string) *Store {
	key := Key(deckID)
	raw := storage.Read(kv, key, map[string]json.RawMessage{})
	return &Store{kv: kv, key: key, state: normalize(raw)}
}

// DeckKey returns the storage key this store writes to
func (s *Store) DeckKey() string {
	return s.key
}

// Snapshot returns a copy of the current progress
func (s *Store) Snapshot() Progress {
	return s.state.Clone()
}

// IsCorrect reports whether id is mastered
func (s *Store) IsCorrect(id ItemID) bool {
	return s.state.IsCorrect(id)
}

// IsIncorrect reports whether id was last answered incorrectly
func (s *Store) IsIncorrect(id ItemID) bool {
	return s.state.IsIncorrect(id)
}

// MarkCorrect records a correct answer for id
func (s *Store) MarkCorrect(id ItemID) {
	s.state.Seen = addID(s.state.Seen, id)
	s.state.Correct = addID(s.state.Correct, id)
	s.state.Incorrect = lo.Without(s.state.Incorrect, id)
	s.save()
}

// MarkIncorrect records an incorrect answer for id
func (s *Store) MarkIncorrect(id ItemID) {
	s.state.Seen = addID(s.state.Seen, id)
	s.state.Incorrect = addID(s.state.Incorrect, id)
	s.state.Correct = lo.Without(s.state.Correct, id)
	s.save()
}

// Reset forgets everything recorded for the deck
func (s *Store) Reset() {
	s.state = Empty()
	s.save()
}

func (s *Store) save() {
	storage.Write(s.kv, s.key, s.state)
}

func addID(ids []ItemID, id ItemID) []ItemID {
	if lo.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

// normalize builds progress from a stored payload. Fields that are not
// arrays read as empty and unusable elements are skipped.
func normalize(raw map[string]json.RawMessage) Progress {
	p := Progress{
		Seen:      decodeIDs(raw["seen"]),
		Correct:   decodeIDs(raw["correct"]),
		Incorrect: decodeIDs(raw["incorrect"]),
	}

	// An id recorded in both classes keeps only the incorrect mark
	p.Correct = lo.Filter(p.Correct, func(id ItemID, _ int) bool {
		return !lo.Contains(p.Incorrect, id)
	})
	for _, id := range append(append([]ItemID{}, p.Correct...), p.Incorrect...) {
		p.Seen = addID(p.Seen, id)
	}
	return p
}

func decodeIDs(raw json.RawMessage) []ItemID {
	ids := []ItemID{}
	if len(raw) == 0 {
		return ids
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return ids
	}
	for _, element := range elements {
		var id ItemID
		if err := json.Unmarshal(element, &id); err != nil || id == "" {
			continue
		}
		ids = addID(ids, id)
	}
	return ids
}
