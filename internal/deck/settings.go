package deck

import (
	"encoding/json"

	"studydeck/internal/storage"
)

const (
	randomOrderField       = "randomOrder"
	showIncorrectOnlyField = "showIncorrectOnly"
)

// Settings is a deck's settings record. The session only reads the two
// policy fields; any other field a deck stores is carried in Extra and
// survives updates untouched.
type Settings struct {
	RandomOrder       bool
	ShowIncorrectOnly bool
	Extra             map[string]json.RawMessage
}

// MarshalJSON writes the policy fields next to the extra fields
func (s Settings) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.Extra)+2)
	for key, value := range s.Extra {
		out[key] = value
	}
	out[randomOrderField] = boolJSON(s.RandomOrder)
	out[showIncorrectOnlyField] = boolJSON(s.ShowIncorrectOnly)
	return json.Marshal(out)
}

// UnmarshalJSON reads a settings object; policy fields that are not
// booleans are ignored.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.apply(raw)
	return nil
}

func (s *Settings) apply(raw map[string]json.RawMessage) {
	for key, value := range raw {
		switch key {
		case randomOrderField:
			var b bool
			if json.Unmarshal(value, &b) == nil {
				s.RandomOrder = b
			}
		case showIncorrectOnlyField:
			var b bool
			if json.Unmarshal(value, &b) == nil {
				s.ShowIncorrectOnly = b
			}
		default:
			if s.Extra == nil {
				s.Extra = make(map[string]json.RawMessage)
			}
			s.Extra[key] = value
		}
	}
}

// String returns a string extra field, or def when absent or not a string
func (s Settings) String(key, def string) string {
	raw, ok := s.Extra[key]
	if !ok {
		return def
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return def
	}
	return value
}

// With returns a copy of s with an extra field set
func (s Settings) With(key string, value any) Settings {
	raw, err := json.Marshal(value)
	if err != nil {
		return s
	}
	out := s.clone()
	out.Extra[key] = raw
	return out
}

func (s Settings) clone() Settings {
	out := Settings{
		RandomOrder:       s.RandomOrder,
		ShowIncorrectOnly: s.ShowIncorrectOnly,
		Extra:             make(map[string]json.RawMessage, len(s.Extra)),
	}
	for key, value := range s.Extra {
		out.Extra[key] = value
	}
	return out
}

func boolJSON(b bool) json.RawMessage {
	if b {
		return json.RawMessage("true")
	}
	return json.RawMessage("false")
}

// SettingsKey returns the storage key for a deck's settings
func SettingsKey(deckID string) string {
	return deckID + "_settings"
}

// LoadSettings reads the stored settings of deckID over defaults
func LoadSettings(kv *storage.Store, deckID string, defaults Settings) Settings {
	out := defaults.clone()
	raw := storage.Read(kv, SettingsKey(deckID), map[string]json.RawMessage(nil))
	out.apply(raw)
	return out
}

// SaveSettings persists settings for deckID
func SaveSettings(kv *storage.Store, deckID string, settings Settings) {
	storage.Write(kv, SettingsKey(deckID), settings)
}
