// Package storage persists JSON-serialisable values under string keys.
//
// Reads and writes never fail from the caller's point of view: a missing
// backend, an absent key or an unparsable value reads as the caller's
// default, and failed writes are logged and dropped.
package storage

import (
	"bytes"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// Backend is the raw key-value persistence used by a Store
type Backend interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)
}

// Store is the typed adapter over a Backend. A Store without a backend
// behaves like an environment with no persistent storage.
type Store struct {
	backend Backend
	log     logrus.FieldLogger
}

// New creates a store over backend. backend may be nil.
func New(backend Backend, logger logrus.FieldLogger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{backend: backend, log: logger}
}

// Available reports whether values written to the store are persisted
func (s *Store) Available() bool {
	return s != nil && s.backend != nil
}

// Backend returns the underlying backend, or nil
func (s *Store) Backend() Backend {
	if s == nil {
		return nil
	}
	return s.backend
}

// Read returns the value stored under key, or def when storage is
// unavailable, the key is absent or the stored value does not parse as T.
func Read[T any](s *Store, key string, def T) T {
	if !s.Available() {
		return def
	}

	raw, ok, err := s.backend.Get(key)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("storage read failed")
		return def
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return def
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("stored value is corrupt, using default")
		return def
	}
	return value
}

// Write stores value under key. Failures are logged, never returned.
func Write[T any](s *Store, key string, value T) {
	if !s.Available() {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("value is not serialisable")
		return
	}
	if err := s.backend.Set(key, raw); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("storage write failed")
	}
}

// Remove deletes key. Failures are logged, never returned.
func (s *Store) Remove(key string) {
	if !s.Available() {
		return
	}
	if err := s.backend.Delete(key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("storage delete failed")
	}
}

// Keys lists the stored keys, or nil when storage is unavailable
func (s *Store) Keys() []string {
	if !s.Available() {
		return nil
	}
	keys, err := s.backend.Keys()
	if err != nil {
		s.log.WithError(err).Warn("storage key listing failed")
		return nil
	}
	return keys
}
