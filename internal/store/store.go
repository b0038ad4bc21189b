// Package store wraps a small origin-scoped key-value file, the moral
// equivalent of browser localStorage: string keys, string values, loaded
// whole and written whole. A process-wide mutex makes single-key operations
// safe within one process; two processes racing on the same file are
// last-write-wins on the whole map.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
)

const storeFileName = "store.json"

// Well-known keys. Components format parameterized keys through the helpers
// below instead of concatenating literals at call sites.
const (
	KeyIsAuthenticated  = "isAuthenticated"
	KeyAuthToken        = "authToken"
	KeyUserData         = "userData"
	KeyCachedTickets    = "cachedTickets"
	KeyTicketsStamp     = "ticketsCacheTimestamp"
	KeyCachedStatuses   = "cachedStatuses"
	KeyStatusesStamp    = "statusesCacheTimestamp"
	KeyCachedPriorities = "cachedPriorities"
	KeyPrioritiesStamp  = "prioritiesCacheTimestamp"
	KeyLocalComments    = "localComments"
	KeyOfflineTickets   = "offlineTickets"
	KeyTicketPriorities = "ticketPriorities"
	KeyCurrentTicketID  = "currentTicketId"
)

// TicketDetailKey returns the cache key for one ticket's detail payload.
func TicketDetailKey(id string) string { return "ticket-details-" + id }

// TicketDetailStampKey returns the timestamp key paired with TicketDetailKey.
func TicketDetailStampKey(id string) string { return "ticket-details-" + id + "-timestamp" }

// ErrNoKey is returned by Get for absent keys.
var ErrNoKey = errors.New("key not present")

// Store is a file-backed string map with atomic persistence.
type Store struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// Open loads the store file from dir, creating dir if needed. A corrupt or
// missing file yields an empty store rather than an error; durability here
// is best-effort by design.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}
	s := &Store{
		path: filepath.Join(dir, storeFileName),
		data: make(map[string]string),
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading store: %w", err)
	}
	if err := json.Unmarshal(b, &s.data); err != nil {
		s.data = make(map[string]string)
	}
	return s, nil
}

// Get returns the value for key, or ErrNoKey.
func (s *Store) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", ErrNoKey
	}
	return v, nil
}

// Set writes key=value and persists the whole map atomically.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.flushLocked()
}

// Delete removes key if present and persists.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flushLocked()
}

// GetJSON unmarshals the value at key into out.
func (s *Store) GetJSON(key string, out any) error {
	v, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(v), out); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

// SetJSON marshals v and stores it under key.
func (s *Store) SetJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.Set(key, string(b))
}

func (s *Store) flushLocked() error {
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	return nil
}
