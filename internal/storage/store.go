// Package storage implements the key-value store owned by a single overlay
// node.
package storage

import (
	"errors"
	"sync"

	"pastryring/id"
)

// ErrNotFound is returned by Get and Delete when the key isn't present.
var ErrNotFound = errors.New("storage: key not found")

// Store is a concurrency-safe mapping from ring identifier to an opaque
// value, exclusively owned by the node that holds it. It is never shared
// across the transport boundary; RPC handlers copy values in and out of it.
type Store struct {
	mu   sync.RWMutex
	data map[id.ID][]byte
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[id.ID][]byte)}
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(key id.ID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Set stores value under key, overwriting any prior value, and returns the
// value that was stored (the caller's Query response echoes it back).
func (s *Store) Set(key id.ID, value []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return value
}

// Delete removes key and returns the value that was present, or
// ErrNotFound if the key wasn't present.
func (s *Store) Delete(key id.ID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.data, key)
	return v, nil
}

// Len returns the number of keys currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Entry pairs a key with its value, used when handing off a range of keys
// during a join's TransferKeys stream.
type Entry struct {
	Key   id.ID
	Value []byte
}

// TakeOwned returns every entry for which owns reports true, without
// removing them. owns is typically "closest_to(key) == requester". The
// caller removes the entries only after the transfer stream completes
// successfully (see ConsumeOwned), so an aborted transfer leaves the
// sender's store untouched.
func (s *Store) TakeOwned(owns func(id.ID) bool) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for k, v := range s.data {
		if owns(k) {
			cp := make([]byte, len(v))
			copy(cp, v)
			out = append(out, Entry{Key: k, Value: cp})
		}
	}
	return out
}

// ConsumeOwned deletes exactly the given keys, used once a TransferKeys
// stream has been fully sent and acknowledged.
func (s *Store) ConsumeOwned(keys []id.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
}

// Merge inserts entries that aren't already present, used by the recipient
// of a TransferKeys stream. Existing keys are left untouched.
func (s *Store) Merge(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if _, exists := s.data[e.Key]; !exists {
			s.data[e.Key] = e.Value
		}
	}
}
