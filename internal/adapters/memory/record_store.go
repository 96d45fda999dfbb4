// Package memory provides an in-process RecordStore for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/akmalstorm/stdcalumni/internal/ports"
)

var _ ports.RecordStore = (*RecordStore)(nil)

// RecordStore keeps visitor records in a map. Contents are lost on restart.
type RecordStore struct {
	mu     sync.RWMutex
	scopes map[string]map[string]string
}

// NewRecordStore creates an empty RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{scopes: make(map[string]map[string]string)}
}

// Load returns a copy of every field stored under scope.
func (s *RecordStore) Load(_ context.Context, scope string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields := s.scopes[scope]
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out, nil
}

// Store merges fields into scope.
func (s *RecordStore) Store(_ context.Context, scope string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dst, ok := s.scopes[scope]
	if !ok {
		dst = make(map[string]string, len(fields))
		s.scopes[scope] = dst
	}
	for k, v := range fields {
		dst[k] = v
	}
	return nil
}

// Remove deletes keys from scope, dropping the scope once it is empty.
func (s *RecordStore) Remove(_ context.Context, scope string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, ok := s.scopes[scope]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(fields, k)
	}
	if len(fields) == 0 {
		delete(s.scopes, scope)
	}
	return nil
}

// Scopes returns the number of scopes holding at least one field.
func (s *RecordStore) Scopes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scopes)
}
