package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"stock-advisor/internal/domain"
	"stock-advisor/internal/storage"
)

// PreferenceStore is an in-memory implementation of storage.PreferenceStore.
type PreferenceStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Preferences // keyed by client_id
}

// NewPreferenceStore creates a new in-memory preference store.
func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{data: make(map[string]*domain.Preferences)}
}

var _ storage.PreferenceStore = (*PreferenceStore)(nil)

// Upsert creates or updates a client's preferences.
func (s *PreferenceStore) Upsert(_ context.Context, prefs domain.Preferences) error {
	if prefs.ClientID == "" {
		return storage.ErrInvalidInput
	}
	prefs.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := prefs
	s.data[prefs.ClientID] = &stored
	return nil
}

// GetByClient retrieves preferences. Returns ErrNotFound if never synced.
func (s *PreferenceStore) GetByClient(_ context.Context, clientID string) (*domain.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefs, ok := s.data[clientID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *prefs
	return &out, nil
}

// ClientIDs returns every client id with stored preferences.
func (s *PreferenceStore) ClientIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
