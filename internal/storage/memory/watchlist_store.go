// Package memory provides in-memory store implementations, used by tests
// and by deployments running without PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"

	"stock-advisor/internal/domain"
	"stock-advisor/internal/storage"
)

// WatchlistStore is an in-memory implementation of storage.WatchlistStore.
type WatchlistStore struct {
	mu   sync.RWMutex
	data map[string][]domain.WatchlistItem // keyed by client_id
}

// NewWatchlistStore creates a new in-memory watchlist store.
func NewWatchlistStore() *WatchlistStore {
	return &WatchlistStore{data: make(map[string][]domain.WatchlistItem)}
}

var _ storage.WatchlistStore = (*WatchlistStore)(nil)

// Replace swaps a client's entire watchlist atomically.
func (s *WatchlistStore) Replace(_ context.Context, clientID string, items []domain.WatchlistItem) error {
	if clientID == "" {
		return storage.ErrInvalidInput
	}

	copied := make([]domain.WatchlistItem, len(items))
	copy(copied, items)
	for i := range copied {
		copied[i].ClientID = clientID
	}
	sort.SliceStable(copied, func(i, j int) bool {
		if copied[i].Group != copied[j].Group {
			return copied[i].Group < copied[j].Group
		}
		return copied[i].SortIndex < copied[j].SortIndex
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(copied) == 0 {
		delete(s.data, clientID)
		return nil
	}
	s.data[clientID] = copied
	return nil
}

// GetByClient retrieves a client's watchlist ordered by (group, sort_index).
func (s *WatchlistStore) GetByClient(_ context.Context, clientID string) ([]domain.WatchlistItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.data[clientID]
	out := make([]domain.WatchlistItem, len(items))
	copy(out, items)
	return out, nil
}

// ClientIDs returns every client id with at least one watchlist entry.
func (s *WatchlistStore) ClientIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
