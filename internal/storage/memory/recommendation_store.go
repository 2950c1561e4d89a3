package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"stock-advisor/internal/domain"
	"stock-advisor/internal/storage"
)

// RecommendationStore is an in-memory implementation of
// storage.RecommendationStore.
type RecommendationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Recommendation // keyed by id
}

// NewRecommendationStore creates a new in-memory recommendation store.
func NewRecommendationStore() *RecommendationStore {
	return &RecommendationStore{data: make(map[string]*domain.Recommendation)}
}

var _ storage.RecommendationStore = (*RecommendationStore)(nil)

// Insert adds a new recommendation. Returns ErrDuplicateKey if the id exists.
func (s *RecommendationStore) Insert(_ context.Context, rec *domain.Recommendation) error {
	if rec == nil || rec.ID == "" || rec.ClientID == "" || rec.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rec.ID]; exists {
		return storage.ErrDuplicateKey
	}
	stored := *rec
	s.data[rec.ID] = &stored
	return nil
}

// exists reports whether a recommendation with the id is stored.
func (s *RecommendationStore) exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[id]
	return ok
}

// GetLast retrieves the most recent recommendation for (client, symbol).
func (s *RecommendationStore) GetLast(_ context.Context, clientID, symbol string) (*domain.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *domain.Recommendation
	for _, rec := range s.data {
		if rec.ClientID != clientID || rec.Symbol != symbol {
			continue
		}
		if last == nil || rec.CreatedAt.After(last.CreatedAt) {
			last = rec
		}
	}
	if last == nil {
		return nil, storage.ErrNotFound
	}
	out := *last
	return &out, nil
}

// List retrieves up to limit recommendations for a client, newest first.
func (s *RecommendationStore) List(_ context.Context, clientID string, limit int, before *time.Time) ([]*domain.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Recommendation
	for _, rec := range s.data {
		if rec.ClientID != clientID {
			continue
		}
		if before != nil && !rec.CreatedAt.Before(*before) {
			continue
		}
		out := *rec
		result = append(result, &out)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
