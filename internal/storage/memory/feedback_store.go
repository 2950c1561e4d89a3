package memory

import (
	"context"
	"sync"
	"time"

	"stock-advisor/internal/domain"
	"stock-advisor/internal/storage"
)

// FeedbackStore is an in-memory implementation of storage.FeedbackStore.
// It enforces the same referential check the relational schema gets from
// its foreign key: feedback must target a stored recommendation.
type FeedbackStore struct {
	mu   sync.Mutex
	data map[string]*domain.Feedback // keyed by id
	recs *RecommendationStore
}

// NewFeedbackStore creates a new in-memory feedback store backed by the
// given recommendation store for existence checks.
func NewFeedbackStore(recs *RecommendationStore) *FeedbackStore {
	return &FeedbackStore{data: make(map[string]*domain.Feedback), recs: recs}
}

var _ storage.FeedbackStore = (*FeedbackStore)(nil)

// Insert adds a new feedback row. Returns ErrInvalidInput when the
// referenced recommendation does not exist and ErrDuplicateKey if the id
// exists.
func (s *FeedbackStore) Insert(_ context.Context, fb *domain.Feedback) error {
	if fb == nil || fb.ID == "" || fb.ClientID == "" || fb.RecommendationID == "" {
		return storage.ErrInvalidInput
	}
	if s.recs != nil && !s.recs.exists(fb.RecommendationID) {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[fb.ID]; exists {
		return storage.ErrDuplicateKey
	}
	stored := *fb
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.data[fb.ID] = &stored
	return nil
}
