package postgres

import (
	"context"
	"fmt"
	"time"

	"stock-advisor/internal/domain"
	"stock-advisor/internal/storage"
)

// FeedbackStore implements storage.FeedbackStore using PostgreSQL.
type FeedbackStore struct {
	pool *Pool
}

// NewFeedbackStore creates a new FeedbackStore.
func NewFeedbackStore(pool *Pool) *FeedbackStore {
	return &FeedbackStore{pool: pool}
}

var _ storage.FeedbackStore = (*FeedbackStore)(nil)

// Insert adds a new feedback row. Returns ErrDuplicateKey if the id exists
// and ErrInvalidInput when the referenced recommendation does not exist.
func (s *FeedbackStore) Insert(ctx context.Context, fb *domain.Feedback) error {
	if fb == nil || fb.ID == "" || fb.ClientID == "" || fb.RecommendationID == "" {
		return storage.ErrInvalidInput
	}

	createdAt := fb.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO feedback (id, client_id, recommendation_id, helpful, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, fb.ID, fb.ClientID, fb.RecommendationID, fb.Helpful, fb.Reason, createdAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isForeignKeyError(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}
