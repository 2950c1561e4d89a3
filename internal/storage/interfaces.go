package storage

import (
	"context"
	"sort"
	"time"

	"stock-advisor/internal/domain"
)

// WatchlistStore provides access to per-client watchlists.
type WatchlistStore interface {
	// Replace swaps a client's entire watchlist atomically.
	Replace(ctx context.Context, clientID string, items []domain.WatchlistItem) error

	// GetByClient retrieves a client's watchlist ordered by (group, sort_index).
	GetByClient(ctx context.Context, clientID string) ([]domain.WatchlistItem, error)

	// ClientIDs returns every client id with at least one watchlist entry.
	ClientIDs(ctx context.Context) ([]string, error)
}

// PreferenceStore provides access to per-client preferences.
type PreferenceStore interface {
	// Upsert creates or updates a client's preferences.
	Upsert(ctx context.Context, prefs domain.Preferences) error

	// GetByClient retrieves preferences. Returns ErrNotFound if never synced.
	GetByClient(ctx context.Context, clientID string) (*domain.Preferences, error)

	// ClientIDs returns every client id with stored preferences.
	ClientIDs(ctx context.Context) ([]string, error)
}

// RecommendationStore provides access to persisted recommendations.
// Rows are append-only; feedback is stored separately.
type RecommendationStore interface {
	// Insert adds a new recommendation. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, rec *domain.Recommendation) error

	// GetLast retrieves the most recent recommendation for (client, symbol).
	// Returns ErrNotFound if none exists.
	GetLast(ctx context.Context, clientID, symbol string) (*domain.Recommendation, error)

	// List retrieves up to limit recommendations for a client, newest first,
	// optionally only those created strictly before the given time.
	List(ctx context.Context, clientID string, limit int, before *time.Time) ([]*domain.Recommendation, error)
}

// FeedbackStore records client verdicts on recommendations.
type FeedbackStore interface {
	// Insert adds a new feedback row. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, fb *domain.Feedback) error
}

// Repository bundles the stores the engine consumes.
type Repository struct {
	Watchlist       WatchlistStore
	Preferences     PreferenceStore
	Recommendations RecommendationStore
	Feedback        FeedbackStore
}

// AllClientIDs returns the sorted union of clients known from watchlists
// and preferences.
func (r Repository) AllClientIDs(ctx context.Context) ([]string, error) {
	fromWatchlist, err := r.Watchlist.ClientIDs(ctx)
	if err != nil {
		return nil, err
	}
	fromPrefs, err := r.Preferences.ClientIDs(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(fromWatchlist)+len(fromPrefs))
	var all []string
	for _, id := range append(fromWatchlist, fromPrefs...) {
		if !seen[id] {
			seen[id] = true
			all = append(all, id)
		}
	}
	sort.Strings(all)
	return all, nil
}
