package postgres

import (
	"context"
	"fmt"

	"stock-advisor/internal/domain"
	"stock-advisor/internal/storage"
)

// WatchlistStore implements storage.WatchlistStore using PostgreSQL.
type WatchlistStore struct {
	pool *Pool
}

// NewWatchlistStore creates a new WatchlistStore.
func NewWatchlistStore(pool *Pool) *WatchlistStore {
	return &WatchlistStore{pool: pool}
}

var _ storage.WatchlistStore = (*WatchlistStore)(nil)

// Replace swaps a client's entire watchlist inside one transaction.
func (s *WatchlistStore) Replace(ctx context.Context, clientID string, items []domain.WatchlistItem) error {
	if clientID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace watchlist: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM watchlist_items WHERE client_id = $1`, clientID); err != nil {
		return fmt.Errorf("clear watchlist: %w", err)
	}
	for _, item := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO watchlist_items (client_id, symbol, name, group_name, sort_index)
			VALUES ($1, $2, $3, $4, $5)
		`, clientID, item.Symbol, item.Name, item.Group, item.SortIndex)
		if err != nil {
			return fmt.Errorf("insert watchlist item %s: %w", item.Symbol, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace watchlist: %w", err)
	}
	return nil
}

// GetByClient retrieves a client's watchlist ordered by (group, sort_index).
func (s *WatchlistStore) GetByClient(ctx context.Context, clientID string) ([]domain.WatchlistItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT client_id, symbol, name, group_name, sort_index
		FROM watchlist_items
		WHERE client_id = $1
		ORDER BY group_name ASC, sort_index ASC
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("get watchlist: %w", err)
	}
	defer rows.Close()

	var items []domain.WatchlistItem
	for rows.Next() {
		var item domain.WatchlistItem
		if err := rows.Scan(&item.ClientID, &item.Symbol, &item.Name, &item.Group, &item.SortIndex); err != nil {
			return nil, fmt.Errorf("scan watchlist item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlist: %w", err)
	}
	return items, nil
}

// ClientIDs returns every client id with at least one watchlist entry.
func (s *WatchlistStore) ClientIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT client_id FROM watchlist_items ORDER BY client_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list watchlist clients: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan client id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client ids: %w", err)
	}
	return ids, nil
}
