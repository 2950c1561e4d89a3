package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stock-advisor/internal/domain"
	"stock-advisor/internal/storage"
)

// PreferenceStore implements storage.PreferenceStore using PostgreSQL.
type PreferenceStore struct {
	pool *Pool
}

// NewPreferenceStore creates a new PreferenceStore.
func NewPreferenceStore(pool *Pool) *PreferenceStore {
	return &PreferenceStore{pool: pool}
}

var _ storage.PreferenceStore = (*PreferenceStore)(nil)

// Upsert creates or updates a client's preferences.
func (s *PreferenceStore) Upsert(ctx context.Context, prefs domain.Preferences) error {
	if prefs.ClientID == "" {
		return storage.ErrInvalidInput
	}

	quietHours, err := json.Marshal(prefs.QuietHours)
	if err != nil {
		return fmt.Errorf("marshal quiet hours: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO client_preferences (client_id, locale, notifications_enabled, quiet_hours, risk_profile, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (client_id) DO UPDATE SET
			locale = EXCLUDED.locale,
			notifications_enabled = EXCLUDED.notifications_enabled,
			quiet_hours = EXCLUDED.quiet_hours,
			risk_profile = EXCLUDED.risk_profile,
			updated_at = EXCLUDED.updated_at
	`, prefs.ClientID, prefs.Locale, prefs.NotificationsEnabled, quietHours, string(prefs.RiskProfile), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}

// GetByClient retrieves preferences. Returns ErrNotFound if never synced.
func (s *PreferenceStore) GetByClient(ctx context.Context, clientID string) (*domain.Preferences, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT client_id, locale, notifications_enabled, quiet_hours, risk_profile, updated_at
		FROM client_preferences
		WHERE client_id = $1
	`, clientID)

	var prefs domain.Preferences
	var quietHours []byte
	var profile string
	err := row.Scan(&prefs.ClientID, &prefs.Locale, &prefs.NotificationsEnabled, &quietHours, &profile, &prefs.UpdatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	if len(quietHours) > 0 {
		if err := json.Unmarshal(quietHours, &prefs.QuietHours); err != nil {
			return nil, fmt.Errorf("unmarshal quiet hours: %w", err)
		}
	}
	prefs.RiskProfile = domain.RiskProfile(profile)
	return &prefs, nil
}

// ClientIDs returns every client id with stored preferences.
func (s *PreferenceStore) ClientIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT client_id FROM client_preferences ORDER BY client_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list preference clients: %w", err)
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
