package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"stock-advisor/internal/domain"
	"stock-advisor/internal/storage"
)

// RecommendationStore implements storage.RecommendationStore using PostgreSQL.
type RecommendationStore struct {
	pool *Pool
}

// NewRecommendationStore creates a new RecommendationStore.
func NewRecommendationStore(pool *Pool) *RecommendationStore {
	return &RecommendationStore{pool: pool}
}

var _ storage.RecommendationStore = (*RecommendationStore)(nil)

// Insert adds a new recommendation. Returns ErrDuplicateKey if the id exists.
func (s *RecommendationStore) Insert(ctx context.Context, rec *domain.Recommendation) error {
	if rec == nil || rec.ID == "" || rec.ClientID == "" || rec.Symbol == "" {
		return storage.ErrInvalidInput
	}

	risk, err := json.Marshal(rec.Risk)
	if err != nil {
		return fmt.Errorf("marshal risk: %w", err)
	}
	evidence, err := json.Marshal(rec.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO recommendations (
			id, client_id, symbol, created_at, action, target_position_pct,
			summary_zh, summary_en, risk, evidence, confidence, cooldown_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		rec.ID,
		rec.ClientID,
		rec.Symbol,
		rec.CreatedAt,
		string(rec.Action),
		rec.TargetPositionPct,
		rec.SummaryZH,
		rec.SummaryEN,
		risk,
		evidence,
		rec.Confidence,
		rec.CooldownKey,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

// GetLast retrieves the most recent recommendation for (client, symbol).
func (s *RecommendationStore) GetLast(ctx context.Context, clientID, symbol string) (*domain.Recommendation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, client_id, symbol, created_at, action, target_position_pct,
			summary_zh, summary_en, risk, evidence, confidence, cooldown_key
		FROM recommendations
		WHERE client_id = $1 AND symbol = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, clientID, symbol)

	rec, err := scanRecommendation(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get last recommendation: %w", err)
	}
	return rec, nil
}

// List retrieves up to limit recommendations for a client, newest first.
func (s *RecommendationStore) List(ctx context.Context, clientID string, limit int, before *time.Time) ([]*domain.Recommendation, error) {
	query := `
		SELECT id, client_id, symbol, created_at, action, target_position_pct,
			summary_zh, summary_en, risk, evidence, confidence, cooldown_key
		FROM recommendations
		WHERE client_id = $1
	`
	args := []any{clientID}
	if before != nil {
		query += ` AND created_at < $2`
		args = append(args, *before)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var result []*domain.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendations: %w", err)
	}
	return result, nil
}

// scanRecommendation reads one row into a Recommendation.
func scanRecommendation(row pgx.Row) (*domain.Recommendation, error) {
	var rec domain.Recommendation
	var action string
	var risk, evidence []byte
	err := row.Scan(
		&rec.ID,
		&rec.ClientID,
		&rec.Symbol,
		&rec.CreatedAt,
		&action,
		&rec.TargetPositionPct,
		&rec.SummaryZH,
		&rec.SummaryEN,
		&risk,
		&evidence,
		&rec.Confidence,
		&rec.CooldownKey,
	)
	if err != nil {
		return nil, err
	}
	rec.Action = domain.Action(action)
	if len(risk) > 0 {
		if err := json.Unmarshal(risk, &rec.Risk); err != nil {
			return nil, fmt.Errorf("unmarshal risk: %w", err)
		}
	}
	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &rec.Evidence); err != nil {
			return nil, fmt.Errorf("unmarshal evidence: %w", err)
		}
	}
	return &rec, nil
}
