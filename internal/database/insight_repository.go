package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/irfndi/lifemetrics/internal/models"
)

// InsightRepository keeps the latest insight bundle per user.
type InsightRepository struct {
	pool DatabasePool
}

// NewInsightRepository creates a new insight repository.
func NewInsightRepository(pool DatabasePool) *InsightRepository {
	return &InsightRepository{
		pool: pool,
	}
}

// SaveInsights replaces the stored bundle of the bundle's user. Concurrent
// refreshes resolve as last write wins.
func (r *InsightRepository) SaveInsights(ctx context.Context, bundle *models.InsightBundle) error {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to encode insight bundle: %w", err)
	}

	query := `
		INSERT INTO insight_bundles (user_id, bundle_id, range_start, range_end, payload, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id)
		DO UPDATE SET
			bundle_id = EXCLUDED.bundle_id,
			range_start = EXCLUDED.range_start,
			range_end = EXCLUDED.range_end,
			payload = EXCLUDED.payload,
			generated_at = EXCLUDED.generated_at
	`

	_, err = r.pool.Exec(ctx, query,
		bundle.UserID, bundle.ID, bundle.Range.Start, bundle.Range.End, payload, bundle.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to save insights for user %s: %w", bundle.UserID, err)
	}
	return nil
}

// GetInsights returns the stored bundle of the user, if any.
func (r *InsightRepository) GetInsights(ctx context.Context, userID string) (*models.InsightBundle, bool, error) {
	query := `SELECT payload FROM insight_bundles WHERE user_id = $1`

	var payload []byte
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load insights for user %s: %w", userID, err)
	}

	var bundle models.InsightBundle
	if err := json.Unmarshal(payload, &bundle); err != nil {
		return nil, false, fmt.Errorf("failed to decode insights for user %s: %w", userID, err)
	}
	return &bundle, true, nil
}
