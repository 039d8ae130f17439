package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shoptrust/reviews/internal/domain"
	"github.com/shoptrust/reviews/pkg/database"
	apperrors "github.com/shoptrust/reviews/pkg/errors"
)

// SummaryRepository implements repository.SummaryRepository using PostgreSQL.
type SummaryRepository struct {
	pool database.DBTX
}

// NewSummaryRepository creates a new PostgreSQL-backed summary repository.
func NewSummaryRepository(pool database.DBTX) *SummaryRepository {
	return &SummaryRepository{pool: pool}
}

// Upsert writes a freshly recomputed summary. The whole row is replaced:
// summaries are derived state and never patched field by field.
func (r *SummaryRepository) Upsert(ctx context.Context, s *domain.TrustSummary) error {
	query := `
		INSERT INTO merchant_trust_summaries (merchant_id, rating, review_count, trust_grade, grade_label, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (merchant_id) DO UPDATE
		SET rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count,
			trust_grade = EXCLUDED.trust_grade,
			grade_label = EXCLUDED.grade_label,
			computed_at = EXCLUDED.computed_at`

	_, err := r.pool.Exec(ctx, query,
		s.MerchantID,
		s.Rating,
		s.ReviewCount,
		s.TrustGrade,
		s.GradeLabel,
		s.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert trust summary: %w", err)
	}

	return nil
}

// GetByMerchantID retrieves the stored summary for a merchant.
func (r *SummaryRepository) GetByMerchantID(ctx context.Context, merchantID uuid.UUID) (*domain.TrustSummary, error) {
	query := `
		SELECT merchant_id, rating, review_count, trust_grade, grade_label, computed_at
		FROM merchant_trust_summaries
		WHERE merchant_id = $1`

	var s domain.TrustSummary
	err := r.pool.QueryRow(ctx, query, merchantID).Scan(
		&s.MerchantID,
		&s.Rating,
		&s.ReviewCount,
		&s.TrustGrade,
		&s.GradeLabel,
		&s.ComputedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("trust summary", merchantID.String())
		}
		return nil, fmt.Errorf("scan trust summary: %w", err)
	}

	return &s, nil
}

// StaleMerchantIDs returns merchants whose summary predates the cutoff,
// oldest first, capped at limit. Used by the rolling-window refresher.
func (r *SummaryRepository) StaleMerchantIDs(ctx context.Context, computedBefore time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT merchant_id
		FROM merchant_trust_summaries
		WHERE computed_at < $1
		ORDER BY computed_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, computedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale summaries: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan merchant id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale summaries: %w", err)
	}

	return ids, nil
}
