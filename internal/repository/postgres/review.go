package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shoptrust/reviews/internal/domain"
	"github.com/shoptrust/reviews/internal/repository"
	"github.com/shoptrust/reviews/pkg/database"
	apperrors "github.com/shoptrust/reviews/pkg/errors"
)

const uniqueViolationCode = "23505"

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

const reviewColumns = `id, buyer_id, buyer_display_name, merchant_id, rating, comment, review_type, status,
		is_verified_purchase, verified_at, order_id, evidence, content_flags, admin_decision, created_at, updated_at`

// Create inserts a new review. Unique-index violations (duplicate
// buyer/merchant pair or already-reviewed order) surface as ErrConflict.
func (r *ReviewRepository) Create(ctx context.Context, rev *domain.Review) error {
	evidenceJSON, decisionJSON, err := marshalJSONFields(rev)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = r.pool.Exec(ctx, query,
		rev.ID,
		rev.BuyerID,
		rev.BuyerDisplayName,
		rev.MerchantID,
		rev.Rating,
		rev.Comment,
		rev.ReviewType,
		rev.Status,
		rev.IsVerifiedPurchase,
		rev.VerifiedAt,
		rev.OrderID,
		evidenceJSON,
		rev.ContentFlags,
		decisionJSON,
		rev.CreatedAt,
		rev.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return apperrors.Conflict("a review for this merchant or order already exists")
		}
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	rev, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id.String())
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	return rev, nil
}

// Update replaces the mutable fields of an existing review.
func (r *ReviewRepository) Update(ctx context.Context, rev *domain.Review) error {
	evidenceJSON, decisionJSON, err := marshalJSONFields(rev)
	if err != nil {
		return err
	}

	query := `
		UPDATE reviews
		SET rating = $2, comment = $3, review_type = $4, status = $5,
			is_verified_purchase = $6, verified_at = $7, evidence = $8,
			content_flags = $9, admin_decision = $10, updated_at = $11
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		rev.ID,
		rev.Rating,
		rev.Comment,
		rev.ReviewType,
		rev.Status,
		rev.IsVerifiedPurchase,
		rev.VerifiedAt,
		evidenceJSON,
		rev.ContentFlags,
		decisionJSON,
		rev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("review", rev.ID.String())
	}

	return nil
}

// Delete removes a review permanently.
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("review", id.String())
	}
	return nil
}

// List returns reviews matching the filter with the total count.
func (r *ReviewRepository) List(ctx context.Context, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.MerchantID != nil {
		conditions = append(conditions, fmt.Sprintf("merchant_id = $%d", argIndex))
		args = append(args, *filter.MerchantID)
		argIndex++
	}
	if filter.BuyerID != nil {
		conditions = append(conditions, fmt.Sprintf("buyer_id = $%d", argIndex))
		args = append(args, *filter.BuyerID)
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.ReviewType != nil {
		conditions = append(conditions, fmt.Sprintf("review_type = $%d", argIndex))
		args = append(args, *filter.ReviewType)
		argIndex++
	}
	if filter.Flagged != nil {
		if *filter.Flagged {
			conditions = append(conditions, "cardinality(content_flags) > 0")
		} else {
			conditions = append(conditions, "cardinality(content_flags) = 0")
		}
	}
	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("comment ILIKE $%d", argIndex))
		args = append(args, "%"+*filter.Search+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// count(*) OVER() returns the unpaginated total in the same query.
	query := fmt.Sprintf(`
		SELECT `+reviewColumns+`, count(*) OVER() AS total_count
		FROM reviews
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var totalCount int
	reviews := make([]domain.Review, 0)

	for rows.Next() {
		rev, err := scanReviewWithTotal(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, *rev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate reviews: %w", err)
	}

	return reviews, totalCount, nil
}

// ExistsForOrder reports whether any review already references the order.
func (r *ReviewRepository) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE order_id = $1)`, orderID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check order reviewed: %w", err)
	}
	return exists, nil
}

// ExistsForBuyerAndMerchant reports whether the buyer already has a
// non-order-linked review for the merchant.
func (r *ReviewRepository) ExistsForBuyerAndMerchant(ctx context.Context, buyerID, merchantID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE buyer_id = $1 AND merchant_id = $2 AND order_id IS NULL)`,
		buyerID, merchantID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check buyer merchant review: %w", err)
	}
	return exists, nil
}

// AggregateAdmissible computes the average rating and count over the
// merchant's admissible reviews created after the cutoff instant. The
// admissibility predicate lives in SQL so the aggregate is one round trip.
func (r *ReviewRepository) AggregateAdmissible(ctx context.Context, merchantID uuid.UUID, since time.Time) (float64, int, error) {
	query := `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews
		WHERE merchant_id = $1
		  AND review_type = $2
		  AND status IN ($3, $4)
		  AND created_at > $5`

	var (
		avg   float64
		count int
	)
	err := r.pool.QueryRow(ctx, query,
		merchantID, domain.TypeVerified, domain.StatusPublished, domain.StatusApproved, since,
	).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("aggregate reviews: %w", err)
	}

	return avg, count, nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for the shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (*domain.Review, error) {
	return scanReviewInto(row, nil)
}

func scanReviewWithTotal(row rowScanner, total *int) (*domain.Review, error) {
	return scanReviewInto(row, total)
}

func scanReviewInto(row rowScanner, total *int) (*domain.Review, error) {
	var (
		rev          domain.Review
		evidenceJSON []byte
		decisionJSON []byte
	)

	dest := []any{
		&rev.ID,
		&rev.BuyerID,
		&rev.BuyerDisplayName,
		&rev.MerchantID,
		&rev.Rating,
		&rev.Comment,
		&rev.ReviewType,
		&rev.Status,
		&rev.IsVerifiedPurchase,
		&rev.VerifiedAt,
		&rev.OrderID,
		&evidenceJSON,
		&rev.ContentFlags,
		&decisionJSON,
		&rev.CreatedAt,
		&rev.UpdatedAt,
	}
	if total != nil {
		dest = append(dest, total)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if len(evidenceJSON) > 0 && string(evidenceJSON) != "null" {
		var ev domain.Evidence
		if err := json.Unmarshal(evidenceJSON, &ev); err != nil {
			return nil, fmt.Errorf("unmarshal evidence: %w", err)
		}
		rev.Evidence = &ev
	}

	if len(decisionJSON) > 0 && string(decisionJSON) != "null" {
		var dec domain.AdminDecision
		if err := json.Unmarshal(decisionJSON, &dec); err != nil {
			return nil, fmt.Errorf("unmarshal admin decision: %w", err)
		}
		rev.AdminDecision = &dec
	}

	return &rev, nil
}

func marshalJSONFields(rev *domain.Review) (evidenceJSON, decisionJSON []byte, err error) {
	if rev.Evidence != nil {
		evidenceJSON, err = json.Marshal(rev.Evidence)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal evidence: %w", err)
		}
	}
	if rev.AdminDecision != nil {
		decisionJSON, err = json.Marshal(rev.AdminDecision)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal admin decision: %w", err)
		}
	}
	return evidenceJSON, decisionJSON, nil
}
