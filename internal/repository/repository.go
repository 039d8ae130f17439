package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shoptrust/reviews/internal/domain"
)

// ReviewFilter defines filter criteria for listing reviews.
type ReviewFilter struct {
	MerchantID *uuid.UUID
	BuyerID    *uuid.UUID
	Status     *domain.ReviewStatus
	ReviewType *domain.ReviewType
	Flagged    *bool
	Search     *string
	Page       int
	PerPage    int
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Create inserts a new review. Returns ErrConflict when a uniqueness
	// invariant (one per buyer/merchant pair, one per order) is violated.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by its unique identifier.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error)

	// Update replaces the mutable fields of an existing review.
	Update(ctx context.Context, review *domain.Review) error

	// Delete removes a review permanently.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns reviews matching the filter along with the total count.
	List(ctx context.Context, filter ReviewFilter) ([]domain.Review, int, error)

	// ExistsForOrder reports whether any review already references the order.
	ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)

	// ExistsForBuyerAndMerchant reports whether the buyer already has a
	// non-order-linked review for the merchant.
	ExistsForBuyerAndMerchant(ctx context.Context, buyerID, merchantID uuid.UUID) (bool, error)

	// AggregateAdmissible computes the average rating and count over the
	// merchant's admissible reviews created after the cutoff instant.
	AggregateAdmissible(ctx context.Context, merchantID uuid.UUID, since time.Time) (avg float64, count int, err error)
}

// SummaryRepository defines the interface for trust summary persistence.
type SummaryRepository interface {
	// Upsert writes a freshly recomputed summary, replacing any prior one.
	Upsert(ctx context.Context, summary *domain.TrustSummary) error

	// GetByMerchantID retrieves the stored summary for a merchant.
	GetByMerchantID(ctx context.Context, merchantID uuid.UUID) (*domain.TrustSummary, error)

	// StaleMerchantIDs returns merchants whose summary was computed before
	// the cutoff, for the periodic rolling-window refresh.
	StaleMerchantIDs(ctx context.Context, computedBefore time.Time, limit int) ([]uuid.UUID, error)
}
