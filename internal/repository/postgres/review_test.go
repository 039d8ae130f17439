package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoptrust/reviews/internal/domain"
	"github.com/shoptrust/reviews/internal/repository"
	"github.com/shoptrust/reviews/pkg/database"
	apperrors "github.com/shoptrust/reviews/pkg/errors"
)

// --- Test Helpers ---

func newTestRepo(t *testing.T) (*ReviewRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewReviewRepository(mock), mock
}

func sampleReview() *domain.Review {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Review{
		ID:               uuid.New(),
		BuyerID:          uuid.New(),
		BuyerDisplayName: "Sarah K.",
		MerchantID:       uuid.New(),
		Rating:           5,
		Comment:          "Fast shipping, great packaging.",
		ReviewType:       domain.TypeVerified,
		Status:           domain.StatusPublished,
		ContentFlags:     []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func reviewRowColumns() []string {
	return []string{
		"id", "buyer_id", "buyer_display_name", "merchant_id", "rating", "comment",
		"review_type", "status", "is_verified_purchase", "verified_at", "order_id",
		"evidence", "content_flags", "admin_decision", "created_at", "updated_at",
	}
}

func reviewRowValues(rev *domain.Review) []any {
	var evidenceJSON, decisionJSON []byte
	if rev.Evidence != nil {
		evidenceJSON, _ = json.Marshal(rev.Evidence)
	}
	if rev.AdminDecision != nil {
		decisionJSON, _ = json.Marshal(rev.AdminDecision)
	}
	return []any{
		rev.ID, rev.BuyerID, rev.BuyerDisplayName, rev.MerchantID, rev.Rating, rev.Comment,
		rev.ReviewType, rev.Status, rev.IsVerifiedPurchase, rev.VerifiedAt, rev.OrderID,
		evidenceJSON, rev.ContentFlags, decisionJSON, rev.CreatedAt, rev.UpdatedAt,
	}
}

// --- Create ---

func TestReviewRepository_Create_Success(t *testing.T) {
	repo, mock := newTestRepo(t)

	rev := sampleReview()

	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(
			rev.ID, rev.BuyerID, rev.BuyerDisplayName, rev.MerchantID,
			rev.Rating, rev.Comment, rev.ReviewType, rev.Status,
			rev.IsVerifiedPurchase, rev.VerifiedAt, rev.OrderID,
			pgxmock.AnyArg(), // evidence JSON
			rev.ContentFlags,
			pgxmock.AnyArg(), // decision JSON
			rev.CreatedAt, rev.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), rev)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Create_UniqueViolation(t *testing.T) {
	repo, mock := newTestRepo(t)

	rev := sampleReview()

	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(
			rev.ID, rev.BuyerID, rev.BuyerDisplayName, rev.MerchantID,
			rev.Rating, rev.Comment, rev.ReviewType, rev.Status,
			rev.IsVerifiedPurchase, rev.VerifiedAt, rev.OrderID,
			pgxmock.AnyArg(), rev.ContentFlags, pgxmock.AnyArg(),
			rev.CreatedAt, rev.UpdatedAt,
		).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "reviews_buyer_merchant_key"})

	err := repo.Create(context.Background(), rev)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- GetByID ---

func TestReviewRepository_GetByID_Success(t *testing.T) {
	repo, mock := newTestRepo(t)

	rev := sampleReview()
	rev.Evidence = &domain.Evidence{
		OrderNumber: "ORD-12345",
		SubmittedAt: rev.CreatedAt,
	}

	mock.ExpectQuery("SELECT (.+) FROM reviews WHERE id").
		WithArgs(rev.ID).
		WillReturnRows(pgxmock.NewRows(reviewRowColumns()).AddRow(reviewRowValues(rev)...))

	got, err := repo.GetByID(context.Background(), rev.ID)
	require.NoError(t, err)
	assert.Equal(t, rev.ID, got.ID)
	assert.Equal(t, rev.Rating, got.Rating)
	require.NotNil(t, got.Evidence)
	assert.Equal(t, "ORD-12345", got.Evidence.OrderNumber)
	assert.Nil(t, got.AdminDecision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM reviews WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(reviewRowColumns()))

	_, err := repo.GetByID(context.Background(), id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Update ---

func TestReviewRepository_Update_Success(t *testing.T) {
	repo, mock := newTestRepo(t)

	rev := sampleReview()
	rev.Comment = "Edited comment"

	mock.ExpectExec("UPDATE reviews").
		WithArgs(
			rev.ID, rev.Rating, rev.Comment, rev.ReviewType, rev.Status,
			rev.IsVerifiedPurchase, rev.VerifiedAt,
			pgxmock.AnyArg(), rev.ContentFlags, pgxmock.AnyArg(),
			rev.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Update(context.Background(), rev)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Update_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	rev := sampleReview()

	mock.ExpectExec("UPDATE reviews").
		WithArgs(
			rev.ID, rev.Rating, rev.Comment, rev.ReviewType, rev.Status,
			rev.IsVerifiedPurchase, rev.VerifiedAt,
			pgxmock.AnyArg(), rev.ContentFlags, pgxmock.AnyArg(),
			rev.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), rev)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Delete ---

func TestReviewRepository_Delete_Success(t *testing.T) {
	repo, mock := newTestRepo(t)

	id := uuid.New()
	mock.ExpectExec("DELETE FROM reviews").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, repo.Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Delete_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	id := uuid.New()
	mock.ExpectExec("DELETE FROM reviews").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- List ---

func TestReviewRepository_List_ByMerchantAndStatus(t *testing.T) {
	repo, mock := newTestRepo(t)

	rev := sampleReview()
	merchantID := rev.MerchantID
	status := domain.StatusPending

	rows := pgxmock.NewRows(append(reviewRowColumns(), "total_count")).
		AddRow(append(reviewRowValues(rev), 1)...)

	mock.ExpectQuery("SELECT (.+) FROM reviews").
		WithArgs(merchantID, status, 20, 0).
		WillReturnRows(rows)

	got, total, err := repo.List(context.Background(), repository.ReviewFilter{
		MerchantID: &merchantID,
		Status:     &status,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, rev.ID, got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_List_Pagination(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM reviews").
		WithArgs(10, 20).
		WillReturnRows(pgxmock.NewRows(append(reviewRowColumns(), "total_count")))

	got, total, err := repo.List(context.Background(), repository.ReviewFilter{Page: 3, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Existence checks ---

func TestReviewRepository_ExistsForOrder(t *testing.T) {
	repo, mock := newTestRepo(t)

	orderID := uuid.New()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(orderID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsForOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_ExistsForBuyerAndMerchant(t *testing.T) {
	repo, mock := newTestRepo(t)

	buyerID, merchantID := uuid.New(), uuid.New()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(buyerID, merchantID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.ExistsForBuyerAndMerchant(context.Background(), buyerID, merchantID)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- AggregateAdmissible ---

func TestReviewRepository_AggregateAdmissible(t *testing.T) {
	repo, mock := newTestRepo(t)

	merchantID := uuid.New()
	since := time.Now().UTC().Add(-365 * 24 * time.Hour)

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(merchantID, domain.TypeVerified, domain.StatusPublished, domain.StatusApproved, since).
		WillReturnRows(pgxmock.NewRows([]string{"avg", "count"}).AddRow(14.0/3.0, 3))

	avg, count, err := repo.AggregateAdmissible(context.Background(), merchantID, since)
	require.NoError(t, err)
	assert.InDelta(t, 14.0/3.0, avg, 1e-9)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_AggregateAdmissible_Empty(t *testing.T) {
	repo, mock := newTestRepo(t)

	merchantID := uuid.New()
	since := time.Now().UTC()

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(merchantID, domain.TypeVerified, domain.StatusPublished, domain.StatusApproved, since).
		WillReturnRows(pgxmock.NewRows([]string{"avg", "count"}).AddRow(0.0, 0))

	avg, count, err := repo.AggregateAdmissible(context.Background(), merchantID, since)
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
