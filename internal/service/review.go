package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shoptrust/reviews/internal/cache"
	"github.com/shoptrust/reviews/internal/client"
	"github.com/shoptrust/reviews/internal/domain"
	"github.com/shoptrust/reviews/internal/evidence"
	"github.com/shoptrust/reviews/internal/moderation"
	"github.com/shoptrust/reviews/internal/repository"
	apperrors "github.com/shoptrust/reviews/pkg/errors"
	"github.com/shoptrust/reviews/pkg/logger"
)

const (
	// orderEligibilityWindow bounds how old an order may be to still count
	// as a verified purchase.
	orderEligibilityWindow = 180 * 24 * time.Hour

	minCommentLen = 10
	maxCommentLen = 1000
)

// Publisher publishes review domain events.
type Publisher interface {
	PublishReviewCreated(ctx context.Context, rev *domain.Review) error
	PublishReviewUpdated(ctx context.Context, rev *domain.Review) error
	PublishReviewDeleted(ctx context.Context, rev *domain.Review) error
	PublishReviewDecided(ctx context.Context, rev *domain.Review) error
	PublishTrustUpdated(ctx context.Context, merchantID uuid.UUID, s *domain.TrustSummary) error
}

// SummaryCache caches trust summaries for fast public reads.
type SummaryCache interface {
	Get(ctx context.Context, merchantID uuid.UUID) (*domain.TrustSummary, error)
	Set(ctx context.Context, s *domain.TrustSummary) error
	Invalidate(ctx context.Context, merchantID uuid.UUID) error
}

// ReviewService implements the business logic for review operations: the
// moderation and evidence gates, purchase verification, the lifecycle state
// machine, and trust-score recomputation.
type ReviewService struct {
	reviews   repository.ReviewRepository
	summaries repository.SummaryRepository
	cache     SummaryCache
	merchants client.MerchantClient
	orders    client.OrderClient
	filter    *moderation.Filter
	producer  Publisher
	logger    *slog.Logger

	staleAfter time.Duration
	staleBatch int

	// now is injectable for window tests.
	now func() time.Time
}

// Config holds optional tuning for the review service.
type Config struct {
	// StaleAfter is the summary age that makes it eligible for the
	// background rolling-window refresh.
	StaleAfter time.Duration

	// StaleBatch caps how many summaries one refresh pass recomputes.
	StaleBatch int
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	summaries repository.SummaryRepository,
	summaryCache SummaryCache,
	merchants client.MerchantClient,
	orders client.OrderClient,
	producer Publisher,
	cfg Config,
	log *slog.Logger,
) *ReviewService {
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	staleBatch := cfg.StaleBatch
	if staleBatch <= 0 {
		staleBatch = 100
	}

	return &ReviewService{
		reviews:    reviews,
		summaries:  summaries,
		cache:      summaryCache,
		merchants:  merchants,
		orders:     orders,
		filter:     moderation.NewFilter(),
		producer:   producer,
		logger:     log,
		staleAfter: staleAfter,
		staleBatch: staleBatch,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SubmitReviewInput holds the parameters for creating a review.
type SubmitReviewInput struct {
	BuyerID     uuid.UUID
	BuyerName   string
	MerchantID  uuid.UUID
	Rating      int
	Comment     string
	OrderID     *uuid.UUID
	Photos      []evidence.Photo
	OrderNumber string
	ChatLog     string
}

// SubmitReview runs a submission through the moderation gate, the evidence
// gate, and purchase verification, persists the review with its initial
// lifecycle state, and recomputes the merchant's trust summary.
func (s *ReviewService) SubmitReview(ctx context.Context, input SubmitReviewInput) (*domain.Review, error) {
	if err := validateRatingAndComment(input.Rating, input.Comment); err != nil {
		return nil, err
	}

	merchant, err := s.merchants.GetMerchant(ctx, input.MerchantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("merchant", input.MerchantID.String())
		}
		return nil, err
	}

	// Content gate. Rejection means nothing is persisted.
	modResult := s.filter.Check(input.Comment, merchant.Industry)
	if !modResult.IsClean {
		gateRejections.WithLabelValues(gateModeration).Inc()
		return nil, apperrors.ModerationRejected(modResult.Reasons)
	}

	// Evidence gate. Low ratings must carry a valid bundle.
	photos, err := evidence.Validate(input.Photos, input.OrderNumber, input.Rating)
	if err != nil {
		gateRejections.WithLabelValues(gateEvidence).Inc()
		return nil, apperrors.EvidenceRejected(err.Error())
	}

	now := s.now()

	rev := &domain.Review{
		ID:               uuid.New(),
		BuyerID:          input.BuyerID,
		BuyerDisplayName: domain.FoldDisplayName(input.BuyerName),
		MerchantID:       input.MerchantID,
		Rating:           input.Rating,
		Comment:          strings.TrimSpace(input.Comment),
		ReviewType:       domain.TypeVerified,
		Status:           domain.InitialStatus(input.Rating),
		ContentFlags:     []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if domain.RequiresEvidence(input.Rating) {
		rev.Evidence = &domain.Evidence{
			Photos:      photos,
			OrderNumber: strings.TrimSpace(input.OrderNumber),
			ChatLog:     input.ChatLog,
			SubmittedAt: now,
		}
	}

	// Purchase verification. Verification failure is never a rejection: the
	// review degrades to an ordinary non-order-linked submission. Collaborator
	// unavailability does fail the operation, with nothing persisted.
	if input.OrderID != nil {
		reviewed, err := s.reviews.ExistsForOrder(ctx, *input.OrderID)
		if err != nil {
			return nil, err
		}
		if reviewed {
			return nil, apperrors.Conflict("this order has already been reviewed")
		}

		if err := s.verifyPurchase(ctx, rev, input.BuyerID, input.MerchantID, *input.OrderID, now); err != nil {
			return nil, err
		}
	}

	if rev.OrderID == nil {
		exists, err := s.reviews.ExistsForBuyerAndMerchant(ctx, input.BuyerID, input.MerchantID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperrors.Conflict("you have already reviewed this merchant")
		}
	}

	if err := s.reviews.Create(ctx, rev); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	if err := s.producer.PublishReviewCreated(ctx, rev); err != nil {
		log.Warn("failed to publish review.created",
			slog.String("review_id", rev.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.recomputeAfterWrite(ctx, rev.MerchantID)

	return rev, nil
}

// verifyPurchase consults the order collaborator and marks the review as a
// verified purchase when the order checks out. Any lookup mismatch degrades
// silently; only collaborator unavailability propagates.
func (s *ReviewService) verifyPurchase(ctx context.Context, rev *domain.Review, buyerID, merchantID, orderID uuid.UUID, now time.Time) error {
	log := logger.FromContext(ctx)

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Info("order not found, review proceeds without verified purchase",
				slog.String("order_id", orderID.String()),
			)
			return nil
		}
		return err
	}

	if order.BuyerID != buyerID || order.MerchantID != merchantID {
		log.Info("order does not match buyer or merchant, review proceeds without verified purchase",
			slog.String("order_id", orderID.String()),
		)
		return nil
	}
	if order.CreatedAt.Before(now.Add(-orderEligibilityWindow)) {
		log.Info("order outside eligibility window, review proceeds without verified purchase",
			slog.String("order_id", orderID.String()),
		)
		return nil
	}

	oid := orderID
	rev.OrderID = &oid
	rev.IsVerifiedPurchase = true
	rev.VerifiedAt = &now
	return nil
}

// GetReview retrieves a review by ID.
func (s *ReviewService) GetReview(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	return s.reviews.GetByID(ctx, id)
}

// ListReviews returns reviews matching the filter with the total count.
func (s *ReviewService) ListReviews(ctx context.Context, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	return s.reviews.List(ctx, filter)
}

// ListPending returns the admin moderation queue.
func (s *ReviewService) ListPending(ctx context.Context, page, perPage int) ([]domain.Review, int, error) {
	pending := domain.StatusPending
	return s.reviews.List(ctx, repository.ReviewFilter{
		Status:  &pending,
		Page:    page,
		PerPage: perPage,
	})
}

// EditReviewInput holds the partial fields of a buyer edit. Nil pointers
// leave the stored value untouched; a non-nil Photos slice replaces the
// whole evidence bundle, while OrderNumber or ChatLog alone amend the
// stored bundle in place.
type EditReviewInput struct {
	Rating      *int
	Comment     *string
	Photos      []evidence.Photo
	OrderNumber *string
	ChatLog     *string
}

// EditReview applies a buyer edit. A material change (rating crossing into
// evidence-required territory, or a replaced evidence bundle) sends the
// review back to pending for re-moderation; an invalid new bundle rejects
// the edit and leaves the stored review untouched.
func (s *ReviewService) EditReview(ctx context.Context, id, callerID uuid.UUID, input EditReviewInput) (*domain.Review, error) {
	rev, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rev.IsOwnedBy(callerID) {
		return nil, apperrors.Forbidden("you can only edit your own reviews")
	}

	oldRating := rev.Rating
	newRating := oldRating
	if input.Rating != nil {
		newRating = *input.Rating
	}
	newComment := rev.Comment
	if input.Comment != nil {
		newComment = *input.Comment
	}

	if err := validateRatingAndComment(newRating, newComment); err != nil {
		return nil, err
	}

	if input.Comment != nil && newComment != rev.Comment {
		merchant, err := s.merchants.GetMerchant(ctx, rev.MerchantID)
		if err != nil {
			return nil, err
		}
		modResult := s.filter.Check(newComment, merchant.Industry)
		if !modResult.IsClean {
			gateRejections.WithLabelValues(gateModeration).Inc()
			return nil, apperrors.ModerationRejected(modResult.Reasons)
		}
	}

	evidenceChanged := input.Photos != nil
	needsEvidence := domain.RequiresEvidence(newRating)

	if needsEvidence {
		switch {
		case evidenceChanged:
			orderNumber := ""
			if input.OrderNumber != nil {
				orderNumber = *input.OrderNumber
			} else if rev.Evidence != nil {
				orderNumber = rev.Evidence.OrderNumber
			}

			photos, err := evidence.Validate(input.Photos, orderNumber, newRating)
			if err != nil {
				gateRejections.WithLabelValues(gateEvidence).Inc()
				return nil, apperrors.EvidenceRejected(err.Error())
			}

			chatLog := ""
			if input.ChatLog != nil {
				chatLog = *input.ChatLog
			} else if rev.Evidence != nil {
				chatLog = rev.Evidence.ChatLog
			}

			rev.Evidence = &domain.Evidence{
				Photos:      photos,
				OrderNumber: strings.TrimSpace(orderNumber),
				ChatLog:     chatLog,
				SubmittedAt: s.now(),
			}
		case rev.Evidence == nil:
			return nil, apperrors.EvidenceRejected("at least 1 product photo is required for reviews rated 1-3 stars")
		}
	}

	// Field-level bundle edits without new photos amend the stored bundle
	// in place. A shortened order number fails the same length rule as on
	// submission.
	if !evidenceChanged && rev.Evidence != nil {
		if input.OrderNumber != nil {
			trimmed := strings.TrimSpace(*input.OrderNumber)
			if len(trimmed) < evidence.MinOrderNumberLen {
				gateRejections.WithLabelValues(gateEvidence).Inc()
				return nil, apperrors.EvidenceRejected("a valid order number is required for reviews rated 1-3 stars")
			}
			rev.Evidence.OrderNumber = trimmed
			evidenceChanged = true
		}
		if input.ChatLog != nil {
			rev.Evidence.ChatLog = *input.ChatLog
			evidenceChanged = true
		}
	}

	// Material change: crossing into evidence-required territory or a
	// replaced bundle re-pends the review regardless of prior state.
	if needsEvidence && (!domain.RequiresEvidence(oldRating) || evidenceChanged) {
		rev.Status = domain.StatusPending
		rev.AdminDecision = nil
	}

	rev.Rating = newRating
	rev.Comment = strings.TrimSpace(newComment)
	rev.UpdatedAt = s.now()

	if err := s.reviews.Update(ctx, rev); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	if err := s.producer.PublishReviewUpdated(ctx, rev); err != nil {
		log.Warn("failed to publish review.updated",
			slog.String("review_id", rev.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.recomputeAfterWrite(ctx, rev.MerchantID)

	return rev, nil
}

// DeleteReview removes a review. Permitted from any state by the owning
// buyer or an admin; recomputation afterwards treats the review as if it
// never existed.
func (s *ReviewService) DeleteReview(ctx context.Context, id, callerID uuid.UUID, isAdmin bool) error {
	rev, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !isAdmin && !rev.IsOwnedBy(callerID) {
		return apperrors.Forbidden("you can only delete your own reviews")
	}

	if err := s.reviews.Delete(ctx, id); err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	if err := s.producer.PublishReviewDeleted(ctx, rev); err != nil {
		log.Warn("failed to publish review.deleted",
			slog.String("review_id", rev.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.recomputeAfterWrite(ctx, rev.MerchantID)

	return nil
}

// Decide applies an admin approve/reject decision to a pending review.
func (s *ReviewService) Decide(ctx context.Context, id, adminID uuid.UUID, action domain.AdminDecisionAction, notes string) (*domain.Review, error) {
	if !domain.ValidDecision(string(action)) {
		return nil, apperrors.InvalidInput("decision must be approve or reject")
	}

	rev, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rev.CanDecide() {
		return nil, apperrors.InvalidState("only pending reviews can be decided")
	}

	rev.ApplyDecision(adminID, action, notes, s.now())

	if err := s.reviews.Update(ctx, rev); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	if err := s.producer.PublishReviewDecided(ctx, rev); err != nil {
		log.Warn("failed to publish review.decided",
			slog.String("review_id", rev.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.recomputeAfterWrite(ctx, rev.MerchantID)

	return rev, nil
}

// AttachEvidence uploads a late evidence bundle to an already-pending
// low-star review owned by the caller. The review stays pending.
func (s *ReviewService) AttachEvidence(ctx context.Context, id, callerID uuid.UUID, photos []evidence.Photo, orderNumber, chatLog string) (*domain.Review, error) {
	rev, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rev.IsOwnedBy(callerID) {
		return nil, apperrors.Forbidden("you can only attach evidence to your own reviews")
	}
	if rev.Status != domain.StatusPending {
		return nil, apperrors.InvalidState("evidence can only be attached to pending reviews")
	}
	if !domain.RequiresEvidence(rev.Rating) {
		return nil, apperrors.InvalidInput("this review does not require evidence")
	}

	decoded, err := evidence.Validate(photos, orderNumber, rev.Rating)
	if err != nil {
		gateRejections.WithLabelValues(gateEvidence).Inc()
		return nil, apperrors.EvidenceRejected(err.Error())
	}

	rev.Evidence = &domain.Evidence{
		Photos:      decoded,
		OrderNumber: strings.TrimSpace(orderNumber),
		ChatLog:     chatLog,
		SubmittedAt: s.now(),
	}
	rev.UpdatedAt = s.now()

	if err := s.reviews.Update(ctx, rev); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	if err := s.producer.PublishReviewUpdated(ctx, rev); err != nil {
		log.Warn("failed to publish review.updated",
			slog.String("review_id", rev.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	return rev, nil
}

// GetEvidence returns the evidence bundle of a review, visible to the
// owning buyer and admins only.
func (s *ReviewService) GetEvidence(ctx context.Context, id, callerID uuid.UUID, isAdmin bool) (*domain.Review, error) {
	rev, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !rev.IsOwnedBy(callerID) {
		return nil, apperrors.Forbidden("evidence is only visible to the review owner")
	}
	return rev, nil
}

// TrustSummary returns the merchant's public trust summary, served from the
// cache when possible. A merchant with no stored summary gets one computed
// on demand.
func (s *ReviewService) TrustSummary(ctx context.Context, merchantID uuid.UUID) (*domain.TrustSummary, error) {
	log := logger.FromContext(ctx)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, merchantID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn("trust summary cache read failed",
				slog.String("merchant_id", merchantID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	summary, err := s.summaries.GetByMerchantID(ctx, merchantID)
	if err == nil {
		if s.cache != nil {
			if cerr := s.cache.Set(ctx, summary); cerr != nil {
				log.Warn("trust summary cache write failed", slog.String("error", cerr.Error()))
			}
		}
		return summary, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	// No summary yet: confirm the merchant exists, then compute fresh.
	if _, err := s.merchants.GetMerchant(ctx, merchantID); err != nil {
		return nil, err
	}

	return s.Recompute(ctx, merchantID)
}

// Recompute rebuilds the merchant's trust summary from the admissible review
// set. It is idempotent and safe to invoke speculatively: the summary is
// always a pure function of the current data, never an incremental patch.
func (s *ReviewService) Recompute(ctx context.Context, merchantID uuid.UUID) (*domain.TrustSummary, error) {
	now := s.now()
	since := now.Add(-domain.AggregationWindow)

	avg, count, err := s.reviews.AggregateAdmissible(ctx, merchantID, since)
	if err != nil {
		return nil, err
	}

	summary := domain.NewTrustSummary(merchantID, avg, count, now)

	if err := s.summaries.Upsert(ctx, &summary); err != nil {
		return nil, err
	}
	trustRecomputations.Inc()

	log := logger.FromContext(ctx)

	if s.cache != nil {
		if err := s.cache.Set(ctx, &summary); err != nil {
			log.Warn("trust summary cache write failed",
				slog.String("merchant_id", merchantID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishTrustUpdated(ctx, merchantID, &summary); err != nil {
		log.Warn("failed to publish merchant.trust_updated",
			slog.String("merchant_id", merchantID.String()),
			slog.String("error", err.Error()),
		)
	}

	return &summary, nil
}

// recomputeAfterWrite runs recomputation as the final step of a mutating
// operation. The review write is the authoritative fact; a recomputation
// failure leaves the summary stale, to be corrected by the next trigger or
// the background refresher, and never rolls back the write.
func (s *ReviewService) recomputeAfterWrite(ctx context.Context, merchantID uuid.UUID) {
	if _, err := s.Recompute(ctx, merchantID); err != nil {
		logger.FromContext(ctx).Error("trust summary recomputation failed",
			slog.String("merchant_id", merchantID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// RefreshStaleSummaries recomputes summaries whose computed_at predates the
// staleness threshold. The rolling aggregation window means scores drift
// from clock passage alone, so this runs periodically in the background.
func (s *ReviewService) RefreshStaleSummaries(ctx context.Context) error {
	cutoff := s.now().Add(-s.staleAfter)

	ids, err := s.summaries.StaleMerchantIDs(ctx, cutoff, s.staleBatch)
	if err != nil {
		return err
	}

	for _, merchantID := range ids {
		if _, err := s.Recompute(ctx, merchantID); err != nil {
			s.logger.Error("stale summary refresh failed",
				slog.String("merchant_id", merchantID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	if len(ids) > 0 {
		s.logger.Info("refreshed stale trust summaries", slog.Int("count", len(ids)))
	}

	return nil
}

func validateRatingAndComment(rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return apperrors.InvalidInput("rating must be between 1 and 5")
	}
	trimmed := strings.TrimSpace(comment)
	if len(trimmed) < minCommentLen {
		return apperrors.InvalidInput("comment must be at least 10 characters")
	}
	if len(trimmed) > maxCommentLen {
		return apperrors.InvalidInput("comment must be at most 1000 characters")
	}
	return nil
}
