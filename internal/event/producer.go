package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shoptrust/reviews/internal/domain"
	pkgkafka "github.com/shoptrust/reviews/pkg/kafka"
)

// Kafka topic constants for review domain events.
const (
	TopicReviewCreated        = "reviews.review.created"
	TopicReviewUpdated        = "reviews.review.updated"
	TopicReviewDeleted        = "reviews.review.deleted"
	TopicReviewDecided        = "reviews.review.decided"
	TopicMerchantTrustUpdated = "reviews.merchant.trust_updated"
)

// Aggregate type constants.
const (
	AggregateTypeReview   = "review"
	AggregateTypeMerchant = "merchant"
)

// Source identifier for events originating from this service.
const SourceReviewService = "review-service"

// ReviewEventData is the payload for review lifecycle events.
type ReviewEventData struct {
	ID                 string   `json:"id"`
	BuyerID            string   `json:"buyer_id"`
	MerchantID         string   `json:"merchant_id"`
	Rating             int      `json:"rating"`
	ReviewType         string   `json:"review_type"`
	Status             string   `json:"status"`
	IsVerifiedPurchase bool     `json:"is_verified_purchase"`
	ContentFlags       []string `json:"content_flags,omitempty"`
}

// ReviewDecidedData is the payload for a review.decided event.
type ReviewDecidedData struct {
	ID         string `json:"id"`
	MerchantID string `json:"merchant_id"`
	Decision   string `json:"decision"`
	DecidedBy  string `json:"decided_by"`
	NewStatus  string `json:"new_status"`
}

// TrustUpdatedData is the payload for a merchant.trust_updated event,
// carrying the full recomputed summary.
type TrustUpdatedData struct {
	MerchantID  string  `json:"merchant_id"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	TrustGrade  string  `json:"trust_grade"`
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the review service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func reviewData(rev *domain.Review) ReviewEventData {
	return ReviewEventData{
		ID:                 rev.ID.String(),
		BuyerID:            rev.BuyerID.String(),
		MerchantID:         rev.MerchantID.String(),
		Rating:             rev.Rating,
		ReviewType:         string(rev.ReviewType),
		Status:             string(rev.Status),
		IsVerifiedPurchase: rev.IsVerifiedPurchase,
		ContentFlags:       rev.ContentFlags,
	}
}

func (p *Producer) publishReviewEvent(ctx context.Context, topic string, rev *domain.Review) error {
	event, err := pkgkafka.NewEvent(topic, rev.ID.String(), AggregateTypeReview, SourceReviewService, reviewData(rev))
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published review event",
		slog.String("topic", topic),
		slog.String("review_id", rev.ID.String()),
		slog.String("merchant_id", rev.MerchantID.String()),
	)

	return nil
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, rev *domain.Review) error {
	return p.publishReviewEvent(ctx, TopicReviewCreated, rev)
}

// PublishReviewUpdated publishes a review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, rev *domain.Review) error {
	return p.publishReviewEvent(ctx, TopicReviewUpdated, rev)
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, rev *domain.Review) error {
	return p.publishReviewEvent(ctx, TopicReviewDeleted, rev)
}

// PublishReviewDecided publishes a review.decided event with the moderation
// outcome.
func (p *Producer) PublishReviewDecided(ctx context.Context, rev *domain.Review) error {
	if rev.AdminDecision == nil {
		return fmt.Errorf("review %s has no admin decision", rev.ID)
	}

	data := ReviewDecidedData{
		ID:         rev.ID.String(),
		MerchantID: rev.MerchantID.String(),
		Decision:   string(rev.AdminDecision.Decision),
		DecidedBy:  rev.AdminDecision.DecidedBy.String(),
		NewStatus:  string(rev.Status),
	}

	event, err := pkgkafka.NewEvent(TopicReviewDecided, rev.ID.String(), AggregateTypeReview, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create review.decided event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewDecided, event); err != nil {
		return fmt.Errorf("publish review.decided event: %w", err)
	}

	return nil
}

// PublishTrustUpdated publishes a merchant.trust_updated event after a
// summary recomputation, keyed by merchant so consumers see updates in order.
func (p *Producer) PublishTrustUpdated(ctx context.Context, merchantID uuid.UUID, s *domain.TrustSummary) error {
	data := TrustUpdatedData{
		MerchantID:  merchantID.String(),
		Rating:      s.Rating,
		ReviewCount: s.ReviewCount,
		TrustGrade:  string(s.TrustGrade),
	}

	event, err := pkgkafka.NewEvent(TopicMerchantTrustUpdated, merchantID.String(), AggregateTypeMerchant, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create merchant.trust_updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicMerchantTrustUpdated, event); err != nil {
		return fmt.Errorf("publish merchant.trust_updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published merchant.trust_updated event",
		slog.String("merchant_id", merchantID.String()),
		slog.String("trust_grade", string(s.TrustGrade)),
	)

	return nil
}
