package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/shoptrust/reviews/internal/client"
	"github.com/shoptrust/reviews/internal/domain"
	"github.com/shoptrust/reviews/internal/repository"
)

// --- Mock Review Repository ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, rev *domain.Review) error {
	args := m.Called(ctx, rev)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Update(ctx context.Context, rev *domain.Review) error {
	args := m.Called(ctx, rev)
	return args.Error(0)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) List(ctx context.Context, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *mockReviewRepository) ExistsForBuyerAndMerchant(ctx context.Context, buyerID, merchantID uuid.UUID) (bool, error) {
	args := m.Called(ctx, buyerID, merchantID)
	return args.Bool(0), args.Error(1)
}

func (m *mockReviewRepository) AggregateAdmissible(ctx context.Context, merchantID uuid.UUID, since time.Time) (float64, int, error) {
	args := m.Called(ctx, merchantID, since)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

// --- Mock Summary Repository ---

type mockSummaryRepository struct {
	mock.Mock
}

func (m *mockSummaryRepository) Upsert(ctx context.Context, s *domain.TrustSummary) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockSummaryRepository) GetByMerchantID(ctx context.Context, merchantID uuid.UUID) (*domain.TrustSummary, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrustSummary), args.Error(1)
}

func (m *mockSummaryRepository) StaleMerchantIDs(ctx context.Context, computedBefore time.Time, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, computedBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// --- Mock Summary Cache ---

type mockSummaryCache struct {
	mock.Mock
}

func (m *mockSummaryCache) Get(ctx context.Context, merchantID uuid.UUID) (*domain.TrustSummary, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrustSummary), args.Error(1)
}

func (m *mockSummaryCache) Set(ctx context.Context, s *domain.TrustSummary) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockSummaryCache) Invalidate(ctx context.Context, merchantID uuid.UUID) error {
	args := m.Called(ctx, merchantID)
	return args.Error(0)
}

// --- Mock Collaborator Clients ---

type mockMerchantClient struct {
	mock.Mock
}

func (m *mockMerchantClient) GetMerchant(ctx context.Context, id uuid.UUID) (*client.Merchant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Merchant), args.Error(1)
}

type mockOrderClient struct {
	mock.Mock
}

func (m *mockOrderClient) GetOrder(ctx context.Context, id uuid.UUID) (*client.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Order), args.Error(1)
}

// --- Mock Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishReviewCreated(ctx context.Context, rev *domain.Review) error {
	args := m.Called(ctx, rev)
	return args.Error(0)
}

func (m *mockPublisher) PublishReviewUpdated(ctx context.Context, rev *domain.Review) error {
	args := m.Called(ctx, rev)
	return args.Error(0)
}

func (m *mockPublisher) PublishReviewDeleted(ctx context.Context, rev *domain.Review) error {
	args := m.Called(ctx, rev)
	return args.Error(0)
}

func (m *mockPublisher) PublishReviewDecided(ctx context.Context, rev *domain.Review) error {
	args := m.Called(ctx, rev)
	return args.Error(0)
}

func (m *mockPublisher) PublishTrustUpdated(ctx context.Context, merchantID uuid.UUID, s *domain.TrustSummary) error {
	args := m.Called(ctx, merchantID, s)
	return args.Error(0)
}
