package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/shoptrust/reviews/pkg/errors"
	"github.com/shoptrust/reviews/pkg/httpclient"
)

// Order is the subset of the order record consulted during purchase
// verification.
type Order struct {
	ID         uuid.UUID `json:"id"`
	BuyerID    uuid.UUID `json:"user_id"`
	MerchantID uuid.UUID `json:"merchant_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderClient looks up orders in the order service.
type OrderClient interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
}

// HTTPOrderClient is the OrderClient backed by the order service's HTTP API.
type HTTPOrderClient struct {
	baseURL string
	doer    httpclient.Doer
}

// NewOrderClient creates an order service client.
func NewOrderClient(baseURL string, doer httpclient.Doer) *HTTPOrderClient {
	return &HTTPOrderClient{baseURL: baseURL, doer: doer}
}

// GetOrder fetches an order by ID. Returns ErrNotFound when the order does
// not exist and a dependency error when the service is unreachable.
func (c *HTTPOrderClient) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	url := fmt.Sprintf("%s/api/v1/orders/%s", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create order request: %w", err)
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, apperrors.Dependency("order-service", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "order-service")
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope struct {
		Data Order `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, apperrors.Dependency("order-service", fmt.Errorf("decode response: %w", err))
	}

	return &envelope.Data, nil
}
