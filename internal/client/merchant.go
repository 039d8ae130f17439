// Package client holds the HTTP clients for the external collaborators this
// engine consumes: the merchant service and the order service.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/shoptrust/reviews/pkg/errors"
	"github.com/shoptrust/reviews/pkg/httpclient"
)

// Merchant is the subset of the merchant record this engine needs.
type Merchant struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Industry string    `json:"industry,omitempty"`
	Active   bool      `json:"active"`
}

// MerchantClient looks up merchants in the merchant service.
type MerchantClient interface {
	GetMerchant(ctx context.Context, id uuid.UUID) (*Merchant, error)
}

// HTTPMerchantClient is the MerchantClient backed by the merchant service's
// HTTP API.
type HTTPMerchantClient struct {
	baseURL string
	doer    httpclient.Doer
}

// NewMerchantClient creates a merchant service client.
func NewMerchantClient(baseURL string, doer httpclient.Doer) *HTTPMerchantClient {
	return &HTTPMerchantClient{baseURL: baseURL, doer: doer}
}

// GetMerchant fetches a merchant by ID. Returns ErrNotFound when the merchant
// does not exist and a dependency error when the service is unreachable.
func (c *HTTPMerchantClient) GetMerchant(ctx context.Context, id uuid.UUID) (*Merchant, error) {
	url := fmt.Sprintf("%s/api/v1/merchants/%s", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create merchant request: %w", err)
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, apperrors.Dependency("merchant-service", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "merchant-service")
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope struct {
		Data Merchant `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, apperrors.Dependency("merchant-service", fmt.Errorf("decode response: %w", err))
	}

	return &envelope.Data, nil
}
