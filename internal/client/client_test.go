package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/shoptrust/reviews/pkg/errors"
	"github.com/shoptrust/reviews/pkg/httpclient"
)

// plainDoer executes requests without retry so tests observe single calls.
type plainDoer struct{}

func (plainDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return http.DefaultClient.Do(req.WithContext(ctx))
}

func TestGetMerchant(t *testing.T) {
	merchantID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/merchants/"+merchantID.String(), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":{"id":%q,"name":"Acme Shop","industry":"ecig","active":true}}`, merchantID)
	}))
	defer srv.Close()

	c := NewMerchantClient(srv.URL, plainDoer{})
	m, err := c.GetMerchant(context.Background(), merchantID)
	require.NoError(t, err)
	assert.Equal(t, merchantID, m.ID)
	assert.Equal(t, "Acme Shop", m.Name)
	assert.Equal(t, "ecig", m.Industry)
	assert.True(t, m.Active)
}

func TestGetMerchantNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":"NOT_FOUND","message":"merchant not found"}}`)
	}))
	defer srv.Close()

	c := NewMerchantClient(srv.URL, plainDoer{})
	_, err := c.GetMerchant(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestGetMerchantServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewMerchantClient(srv.URL, plainDoer{})
	_, err := c.GetMerchant(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDependency))
}

func TestGetMerchantUnreachable(t *testing.T) {
	c := NewMerchantClient("http://127.0.0.1:1", plainDoer{})
	_, err := c.GetMerchant(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDependency))
}

func TestGetOrder(t *testing.T) {
	orderID := uuid.New()
	buyerID := uuid.New()
	merchantID := uuid.New()
	createdAt := time.Now().UTC().Add(-24 * time.Hour).Truncate(time.Second)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/orders/"+orderID.String(), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":{"id":%q,"user_id":%q,"merchant_id":%q,"status":"delivered","created_at":%q}}`,
			orderID, buyerID, merchantID, createdAt.Format(time.RFC3339))
	}))
	defer srv.Close()

	c := NewOrderClient(srv.URL, plainDoer{})
	o, err := c.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, orderID, o.ID)
	assert.Equal(t, buyerID, o.BuyerID)
	assert.Equal(t, merchantID, o.MerchantID)
	assert.Equal(t, "delivered", o.Status)
	assert.True(t, o.CreatedAt.Equal(createdAt))
}

func TestGetOrderNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":"NOT_FOUND","message":"order not found"}}`)
	}))
	defer srv.Close()

	c := NewOrderClient(srv.URL, plainDoer{})
	_, err := c.GetOrder(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

// Compile-time checks that the HTTP implementations satisfy the interfaces
// and that the production Doer types plug in.
var (
	_ MerchantClient  = (*HTTPMerchantClient)(nil)
	_ OrderClient     = (*HTTPOrderClient)(nil)
	_ httpclient.Doer = (*httpclient.Client)(nil)
	_ httpclient.Doer = (*httpclient.CircuitBreakerClient)(nil)
)
