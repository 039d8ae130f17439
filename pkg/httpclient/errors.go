package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/shoptrust/reviews/pkg/errors"
)

// DownstreamErrorResponse matches the standard error envelope returned by
// sibling services.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an appropriate AppError. If the body matches the standard error
// envelope, code and message are preserved; otherwise the raw body is
// reported. The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.Dependency(serviceName, fmt.Errorf("status %d (failed to read body: %w)", resp.StatusCode, err))
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(bodyBytes, &downstream) == nil && downstream.Error != nil {
		return mapDownstreamError(resp.StatusCode, downstream.Error.Message, serviceName)
	}

	return mapDownstreamError(resp.StatusCode, string(bodyBytes), serviceName)
}

// mapDownstreamError translates a downstream status code into an AppError
// preserving the error semantics. Anything in the 5xx range means the
// collaborator is unhealthy and becomes a dependency error.
func mapDownstreamError(status int, message, serviceName string) error {
	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(fmt.Sprintf("%s: %s", serviceName, message))
	case status == http.StatusConflict:
		return apperrors.Conflict(fmt.Sprintf("%s: %s", serviceName, message))
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return apperrors.Forbidden(fmt.Sprintf("%s: %s", serviceName, message))
	case status >= 500:
		return apperrors.Dependency(serviceName, fmt.Errorf("status %d: %s", status, message))
	default:
		return apperrors.Dependency(serviceName, fmt.Errorf("unexpected status %d: %s", status, message))
	}
}
