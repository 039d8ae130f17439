package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shoptrust/reviews/internal/domain"
	"github.com/shoptrust/reviews/internal/evidence"
	"github.com/shoptrust/reviews/internal/repository"
	"github.com/shoptrust/reviews/internal/service"
	"github.com/shoptrust/reviews/pkg/httputil"
	"github.com/shoptrust/reviews/pkg/middleware"
	"github.com/shoptrust/reviews/pkg/validator"
)

// evidenceBodyLimit allows up to 5 base64-encoded 10MB photos plus overhead.
const evidenceBodyLimit = 72 << 20

// ReviewHandler handles HTTP requests for the public review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// EvidenceRequest is the JSON shape of an evidence bundle: photos as base64
// data URIs plus the external order number.
type EvidenceRequest struct {
	Photos      []string `json:"photos" validate:"omitempty,max=5"`
	OrderNumber string   `json:"order_number"`
	ChatLog     string   `json:"chat_log"`
}

// SubmitReviewRequest is the JSON request body for creating a review.
type SubmitReviewRequest struct {
	MerchantID string           `json:"merchant_id" validate:"required,uuid"`
	Rating     int              `json:"rating" validate:"required,gte=1,lte=5"`
	Comment    string           `json:"comment" validate:"required,min=10,max=1000"`
	OrderID    string           `json:"order_id" validate:"omitempty,uuid"`
	Evidence   *EvidenceRequest `json:"evidence"`
}

// EditReviewRequest is the JSON request body for a buyer edit. Absent fields
// leave the stored values untouched.
type EditReviewRequest struct {
	Rating   *int             `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Comment  *string          `json:"comment" validate:"omitempty,min=10,max=1000"`
	Evidence *EvidenceRequest `json:"evidence"`
}

// --- Response DTOs ---

// ReviewResponse is the public JSON shape of a review. Evidence payloads and
// moderation metadata stay off the public surface; the evidence endpoint and
// the admin surface expose them to authorized callers.
type ReviewResponse struct {
	ID                 uuid.UUID  `json:"id"`
	BuyerDisplayName   string     `json:"buyer_display_name,omitempty"`
	MerchantID         uuid.UUID  `json:"merchant_id"`
	Rating             int        `json:"rating"`
	Comment            string     `json:"comment"`
	ReviewType         string     `json:"review_type"`
	Status             string     `json:"status"`
	IsVerifiedPurchase bool       `json:"is_verified_purchase"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	HasEvidence        bool       `json:"has_evidence"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toReviewResponse(rev *domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:                 rev.ID,
		BuyerDisplayName:   rev.BuyerDisplayName,
		MerchantID:         rev.MerchantID,
		Rating:             rev.Rating,
		Comment:            rev.Comment,
		ReviewType:         string(rev.ReviewType),
		Status:             string(rev.Status),
		IsVerifiedPurchase: rev.IsVerifiedPurchase,
		VerifiedAt:         rev.VerifiedAt,
		HasEvidence:        rev.Evidence != nil,
		CreatedAt:          rev.CreatedAt,
		UpdatedAt:          rev.UpdatedAt,
	}
}

func toReviewResponses(revs []domain.Review) []ReviewResponse {
	out := make([]ReviewResponse, len(revs))
	for i := range revs {
		out[i] = toReviewResponse(&revs[i])
	}
	return out
}

// EvidenceResponse is the evidence bundle as returned to the owner or an
// admin, including the decision metadata moderators need.
type EvidenceResponse struct {
	Evidence      *domain.Evidence      `json:"evidence"`
	Status        string                `json:"status"`
	AdminDecision *domain.AdminDecision `json:"admin_decision,omitempty"`
}

func toPhotos(reqs []string) []evidence.Photo {
	photos := make([]evidence.Photo, len(reqs))
	for i, p := range reqs {
		photos[i] = evidence.Photo{DataURI: p}
	}
	return photos
}

// --- Handlers ---

// Submit handles POST /api/v1/reviews
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, evidenceBodyLimit)

	var req SubmitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	buyerID, ok := callerID(w, r)
	if !ok {
		return
	}

	merchantID, ok := httputil.ParseUUID(w, req.MerchantID)
	if !ok {
		return
	}

	input := service.SubmitReviewInput{
		BuyerID:    buyerID,
		BuyerName:  middleware.UserNameFromContext(r.Context()),
		MerchantID: merchantID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}

	if req.OrderID != "" {
		orderID, ok := httputil.ParseUUID(w, req.OrderID)
		if !ok {
			return
		}
		input.OrderID = &orderID
	}

	if req.Evidence != nil {
		input.Photos = toPhotos(req.Evidence.Photos)
		input.OrderNumber = req.Evidence.OrderNumber
		input.ChatLog = req.Evidence.ChatLog
	}

	rev, err := h.service.SubmitReview(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: toReviewResponse(rev)})
}

// List handles GET /api/v1/reviews
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseListFilter(w, r, false)
	if !ok {
		return
	}

	reviews, total, err := h.service.ListReviews(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK,
		httputil.NewPaginatedResponse(toReviewResponses(reviews), total, filter.Page, filter.PerPage))
}

// Get handles GET /api/v1/reviews/{id}
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	rev, err := h.service.GetReview(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toReviewResponse(rev)})
}

// Update handles PUT /api/v1/reviews/{id}
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, evidenceBodyLimit)

	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req EditReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	buyerID, ok := callerID(w, r)
	if !ok {
		return
	}

	input := service.EditReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	if req.Evidence != nil {
		// Absent bundle fields stay untouched: photos only replace the
		// stored set when at least one is sent, and empty strings are
		// treated as not provided.
		if len(req.Evidence.Photos) > 0 {
			input.Photos = toPhotos(req.Evidence.Photos)
		}
		if req.Evidence.OrderNumber != "" {
			input.OrderNumber = &req.Evidence.OrderNumber
		}
		if req.Evidence.ChatLog != "" {
			input.ChatLog = &req.Evidence.ChatLog
		}
	}

	rev, err := h.service.EditReview(r.Context(), id, buyerID, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toReviewResponse(rev)})
}

// Delete handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	buyerID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteReview(r.Context(), id, buyerID, middleware.IsAdmin(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AttachEvidence handles POST /api/v1/reviews/{id}/evidence
func (h *ReviewHandler) AttachEvidence(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, evidenceBodyLimit)

	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req EvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	buyerID, ok := callerID(w, r)
	if !ok {
		return
	}

	rev, err := h.service.AttachEvidence(r.Context(), id, buyerID, toPhotos(req.Photos), req.OrderNumber, req.ChatLog)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toReviewResponse(rev)})
}

// GetEvidence handles GET /api/v1/reviews/{id}/evidence
func (h *ReviewHandler) GetEvidence(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	buyerID, ok := callerID(w, r)
	if !ok {
		return
	}

	rev, err := h.service.GetEvidence(r.Context(), id, buyerID, middleware.IsAdmin(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: EvidenceResponse{
		Evidence:      rev.Evidence,
		Status:        string(rev.Status),
		AdminDecision: rev.AdminDecision,
	}})
}

// MerchantTrust handles GET /api/v1/merchants/{id}/trust
func (h *ReviewHandler) MerchantTrust(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	summary, err := h.service.TrustSummary(r.Context(), merchantID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: summary})
}

// --- Helpers ---

// callerID extracts the authenticated buyer ID from the request context.
func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "missing caller identity"},
		})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "malformed caller identity"},
		})
		return uuid.Nil, false
	}
	return id, true
}

// parseListFilter parses shared list query parameters. The admin variant
// additionally honors status, review_type, and flagged filters.
func parseListFilter(w http.ResponseWriter, r *http.Request, admin bool) (repository.ReviewFilter, bool) {
	filter := repository.ReviewFilter{Page: 1, PerPage: 20}
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			writeBadParam(w, "page must be a valid positive integer")
			return filter, false
		}
		filter.Page = page
	}
	if v := q.Get("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil || perPage < 1 || perPage > 100 {
			writeBadParam(w, "per_page must be between 1 and 100")
			return filter, false
		}
		filter.PerPage = perPage
	}
	if v := q.Get("merchant_id"); v != "" {
		id, ok := httputil.ParseUUID(w, v)
		if !ok {
			return filter, false
		}
		filter.MerchantID = &id
	}
	if v := q.Get("buyer_id"); v != "" {
		id, ok := httputil.ParseUUID(w, v)
		if !ok {
			return filter, false
		}
		filter.BuyerID = &id
	}
	if v := q.Get("search"); v != "" {
		filter.Search = &v
	}

	if !admin {
		return filter, true
	}

	if v := q.Get("status"); v != "" {
		status := domain.ReviewStatus(v)
		switch status {
		case domain.StatusPending, domain.StatusApproved, domain.StatusRejected, domain.StatusPublished:
			filter.Status = &status
		default:
			writeBadParam(w, "status must be one of pending, approved, rejected, published")
			return filter, false
		}
	}
	if v := q.Get("review_type"); v != "" {
		rt := domain.ReviewType(v)
		switch rt {
		case domain.TypeVerified, domain.TypeImported, domain.TypeUnverified:
			filter.ReviewType = &rt
		default:
			writeBadParam(w, "review_type must be one of verified, imported, unverified")
			return filter, false
		}
	}
	if v := q.Get("flagged"); v != "" {
		flagged, err := strconv.ParseBool(v)
		if err != nil {
			writeBadParam(w, "flagged must be a boolean")
			return filter, false
		}
		filter.Flagged = &flagged
	}

	return filter, true
}

func writeBadParam(w http.ResponseWriter, msg string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: msg},
	})
}
