package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shoptrust/reviews/internal/domain"
	"github.com/shoptrust/reviews/internal/service"
	"github.com/shoptrust/reviews/pkg/httputil"
	"github.com/shoptrust/reviews/pkg/validator"
)

// AdminHandler handles HTTP requests for the moderation surface.
type AdminHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(svc *service.ReviewService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service: svc,
		logger:  logger,
	}
}

// DecisionRequest is the JSON request body for an admin decision.
type DecisionRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// ListAll handles GET /api/v1/admin/reviews
func (h *AdminHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseListFilter(w, r, true)
	if !ok {
		return
	}

	reviews, total, err := h.service.ListReviews(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// Admins see the full documents, moderation metadata included.
	httputil.WriteJSON(w, http.StatusOK,
		httputil.NewPaginatedResponse(reviews, total, filter.Page, filter.PerPage))
}

// ListPending handles GET /api/v1/admin/reviews/pending
func (h *AdminHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	page, perPage := 1, 20
	if v := r.URL.Query().Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			writeBadParam(w, "page must be a valid positive integer")
			return
		}
		page = p
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 || p > 100 {
			writeBadParam(w, "per_page must be between 1 and 100")
			return
		}
		perPage = p
	}

	reviews, total, err := h.service.ListPending(r.Context(), page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(reviews, total, page, perPage))
}

// Decide handles POST /api/v1/admin/reviews/{id}/decision
func (h *AdminHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req DecisionRequest
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

	adminID, ok := callerID(w, r)
	if !ok {
		return
	}

	rev, err := h.service.Decide(r.Context(), id, adminID, domain.AdminDecisionAction(req.Action), req.Notes)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: rev})
}

// Delete handles DELETE /api/v1/admin/reviews/{id}
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	adminID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteReview(r.Context(), id, adminID, true); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
