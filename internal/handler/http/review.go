package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/LogiScore/backend-sub000/internal/service"
	"github.com/LogiScore/backend-sub000/pkg/httputil"
	"github.com/LogiScore/backend-sub000/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
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

// CategoryScoreRequest is one answered question inside a review submission.
type CategoryScoreRequest struct {
	CategoryID       string  `json:"category_id" validate:"required"`
	CategoryName     string  `json:"category_name" validate:"required"`
	QuestionID       string  `json:"question_id" validate:"required"`
	QuestionText     string  `json:"question_text"`
	Rating           int     `json:"rating" validate:"gte=0,lte=5"`
	Weight           float64 `json:"weight"`
	RatingDefinition string  `json:"rating_definition"`
}

// CreateReviewRequest is the JSON request body for submitting a review.
type CreateReviewRequest struct {
	FreightForwarderID string                 `json:"freight_forwarder_id" validate:"required,uuid"`
	Country            string                 `json:"country" validate:"required"`
	City               string                 `json:"city" validate:"required"`
	ReviewType         string                 `json:"review_type"`
	IsAnonymous        bool                   `json:"is_anonymous"`
	CategoryScores     []CategoryScoreRequest `json:"category_scores" validate:"required,min=1,dive"`
}

// --- Handlers ---

// CreateReview handles POST /api/v1/reviews
// @Summary Submit a review
// @Description Scores and stores a freight forwarder review and triggers subscriber notifications. Anonymous when X-User-ID is absent.
// @Tags reviews
// @Accept json
// @Produce json
// @Param X-User-ID header string false "Authenticated user UUID"
// @Param request body CreateReviewRequest true "Review to submit"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/reviews [post]
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateReviewRequest
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

	input := service.CreateReviewInput{
		FreightForwarderID: req.FreightForwarderID,
		Country:            req.Country,
		City:               req.City,
		ReviewType:         req.ReviewType,
		IsAnonymous:        req.IsAnonymous,
		CategoryScores:     make([]service.CategoryScoreInput, len(req.CategoryScores)),
	}
	for i, cs := range req.CategoryScores {
		input.CategoryScores[i] = service.CategoryScoreInput{
			CategoryID:       cs.CategoryID,
			CategoryName:     cs.CategoryName,
			QuestionID:       cs.QuestionID,
			QuestionText:     cs.QuestionText,
			Rating:           cs.Rating,
			Weight:           cs.Weight,
			RatingDefinition: cs.RatingDefinition,
		}
	}

	if userID := r.Header.Get("X-User-ID"); userID != "" {
		if _, ok := httputil.ParseUUID(w, userID); !ok {
			return
		}
		input.UserID = &userID
	}

	review, err := h.service.CreateReview(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// GetReview handles GET /api/v1/reviews/{id}
// @Summary Get a review
// @Tags reviews
// @Produce json
// @Param id path string true "Review UUID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/reviews/{id} [get]
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	review, err := h.service.GetReview(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// ListProviderReviews handles GET /api/v1/forwarders/{forwarderId}/reviews
// @Summary List a freight forwarder's reviews
// @Tags reviews
// @Produce json
// @Param forwarderId path string true "Freight forwarder UUID"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page (max 100)" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/forwarders/{forwarderId}/reviews [get]
func (h *ReviewHandler) ListProviderReviews(w http.ResponseWriter, r *http.Request) {
	forwarderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "forwarderId"))
	if !ok {
		return
	}

	page := 1
	perPage := 20

	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if pp, err := strconv.Atoi(v); err == nil && pp > 0 && pp <= 100 {
			perPage = pp
		}
	}

	reviews, total, err := h.service.ListProviderReviews(r.Context(), forwarderID.String(), page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(reviews, total, page, perPage))
}

// GetScoreSummary handles GET /api/v1/forwarders/{forwarderId}/score-summary
// @Summary Get a freight forwarder's score summary
// @Description Returns the rolling average and per-category weighted rollup.
// @Tags reviews
// @Produce json
// @Param forwarderId path string true "Freight forwarder UUID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/forwarders/{forwarderId}/score-summary [get]
func (h *ReviewHandler) GetScoreSummary(w http.ResponseWriter, r *http.Request) {
	forwarderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "forwarderId"))
	if !ok {
		return
	}

	summary, err := h.service.GetScoreSummary(r.Context(), forwarderID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: summary})
}
