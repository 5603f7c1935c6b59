package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/LogiScore/backend-sub000/internal/service"
	"github.com/LogiScore/backend-sub000/pkg/httputil"
	"github.com/LogiScore/backend-sub000/pkg/validator"
)

// SubscriptionHandler handles HTTP requests for review subscription endpoints.
type SubscriptionHandler struct {
	service *service.LifecycleService
	logger  *slog.Logger
}

// NewSubscriptionHandler creates a new subscription HTTP handler.
func NewSubscriptionHandler(svc *service.LifecycleService, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: svc,
		logger:  logger,
	}
}

// requireUserID extracts and validates the X-User-ID header. Writes a 400 and
// returns false when it is missing or malformed.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "X-User-ID header is required"},
		})
		return "", false
	}
	if _, ok := httputil.ParseUUID(w, userID); !ok {
		return "", false
	}
	return userID, true
}

// --- Request DTOs ---

// CreateSubscriptionRequest is the JSON request body for creating a review
// subscription.
type CreateSubscriptionRequest struct {
	FreightForwarderID    *string `json:"freight_forwarder_id,omitempty"`
	Country               *string `json:"country,omitempty"`
	City                  *string `json:"city,omitempty"`
	ReviewType            *string `json:"review_type,omitempty"`
	NotificationFrequency string  `json:"notification_frequency" validate:"required"`
}

// ToggleSubscriptionRequest is the JSON request body for activating or
// deactivating a subscription.
type ToggleSubscriptionRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// UpdateFrequencyRequest is the JSON request body for changing a
// subscription's notification frequency.
type UpdateFrequencyRequest struct {
	NotificationFrequency string `json:"notification_frequency" validate:"required"`
}

// --- Handlers ---

// CreateSubscription handles POST /api/v1/subscriptions
// @Summary Create a review subscription
// @Description Subscribes the caller to new reviews matching the given filters. All filters nil means every review.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Authenticated user UUID"
// @Param request body CreateSubscriptionRequest true "Subscription filters"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/subscriptions [post]
func (h *SubscriptionHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req CreateSubscriptionRequest
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

	sub, err := h.service.CreateSubscription(r.Context(), service.CreateSubscriptionInput{
		UserID:                userID,
		FreightForwarderID:    req.FreightForwarderID,
		Country:               req.Country,
		City:                  req.City,
		ReviewType:            req.ReviewType,
		NotificationFrequency: req.NotificationFrequency,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: sub})
}

// ListSubscriptions handles GET /api/v1/subscriptions
// @Summary List the caller's review subscriptions
// @Tags subscriptions
// @Produce json
// @Param X-User-ID header string true "Authenticated user UUID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/subscriptions [get]
func (h *SubscriptionHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	subs, err := h.service.ListUserSubscriptions(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: subs})
}

// ToggleSubscription handles PATCH /api/v1/subscriptions/{id}/active
// @Summary Activate or deactivate a review subscription
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Authenticated user UUID"
// @Param id path string true "Subscription UUID"
// @Param request body ToggleSubscriptionRequest true "New state"
// @Success 204
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/subscriptions/{id}/active [patch]
func (h *SubscriptionHandler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req ToggleSubscriptionRequest
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

	if err := h.service.ToggleSubscription(r.Context(), id.String(), userID, *req.IsActive); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateFrequency handles PATCH /api/v1/subscriptions/{id}/frequency
// @Summary Change a review subscription's notification frequency
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Authenticated user UUID"
// @Param id path string true "Subscription UUID"
// @Param request body UpdateFrequencyRequest true "New frequency"
// @Success 204
// @Router /api/v1/subscriptions/{id}/frequency [patch]
func (h *SubscriptionHandler) UpdateFrequency(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateFrequencyRequest
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

	if err := h.service.UpdateSubscriptionFrequency(r.Context(), id.String(), userID, req.NotificationFrequency); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteSubscription handles DELETE /api/v1/subscriptions/{id}
// @Summary Delete a review subscription
// @Description Hard-deletes the subscription and its notification history.
// @Tags subscriptions
// @Produce json
// @Param X-User-ID header string true "Authenticated user UUID"
// @Param id path string true "Subscription UUID"
// @Success 204
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/subscriptions/{id} [delete]
func (h *SubscriptionHandler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteSubscription(r.Context(), id.String(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
