package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/LogiScore/backend-sub000/internal/service"
	"github.com/LogiScore/backend-sub000/pkg/httputil"
	"github.com/LogiScore/backend-sub000/pkg/validator"
)

// ThresholdHandler handles HTTP requests for score threshold subscription
// endpoints. Entitlement context arrives in the X-User-Tier and
// X-Entitlement-End headers, set by the gateway from the billing service.
type ThresholdHandler struct {
	service *service.LifecycleService
	monitor *service.ThresholdMonitor
	logger  *slog.Logger
}

// NewThresholdHandler creates a new threshold subscription HTTP handler.
func NewThresholdHandler(svc *service.LifecycleService, monitor *service.ThresholdMonitor, logger *slog.Logger) *ThresholdHandler {
	return &ThresholdHandler{
		service: svc,
		monitor: monitor,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateThresholdSubscriptionRequest is the JSON request body for creating a
// score threshold subscription.
type CreateThresholdSubscriptionRequest struct {
	FreightForwarderID    string  `json:"freight_forwarder_id" validate:"required,uuid"`
	ThresholdScore        float64 `json:"threshold_score" validate:"gte=0,lte=5"`
	NotificationFrequency string  `json:"notification_frequency" validate:"required"`
}

// --- Handlers ---

// CreateThresholdSubscription handles POST /api/v1/threshold-subscriptions
// @Summary Create a score threshold subscription
// @Description Alerts the caller when the forwarder's average drops below the threshold. Requires an annual tier.
// @Tags thresholds
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Authenticated user UUID"
// @Param X-User-Tier header string true "Caller's billing tier"
// @Param X-Entitlement-End header string false "Entitlement end (RFC 3339)"
// @Param request body CreateThresholdSubscriptionRequest true "Threshold subscription"
// @Success 201 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/threshold-subscriptions [post]
func (h *ThresholdHandler) CreateThresholdSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req CreateThresholdSubscriptionRequest
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

	input := service.CreateThresholdSubscriptionInput{
		UserID:                userID,
		FreightForwarderID:    req.FreightForwarderID,
		ThresholdScore:        req.ThresholdScore,
		NotificationFrequency: req.NotificationFrequency,
		UserTier:              r.Header.Get("X-User-Tier"),
	}
	if v := r.Header.Get("X-Entitlement-End"); v != "" {
		end, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "X-Entitlement-End must be RFC 3339"},
			})
			return
		}
		input.EntitlementEnd = &end
	}

	sub, err := h.service.CreateThresholdSubscription(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: sub})
}

// ListThresholdSubscriptions handles GET /api/v1/threshold-subscriptions
// @Summary List the caller's score threshold subscriptions
// @Tags thresholds
// @Produce json
// @Param X-User-ID header string true "Authenticated user UUID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/threshold-subscriptions [get]
func (h *ThresholdHandler) ListThresholdSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	subs, err := h.service.ListUserThresholdSubscriptions(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: subs})
}

// ToggleThresholdSubscription handles PATCH /api/v1/threshold-subscriptions/{id}/active
// @Summary Activate or deactivate a threshold subscription
// @Description Reactivating an expired subscription is rejected.
// @Tags thresholds
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Authenticated user UUID"
// @Param id path string true "Subscription UUID"
// @Param request body ToggleSubscriptionRequest true "New state"
// @Success 204
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/threshold-subscriptions/{id}/active [patch]
func (h *ThresholdHandler) ToggleThresholdSubscription(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.ToggleThresholdSubscription(r.Context(), id.String(), userID, *req.IsActive); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteThresholdSubscription handles DELETE /api/v1/threshold-subscriptions/{id}
// @Summary Delete a threshold subscription
// @Tags thresholds
// @Produce json
// @Param X-User-ID header string true "Authenticated user UUID"
// @Param id path string true "Subscription UUID"
// @Success 204
// @Router /api/v1/threshold-subscriptions/{id} [delete]
func (h *ThresholdHandler) DeleteThresholdSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteThresholdSubscription(r.Context(), id.String(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetProviderScore handles GET /api/v1/forwarders/{forwarderId}/score
// @Summary Get a freight forwarder's current rolling average
// @Tags thresholds
// @Produce json
// @Param forwarderId path string true "Freight forwarder UUID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/forwarders/{forwarderId}/score [get]
func (h *ThresholdHandler) GetProviderScore(w http.ResponseWriter, r *http.Request) {
	forwarderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "forwarderId"))
	if !ok {
		return
	}

	score, err := h.monitor.ProviderScore(r.Context(), forwarderID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"freight_forwarder_id": forwarderID.String(),
		"average_rating":       score,
	}})
}
