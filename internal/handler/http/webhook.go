package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/LogiScore/backend-sub000/internal/service"
	"github.com/LogiScore/backend-sub000/pkg/httputil"
	"github.com/LogiScore/backend-sub000/pkg/validator"
)

// WebhookHandler accepts billing entitlement callbacks over HTTP for
// deployments that do not run the Kafka consumers.
type WebhookHandler struct {
	lifecycle *service.LifecycleService
	logger    *slog.Logger
}

// NewWebhookHandler creates a new webhook HTTP handler.
func NewWebhookHandler(lifecycle *service.LifecycleService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// BillingWebhookRequest is the JSON request body of a billing callback.
type BillingWebhookRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Reason string `json:"reason" validate:"required,oneof=downgrade expiry cancellation"`
}

// HandleBilling handles POST /webhooks/billing
// @Summary Billing entitlement callback
// @Description Removes the user's subscriptions after a downgrade, expiry, or cancellation.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param request body BillingWebhookRequest true "Entitlement change"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /webhooks/billing [post]
func (h *WebhookHandler) HandleBilling(w http.ResponseWriter, r *http.Request) {
	var req BillingWebhookRequest
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

	deleted, ids, err := h.lifecycle.CleanupOnDowngrade(r.Context(), req.UserID, req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"deleted_count": deleted,
		"deleted_ids":   ids,
	}})
}
