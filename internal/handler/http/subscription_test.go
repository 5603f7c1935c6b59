package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LogiScore/backend-sub000/internal/domain"
)

// setupSubscriptionRouter mounts subscription routes on a chi router,
// mirroring the production router layout.
func setupSubscriptionRouter(d *testDeps) *chi.Mux {
	h := NewSubscriptionHandler(d.lifecycle, testLogger())
	r := chi.NewRouter()
	r.Route("/api/v1/subscriptions", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Post("/", h.CreateSubscription)
		r.Get("/", h.ListSubscriptions)
		r.Patch("/{id}/active", h.ToggleSubscription)
		r.Patch("/{id}/frequency", h.UpdateFrequency)
		r.Delete("/{id}", h.DeleteSubscription)
	})
	return r
}

func subscriptionJSON(frequency string) []byte {
	country := "Germany"
	body := CreateSubscriptionRequest{
		Country:               &country,
		NotificationFrequency: frequency,
	}
	b, _ := json.Marshal(body)
	return b
}

// ============================================================================
// POST /api/v1/subscriptions -- CreateSubscription
// ============================================================================

func TestCreateSubscriptionHandler_Success(t *testing.T) {
	d := buildDeps()
	router := setupSubscriptionRouter(d)

	d.subs.On("Create", mock.Anything, mock.AnythingOfType("*domain.ReviewSubscription")).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/", bytes.NewReader(subscriptionJSON("daily")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", testUserID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)

	data := resp.Data.(map[string]any)
	assert.Equal(t, testUserID, data["user_id"])
	assert.Equal(t, true, data["is_active"])
	d.subs.AssertExpectations(t)
}

func TestCreateSubscriptionHandler_MissingUserHeader(t *testing.T) {
	d := buildDeps()
	router := setupSubscriptionRouter(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/", bytes.NewReader(subscriptionJSON("daily")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "X-User-ID")
	d.subs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateSubscriptionHandler_InvalidFrequency(t *testing.T) {
	d := buildDeps()
	router := setupSubscriptionRouter(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/", bytes.NewReader(subscriptionJSON("hourly")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", testUserID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

// ============================================================================
// GET /api/v1/subscriptions -- ListSubscriptions
// ============================================================================

func TestListSubscriptionsHandler_Success(t *testing.T) {
	d := buildDeps()
	router := setupSubscriptionRouter(d)

	d.subs.On("ListByUser", mock.Anything, testUserID).Return([]domain.ReviewSubscription{
		{ID: testSubID, UserID: testUserID, NotificationFrequency: domain.FrequencyDaily, IsActive: true},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/", nil)
	req.Header.Set("X-User-ID", testUserID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Data)
	assert.Len(t, resp.Data.([]any), 1)
}

// ============================================================================
// PATCH /api/v1/subscriptions/{id}/active -- ToggleSubscription
// ============================================================================

func TestToggleSubscriptionHandler_Success(t *testing.T) {
	d := buildDeps()
	router := setupSubscriptionRouter(d)

	d.subs.On("GetByID", mock.Anything, testSubID).Return(&domain.ReviewSubscription{
		ID: testSubID, UserID: testUserID,
	}, nil)
	d.subs.On("SetActive", mock.Anything, testSubID, false).Return(nil)

	body := []byte(`{"is_active": false}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/subscriptions/"+testSubID+"/active", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", testUserID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	d.subs.AssertExpectations(t)
}

func TestToggleSubscriptionHandler_MissingIsActive(t *testing.T) {
	d := buildDeps()
	router := setupSubscriptionRouter(d)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/subscriptions/"+testSubID+"/active", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", testUserID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	d.subs.AssertNotCalled(t, "SetActive", mock.Anything, mock.Anything, mock.Anything)
}

func TestToggleSubscriptionHandler_OtherUserForbidden(t *testing.T) {
	d := buildDeps()
	router := setupSubscriptionRouter(d)

	d.subs.On("GetByID", mock.Anything, testSubID).Return(&domain.ReviewSubscription{
		ID: testSubID, UserID: testForwarderID,
	}, nil)

	body := []byte(`{"is_active": false}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/subscriptions/"+testSubID+"/active", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", testUserID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)
}

// ============================================================================
// PATCH /api/v1/subscriptions/{id}/frequency -- UpdateFrequency
// ============================================================================

func TestUpdateFrequencyHandler_Success(t *testing.T) {
	d := buildDeps()
	router := setupSubscriptionRouter(d)

	d.subs.On("GetByID", mock.Anything, testSubID).Return(&domain.ReviewSubscription{
		ID: testSubID, UserID: testUserID,
	}, nil)
	d.subs.On("UpdateFrequency", mock.Anything, testSubID, domain.FrequencyWeekly).Return(nil)

	body := []byte(`{"notification_frequency": "weekly"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/subscriptions/"+testSubID+"/frequency", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", testUserID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	d.subs.AssertExpectations(t)
}

// ============================================================================
// DELETE /api/v1/subscriptions/{id} -- DeleteSubscription
// ============================================================================

func TestDeleteSubscriptionHandler_Success(t *testing.T) {
	d := buildDeps()
	router := setupSubscriptionRouter(d)

	d.subs.On("GetByID", mock.Anything, testSubID).Return(&domain.ReviewSubscription{
		ID: testSubID, UserID: testUserID,
	}, nil)
	d.subs.On("DeleteCascade", mock.Anything, testSubID).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/subscriptions/"+testSubID, nil)
	req.Header.Set("X-User-ID", testUserID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	d.subs.AssertExpectations(t)
}

func TestDeleteSubscriptionHandler_NotFound(t *testing.T) {
	d := buildDeps()
	router := setupSubscriptionRouter(d)

	d.subs.On("GetByID", mock.Anything, testSubID).Return(nil, domainNotFound())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/subscriptions/"+testSubID, nil)
	req.Header.Set("X-User-ID", testUserID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
