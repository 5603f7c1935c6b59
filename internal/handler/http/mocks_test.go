package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LogiScore/backend-sub000/internal/cache"
	"github.com/LogiScore/backend-sub000/internal/domain"
	"github.com/LogiScore/backend-sub000/internal/event"
	"github.com/LogiScore/backend-sub000/internal/sender"
	"github.com/LogiScore/backend-sub000/internal/service"
	apperrors "github.com/LogiScore/backend-sub000/pkg/errors"
	"github.com/LogiScore/backend-sub000/pkg/httputil"
)

// ---------------------------------------------------------------------------
// Mock repositories
// ---------------------------------------------------------------------------

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *domain.Review, scores []domain.CategoryScore) error {
	args := m.Called(ctx, review, scores)
	return args.Error(0)
}

func (m *mockReviewRepo) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepo) ListByProvider(ctx context.Context, providerID string, page, perPage int) ([]domain.Review, int, error) {
	args := m.Called(ctx, providerID, page, perPage)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepo) AggregateRatings(ctx context.Context, providerID string) ([]float64, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

func (m *mockReviewRepo) CategoryScoreRows(ctx context.Context, providerID string) ([]domain.CategoryScoreRow, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CategoryScoreRow), args.Error(1)
}

type mockSubscriptionRepo struct {
	mock.Mock
}

func (m *mockSubscriptionRepo) Create(ctx context.Context, sub *domain.ReviewSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubscriptionRepo) GetByID(ctx context.Context, id string) (*domain.ReviewSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewSubscription), args.Error(1)
}

func (m *mockSubscriptionRepo) ListByUser(ctx context.Context, userID string) ([]domain.ReviewSubscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReviewSubscription), args.Error(1)
}

func (m *mockSubscriptionRepo) ListCandidates(ctx context.Context, providerID string) ([]domain.ReviewSubscription, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReviewSubscription), args.Error(1)
}

func (m *mockSubscriptionRepo) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *mockSubscriptionRepo) UpdateFrequency(ctx context.Context, id, frequency string) error {
	args := m.Called(ctx, id, frequency)
	return args.Error(0)
}

func (m *mockSubscriptionRepo) DeleteCascade(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSubscriptionRepo) DeleteByUserCascade(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Insert(ctx context.Context, n *domain.ReviewNotification) (bool, error) {
	args := m.Called(ctx, n)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotificationRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	args := m.Called(ctx, id, sentAt)
	return args.Error(0)
}

func (m *mockNotificationRepo) PendingDigestEntries(ctx context.Context, frequency string, windowStart time.Time) ([]domain.DigestEntry, error) {
	args := m.Called(ctx, frequency, windowStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DigestEntry), args.Error(1)
}

func (m *mockNotificationRepo) MarkBatchSent(ctx context.Context, ids []string, sentAt time.Time) error {
	args := m.Called(ctx, ids, sentAt)
	return args.Error(0)
}

func (m *mockNotificationRepo) PurgeSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockThresholdRepo struct {
	mock.Mock
}

func (m *mockThresholdRepo) Create(ctx context.Context, sub *domain.ScoreThresholdSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockThresholdRepo) GetByID(ctx context.Context, id string) (*domain.ScoreThresholdSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScoreThresholdSubscription), args.Error(1)
}

func (m *mockThresholdRepo) ListByUser(ctx context.Context, userID string) ([]domain.ScoreThresholdSubscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoreThresholdSubscription), args.Error(1)
}

func (m *mockThresholdRepo) ListActiveByProvider(ctx context.Context, providerID string, now time.Time) ([]domain.ScoreThresholdSubscription, error) {
	args := m.Called(ctx, providerID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoreThresholdSubscription), args.Error(1)
}

func (m *mockThresholdRepo) ProvidersWithActiveSubscriptions(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockThresholdRepo) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *mockThresholdRepo) UpdateLastNotified(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *mockThresholdRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockThresholdRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockThresholdRepo) InsertNotification(ctx context.Context, n *domain.ScoreThresholdNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// ---------------------------------------------------------------------------
// Stub sender
// ---------------------------------------------------------------------------

// stubSender records deliveries; it never fails.
type stubSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *stubSender) Name() string { return "stub" }

func (s *stubSender) Send(_ context.Context, recipient string, _ sender.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, recipient)
	return nil
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// noopProducer creates an event.Producer with no Kafka backend so Publish
// calls are no-ops.
func noopProducer() *event.Producer {
	return event.NewProducer(nil, testLogger())
}

// testDeps bundles the mock repositories behind fully wired services.
type testDeps struct {
	reviews    *mockReviewRepo
	subs       *mockSubscriptionRepo
	ledger     *mockNotificationRepo
	thresholds *mockThresholdRepo

	reviewService *service.ReviewService
	lifecycle     *service.LifecycleService
	monitor       *service.ThresholdMonitor
}

// buildDeps creates real services backed by mock repositories, mirroring the
// production wiring in internal/app.
func buildDeps() *testDeps {
	d := &testDeps{
		reviews:    new(mockReviewRepo),
		subs:       new(mockSubscriptionRepo),
		ledger:     new(mockNotificationRepo),
		thresholds: new(mockThresholdRepo),
	}

	logger := testLogger()
	producer := noopProducer()
	emailSender := &stubSender{}
	scores := cache.NewMemoryScoreCache(5*time.Minute, nil)

	scheduler := service.NewNotificationScheduler(d.subs, d.ledger, d.reviews, emailSender, producer, logger)
	d.monitor = service.NewThresholdMonitor(d.reviews, d.thresholds, scores, emailSender, producer, logger)
	d.reviewService = service.NewReviewService(d.reviews, scheduler, d.monitor, scores, producer, logger)
	d.lifecycle = service.NewLifecycleService(d.subs, d.thresholds, emailSender, logger)
	return d
}

// decodeResponse reads the response body into an httputil.Response.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

// domainNotFound returns the sentinel-wrapping error repositories produce for
// missing rows.
func domainNotFound() error {
	return apperrors.NotFound("resource", "missing")
}

const (
	testUserID      = "550e8400-e29b-41d4-a716-446655440001"
	testForwarderID = "550e8400-e29b-41d4-a716-446655440002"
	testReviewID    = "550e8400-e29b-41d4-a716-446655440003"
	testSubID       = "550e8400-e29b-41d4-a716-446655440004"
)
