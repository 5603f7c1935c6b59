package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/LogiScore/backend-sub000/internal/domain"
	"github.com/LogiScore/backend-sub000/internal/event"
	"github.com/LogiScore/backend-sub000/internal/sender"
)

// --- Mock Repositories ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review, scores []domain.CategoryScore) error {
	args := m.Called(ctx, review, scores)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) ListByProvider(ctx context.Context, providerID string, page, perPage int) ([]domain.Review, int, error) {
	args := m.Called(ctx, providerID, page, perPage)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) AggregateRatings(ctx context.Context, providerID string) ([]float64, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

func (m *mockReviewRepository) CategoryScoreRows(ctx context.Context, providerID string) ([]domain.CategoryScoreRow, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CategoryScoreRow), args.Error(1)
}

type mockSubscriptionRepository struct {
	mock.Mock
}

func (m *mockSubscriptionRepository) Create(ctx context.Context, sub *domain.ReviewSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubscriptionRepository) GetByID(ctx context.Context, id string) (*domain.ReviewSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewSubscription), args.Error(1)
}

func (m *mockSubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]domain.ReviewSubscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReviewSubscription), args.Error(1)
}

func (m *mockSubscriptionRepository) ListCandidates(ctx context.Context, providerID string) ([]domain.ReviewSubscription, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReviewSubscription), args.Error(1)
}

func (m *mockSubscriptionRepository) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *mockSubscriptionRepository) UpdateFrequency(ctx context.Context, id, frequency string) error {
	args := m.Called(ctx, id, frequency)
	return args.Error(0)
}

func (m *mockSubscriptionRepository) DeleteCascade(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSubscriptionRepository) DeleteByUserCascade(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockNotificationRepository struct {
	mock.Mock
}

func (m *mockNotificationRepository) Insert(ctx context.Context, n *domain.ReviewNotification) (bool, error) {
	args := m.Called(ctx, n)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotificationRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	args := m.Called(ctx, id, sentAt)
	return args.Error(0)
}

func (m *mockNotificationRepository) PendingDigestEntries(ctx context.Context, frequency string, windowStart time.Time) ([]domain.DigestEntry, error) {
	args := m.Called(ctx, frequency, windowStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DigestEntry), args.Error(1)
}

func (m *mockNotificationRepository) MarkBatchSent(ctx context.Context, ids []string, sentAt time.Time) error {
	args := m.Called(ctx, ids, sentAt)
	return args.Error(0)
}

func (m *mockNotificationRepository) PurgeSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockThresholdRepository struct {
	mock.Mock
}

func (m *mockThresholdRepository) Create(ctx context.Context, sub *domain.ScoreThresholdSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockThresholdRepository) GetByID(ctx context.Context, id string) (*domain.ScoreThresholdSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScoreThresholdSubscription), args.Error(1)
}

func (m *mockThresholdRepository) ListByUser(ctx context.Context, userID string) ([]domain.ScoreThresholdSubscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoreThresholdSubscription), args.Error(1)
}

func (m *mockThresholdRepository) ListActiveByProvider(ctx context.Context, providerID string, now time.Time) ([]domain.ScoreThresholdSubscription, error) {
	args := m.Called(ctx, providerID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoreThresholdSubscription), args.Error(1)
}

func (m *mockThresholdRepository) ProvidersWithActiveSubscriptions(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockThresholdRepository) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *mockThresholdRepository) UpdateLastNotified(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *mockThresholdRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockThresholdRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockThresholdRepository) InsertNotification(ctx context.Context, n *domain.ScoreThresholdNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// --- Fake Sender ---

// sentMessage records one delivery attempt made through the fake sender.
type sentMessage struct {
	Recipient string
	Payload   sender.Payload
}

// fakeSender records every send and can be told to fail for specific
// recipients.
type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: make(map[string]error)}
}

func (s *fakeSender) Name() string { return "fake" }

func (s *fakeSender) Send(_ context.Context, recipient string, payload sender.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[recipient]; ok {
		return err
	}
	s.sent = append(s.sent, sentMessage{Recipient: recipient, Payload: payload})
	return nil
}

func (s *fakeSender) sentTo(recipient string) []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentMessage
	for _, m := range s.sent {
		if m.Recipient == recipient {
			out = append(out, m)
		}
	}
	return out
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestProducer returns an event producer with no Kafka backend; every
// publish is a no-op.
func newTestProducer() *event.Producer {
	return event.NewProducer(nil, newTestLogger())
}

func strPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}

var testNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
