package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/LogiScore/backend-sub000/internal/domain"
	"github.com/LogiScore/backend-sub000/pkg/database"
	apperrors "github.com/LogiScore/backend-sub000/pkg/errors"
)

// ThresholdRepository implements score threshold subscription persistence
// using PostgreSQL.
type ThresholdRepository struct {
	pool database.DBTX
}

// NewThresholdRepository creates a PostgreSQL-backed threshold repository.
func NewThresholdRepository(pool database.DBTX) *ThresholdRepository {
	return &ThresholdRepository{pool: pool}
}

const thresholdColumns = `id, user_id, freight_forwarder_id, threshold_score,
	notification_frequency, is_active, expires_at, last_notification_sent,
	created_at, updated_at`

func scanThresholdSub(row pgx.Row) (*domain.ScoreThresholdSubscription, error) {
	var sub domain.ScoreThresholdSubscription
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.FreightForwarderID,
		&sub.ThresholdScore,
		&sub.NotificationFrequency,
		&sub.IsActive,
		&sub.ExpiresAt,
		&sub.LastNotificationSent,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func scanThresholdSubs(rows pgx.Rows) ([]domain.ScoreThresholdSubscription, error) {
	var subs []domain.ScoreThresholdSubscription
	for rows.Next() {
		sub, err := scanThresholdSub(rows)
		if err != nil {
			return nil, fmt.Errorf("scan threshold subscription row: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threshold subscription rows: %w", err)
	}
	return subs, nil
}

// Create inserts a new threshold subscription.
func (r *ThresholdRepository) Create(ctx context.Context, sub *domain.ScoreThresholdSubscription) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO score_threshold_subscriptions (id, user_id, freight_forwarder_id,
		                                           threshold_score, notification_frequency,
		                                           is_active, expires_at, last_notification_sent,
		                                           created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sub.ID,
		sub.UserID,
		sub.FreightForwarderID,
		sub.ThresholdScore,
		sub.NotificationFrequency,
		sub.IsActive,
		sub.ExpiresAt,
		sub.LastNotificationSent,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert threshold subscription: %w", err)
	}
	return nil
}

// GetByID returns a single threshold subscription.
func (r *ThresholdRepository) GetByID(ctx context.Context, id string) (*domain.ScoreThresholdSubscription, error) {
	sub, err := scanThresholdSub(r.pool.QueryRow(ctx,
		`SELECT `+thresholdColumns+` FROM score_threshold_subscriptions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("threshold subscription", id)
		}
		return nil, fmt.Errorf("get threshold subscription: %w", err)
	}
	return sub, nil
}

// ListByUser returns all threshold subscriptions owned by a user.
func (r *ThresholdRepository) ListByUser(ctx context.Context, userID string) ([]domain.ScoreThresholdSubscription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+thresholdColumns+` FROM score_threshold_subscriptions WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list threshold subscriptions by user: %w", err)
	}
	defer rows.Close()

	return scanThresholdSubs(rows)
}

// ListActiveByProvider returns active, unexpired subscriptions for a
// provider. Expiry is applied in the query so lapsed entitlements never
// reach the monitor regardless of the is_active flag.
func (r *ThresholdRepository) ListActiveByProvider(ctx context.Context, providerID string, now time.Time) ([]domain.ScoreThresholdSubscription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+thresholdColumns+`
		FROM score_threshold_subscriptions
		WHERE freight_forwarder_id = $1
		  AND is_active = TRUE
		  AND (expires_at IS NULL OR expires_at >= $2)`,
		providerID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("list active threshold subscriptions: %w", err)
	}
	defer rows.Close()

	return scanThresholdSubs(rows)
}

// ProvidersWithActiveSubscriptions returns the distinct providers that have
// at least one active, unexpired subscription.
func (r *ThresholdRepository) ProvidersWithActiveSubscriptions(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT freight_forwarder_id
		FROM score_threshold_subscriptions
		WHERE is_active = TRUE
		  AND (expires_at IS NULL OR expires_at >= $1)`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("list providers with active subscriptions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan provider id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provider ids: %w", err)
	}

	return ids, nil
}

// SetActive flips the is_active flag.
func (r *ThresholdRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE score_threshold_subscriptions SET is_active = $2, updated_at = $3 WHERE id = $1`,
		id, active, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update threshold subscription active flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("threshold subscription", id)
	}
	return nil
}

// UpdateLastNotified records when the subscriber was last alerted.
func (r *ThresholdRepository) UpdateLastNotified(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE score_threshold_subscriptions SET last_notification_sent = $2, updated_at = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("update last notification time: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("threshold subscription", id)
	}
	return nil
}

// DeactivateExpired flags every active subscription past its expiry as
// inactive. Safe to run repeatedly.
func (r *ThresholdRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE score_threshold_subscriptions
		SET is_active = FALSE, updated_at = $1
		WHERE is_active = TRUE AND expires_at < $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired threshold subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes the subscription and its notification ledger atomically.
func (r *ThresholdRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin threshold delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM score_threshold_notifications WHERE subscription_id = $1`, id); err != nil {
		return fmt.Errorf("delete threshold notifications: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM score_threshold_subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete threshold subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("threshold subscription", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit threshold delete tx: %w", err)
	}
	return nil
}

// InsertNotification appends a breach record to the ledger.
func (r *ThresholdRepository) InsertNotification(ctx context.Context, n *domain.ScoreThresholdNotification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO score_threshold_notifications (id, subscription_id, previous_score,
		                                           current_score, threshold_score, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID,
		n.SubscriptionID,
		n.PreviousScore,
		n.CurrentScore,
		n.ThresholdScore,
		n.SentAt,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert threshold notification: %w", err)
	}
	return nil
}
