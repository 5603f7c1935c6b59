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

// SubscriptionRepository implements review subscription persistence using
// PostgreSQL.
type SubscriptionRepository struct {
	pool database.DBTX
}

// NewSubscriptionRepository creates a PostgreSQL-backed subscription
// repository.
func NewSubscriptionRepository(pool database.DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

const subscriptionColumns = `id, user_id, freight_forwarder_id, country, city, review_type,
	notification_frequency, is_active, created_at, updated_at`

func scanSubscription(row pgx.Row) (*domain.ReviewSubscription, error) {
	var sub domain.ReviewSubscription
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.FreightForwarderID,
		&sub.Country,
		&sub.City,
		&sub.ReviewType,
		&sub.NotificationFrequency,
		&sub.IsActive,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func scanSubscriptions(rows pgx.Rows) ([]domain.ReviewSubscription, error) {
	var subs []domain.ReviewSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription row: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscription rows: %w", err)
	}
	return subs, nil
}

// Create inserts a new subscription.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.ReviewSubscription) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO review_subscriptions (id, user_id, freight_forwarder_id, country, city,
		                                  review_type, notification_frequency, is_active,
		                                  created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sub.ID,
		sub.UserID,
		sub.FreightForwarderID,
		sub.Country,
		sub.City,
		sub.ReviewType,
		sub.NotificationFrequency,
		sub.IsActive,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// GetByID returns a single subscription.
func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*domain.ReviewSubscription, error) {
	sub, err := scanSubscription(r.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM review_subscriptions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("subscription", id)
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

// ListByUser returns all subscriptions owned by a user, newest first.
func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]domain.ReviewSubscription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+subscriptionColumns+` FROM review_subscriptions WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions by user: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// ListCandidates returns active subscriptions that could match a review for
// the given provider: provider-specific ones plus general ones with no
// provider filter. Location and type filters are applied by the matcher.
func (r *SubscriptionRepository) ListCandidates(ctx context.Context, providerID string) ([]domain.ReviewSubscription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM review_subscriptions
		WHERE is_active = TRUE
		  AND (freight_forwarder_id IS NULL OR freight_forwarder_id = $1)`,
		providerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list candidate subscriptions: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// SetActive flips the is_active flag.
func (r *SubscriptionRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE review_subscriptions SET is_active = $2, updated_at = $3 WHERE id = $1`,
		id, active, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update subscription active flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("subscription", id)
	}
	return nil
}

// UpdateFrequency changes the notification frequency.
func (r *SubscriptionRepository) UpdateFrequency(ctx context.Context, id, frequency string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE review_subscriptions SET notification_frequency = $2, updated_at = $3 WHERE id = $1`,
		id, frequency, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update subscription frequency: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("subscription", id)
	}
	return nil
}

// DeleteCascade removes the subscription and its ledger rows atomically.
// Ledger rows go first because there is no ON DELETE CASCADE on the
// notification table.
func (r *SubscriptionRepository) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM review_notifications WHERE subscription_id = $1`, id); err != nil {
		return fmt.Errorf("delete subscription notifications: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM review_subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("subscription", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}

// DeleteByUserCascade removes every subscription a user owns along with the
// dependent ledger rows, returning the deleted subscription IDs.
func (r *SubscriptionRepository) DeleteByUserCascade(ctx context.Context, userID string) ([]string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin user delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx,
		`SELECT id FROM review_subscriptions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user subscriptions: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan subscription id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscription ids: %w", err)
	}

	if len(ids) == 0 {
		return nil, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM review_notifications
		WHERE subscription_id IN (SELECT id FROM review_subscriptions WHERE user_id = $1)`,
		userID); err != nil {
		return nil, fmt.Errorf("delete user notifications: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM review_subscriptions WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("delete user subscriptions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit user delete tx: %w", err)
	}

	return ids, nil
}
