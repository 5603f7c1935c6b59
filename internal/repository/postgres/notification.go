package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/LogiScore/backend-sub000/internal/domain"
	"github.com/LogiScore/backend-sub000/pkg/database"
	apperrors "github.com/LogiScore/backend-sub000/pkg/errors"
)

// NotificationRepository implements the review notification ledger using
// PostgreSQL.
type NotificationRepository struct {
	pool database.DBTX
}

// NewNotificationRepository creates a PostgreSQL-backed notification
// repository.
func NewNotificationRepository(pool database.DBTX) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Insert adds a ledger row. The unique constraint on (review_id,
// subscription_id) plus ON CONFLICT DO NOTHING makes concurrent or retried
// fan-outs insert at most one row; a skipped insert returns (false, nil).
func (r *NotificationRepository) Insert(ctx context.Context, n *domain.ReviewNotification) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO review_notifications (id, user_id, review_id, subscription_id,
		                                  notification_type, is_sent, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (review_id, subscription_id) DO NOTHING`,
		n.ID,
		n.UserID,
		n.ReviewID,
		n.SubscriptionID,
		n.NotificationType,
		n.IsSent,
		n.SentAt,
		n.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkSent flags a ledger row as delivered.
func (r *NotificationRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE review_notifications SET is_sent = TRUE, sent_at = $2 WHERE id = $1`,
		id, sentAt,
	)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("notification", id)
	}
	return nil
}

// PendingDigestEntries returns unsent ledger rows of the given frequency
// whose review was created inside the digest window, joined with review
// context and grouped by user for rendering.
func (r *NotificationRepository) PendingDigestEntries(ctx context.Context, frequency string, windowStart time.Time) ([]domain.DigestEntry, error) {
	query := `
		SELECT n.id, n.user_id, n.review_id, n.subscription_id,
		       rv.freight_forwarder_id, rv.country, rv.city, rv.review_type,
		       rv.aggregate_rating, rv.created_at
		FROM review_notifications n
		JOIN reviews rv ON rv.id = n.review_id
		WHERE n.is_sent = FALSE
		  AND n.notification_type = $1
		  AND rv.created_at >= $2
		ORDER BY n.user_id, rv.created_at`

	rows, err := r.pool.Query(ctx, query, frequency, windowStart)
	if err != nil {
		return nil, fmt.Errorf("list pending digest entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.DigestEntry
	for rows.Next() {
		var e domain.DigestEntry
		if err := rows.Scan(
			&e.NotificationID,
			&e.UserID,
			&e.ReviewID,
			&e.SubscriptionID,
			&e.FreightForwarderID,
			&e.Country,
			&e.City,
			&e.ReviewType,
			&e.AggregateRating,
			&e.ReviewCreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan digest entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate digest entries: %w", err)
	}

	return entries, nil
}

// MarkBatchSent flags a set of ledger rows as delivered.
func (r *NotificationRepository) MarkBatchSent(ctx context.Context, ids []string, sentAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE review_notifications SET is_sent = TRUE, sent_at = $2 WHERE id = ANY($1)`,
		ids, sentAt,
	)
	if err != nil {
		return fmt.Errorf("mark notifications sent: %w", err)
	}
	return nil
}

// PurgeSentBefore deletes delivered ledger rows older than the cutoff.
func (r *NotificationRepository) PurgeSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM review_notifications WHERE is_sent = TRUE AND sent_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("purge sent notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
