package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/issuemail/internal/domain"
)

// DeliveryRepository persists the mail delivery log.
type DeliveryRepository struct {
	db *sqlx.DB
}

// NewDeliveryRepository creates a new DeliveryRepository.
func NewDeliveryRepository(db *sqlx.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Record inserts a delivery outcome and returns its ID.
func (r *DeliveryRepository) Record(ctx context.Context, d domain.Delivery) (int64, error) {
	var id int64
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO mail_deliveries (event_kind, entity_id, message_id, status, error_msg, recipient_count)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		d.EventKind, d.EntityID, d.MessageID, d.Status, d.ErrorMsg, d.RecipientCount,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("record delivery: %w", err)
	}
	return id, nil
}

// List returns up to limit deliveries older than cursor, newest first. A
// cursor of zero starts from the most recent entry. hasNext reports whether
// more rows follow the returned page.
func (r *DeliveryRepository) List(ctx context.Context, cursor int64, limit int) (deliveries []domain.Delivery, hasNext bool, err error) {
	deliveries = []domain.Delivery{}
	query := `SELECT id, event_kind, entity_id, message_id, status, error_msg, recipient_count, created_at
		 FROM mail_deliveries`
	args := []any{}
	if cursor > 0 {
		query += ` WHERE id < $1`
		args = append(args, cursor)
	}
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT %d`, limit+1)

	if err := r.db.SelectContext(ctx, &deliveries, query, args...); err != nil {
		return nil, false, fmt.Errorf("list deliveries: %w", err)
	}
	if len(deliveries) > limit {
		return deliveries[:limit], true, nil
	}
	return deliveries, false, nil
}
