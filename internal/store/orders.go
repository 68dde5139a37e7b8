package store

import (
	"context"
	"database/sql"
	"time"

	"ticketing-service/internal/models"
)

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key, or nil
// when no such order exists
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves orders for a user
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// OwnerAdminIDForOrder resolves the admin who owns the event an order was
// placed against. Used as the authorization precondition for approve/reject.
func (s *Store) OwnerAdminIDForOrder(ctx context.Context, orderID int64) (int64, error) {
	var adminID int64
	err := s.db.GetContext(ctx, &adminID, `
		SELECT e.owner_admin_id FROM orders o
		JOIN ticket_types t ON t.id = o.ticket_type_id
		JOIN events e ON e.id = t.event_id
		WHERE o.id = $1`, orderID)
	if err == sql.ErrNoRows {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return adminID, nil
}

// ListPendingByAdmin lists pending orders against events owned by the given
// admin, joined with event and ticket type details for review. Plain
// snapshot read, no locks.
func (s *Store) ListPendingByAdmin(ctx context.Context, adminID int64) ([]models.PendingOrder, error) {
	var pending []models.PendingOrder
	err := s.db.SelectContext(ctx, &pending, `
		SELECT o.id AS order_id, o.user_id, e.name AS event_name,
		       e.category AS event_category, t.label AS ticket_label,
		       o.quantity, o.unit_price, o.created_at
		FROM orders o
		JOIN ticket_types t ON t.id = o.ticket_type_id
		JOIN events e ON e.id = t.event_id
		WHERE e.owner_admin_id = $1 AND o.status = $2
		ORDER BY o.created_at`,
		adminID, models.OrderStatusPending)
	return pending, err
}

// ListExpiredPending lists pending orders created before the cutoff,
// candidates for release by the expiry worker.
func (s *Store) ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders WHERE status = $1 AND created_at < $2
		ORDER BY created_at LIMIT $3`,
		models.OrderStatusPending, before, limit)
	return orders, err
}

// RecordOrderAudit appends an order lifecycle audit record
func (s *Store) RecordOrderAudit(ctx context.Context, audit *models.OrderAudit) error {
	query := `
		INSERT INTO order_audit (order_id, event_type, detail)
		VALUES ($1, $2, $3)
		RETURNING id, recorded_at`

	return s.db.GetContext(ctx, audit, query,
		audit.OrderID, audit.EventType, audit.Detail)
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
