package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ticketing-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// CreateTicketType inserts a new ticket type with stock = initial_stock
func (s *Store) CreateTicketType(ctx context.Context, tt *models.TicketType) error {
	query := `
		INSERT INTO ticket_types (event_id, label, price, initial_stock, stock)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, tt, query,
		tt.EventID, tt.Label, tt.Price, tt.InitialStock)
}

// GetTicketType retrieves a ticket type by ID
func (s *Store) GetTicketType(ctx context.Context, id int64) (*models.TicketType, error) {
	var tt models.TicketType
	err := s.db.GetContext(ctx, &tt, "SELECT * FROM ticket_types WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tt, nil
}

// ListTicketTypesByEvent retrieves all ticket types of an event in creation order
func (s *Store) ListTicketTypesByEvent(ctx context.Context, eventID int64) ([]models.TicketType, error) {
	var tts []models.TicketType
	err := s.db.SelectContext(ctx, &tts,
		"SELECT * FROM ticket_types WHERE event_id = $1 ORDER BY id", eventID)
	return tts, err
}

// ListTicketTypes retrieves all ticket types
func (s *Store) ListTicketTypes(ctx context.Context) ([]models.TicketType, error) {
	var tts []models.TicketType
	err := s.db.SelectContext(ctx, &tts, "SELECT * FROM ticket_types ORDER BY id")
	return tts, err
}

// ReserveTicketTx atomically checks and decrements stock and creates the
// pending order, all under a row lock on the ticket type (FOR UPDATE).
// The price snapshot is read inside the same transaction, so a concurrent
// price update can never leak into an order placed before it.
func (s *Store) ReserveTicketTx(ctx context.Context, ticketTypeID, userID int64, quantity int, idempotencyKey string) (*models.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var tt models.TicketType
	err = tx.GetContext(ctx, &tt,
		"SELECT * FROM ticket_types WHERE id = $1 FOR UPDATE", ticketTypeID)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock ticket type: %w", err)
	}

	if tt.Stock < quantity {
		return nil, models.ErrOutOfStock
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE ticket_types SET stock = stock - $1 WHERE id = $2",
		quantity, ticketTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}

	var order models.Order
	err = tx.GetContext(ctx, &order, `
		INSERT INTO orders (user_id, ticket_type_id, quantity, unit_price, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *`,
		userID, ticketTypeID, quantity, tt.Price, models.OrderStatusPending, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &order, nil
}

// ApproveOrderTx marks a pending order approved. Stock is untouched: it was
// already decremented at reservation time. A terminal order yields
// ErrAlreadyFinalized.
func (s *Store) ApproveOrderTx(ctx context.Context, orderID int64) (*models.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		models.OrderStatusApproved, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to approve order: %w", err)
	}
	order.Status = models.OrderStatusApproved

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

// ReleaseOrderTx marks a pending order rejected and restores its quantity
// to the ticket type stock, in one transaction. Lock order is always the
// order row first, then the ticket type row. A second invocation finds the
// order terminal and returns ErrAlreadyFinalized with no double credit.
func (s *Store) ReleaseOrderTx(ctx context.Context, orderID int64) (*models.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		models.OrderStatusRejected, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to reject order: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE ticket_types SET stock = stock + $1 WHERE id = $2",
		order.Quantity, order.TicketTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to restore stock: %w", err)
	}
	order.Status = models.OrderStatusRejected

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

// lockOrder fetches an order under FOR UPDATE and enforces the terminal
// state invariant.
func lockOrder(ctx context.Context, tx *sqlx.Tx, orderID int64) (*models.Order, error) {
	var order models.Order
	err := tx.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	if models.TerminalOrderStatus(order.Status) {
		return nil, models.ErrAlreadyFinalized
	}
	return &order, nil
}
