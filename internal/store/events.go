package store

import (
	"context"
	"database/sql"
	"fmt"

	"ticketing-service/internal/models"
)

// CreateEvent inserts a new event
func (s *Store) CreateEvent(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (category, name, description, date, location, poster, status, owner_admin_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, event, query,
		event.Category, event.Name, event.Description, event.Date,
		event.Location, event.Poster, event.Status, event.OwnerAdminID)
}

// GetEventByID retrieves an event by ID
func (s *Store) GetEventByID(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := s.db.GetContext(ctx, &event, "SELECT * FROM events WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListPublishedEvents retrieves published events in creation order,
// optionally filtered to a single category
func (s *Store) ListPublishedEvents(ctx context.Context, category string) ([]models.Event, error) {
	var events []models.Event
	if category != "" {
		err := s.db.SelectContext(ctx, &events,
			"SELECT * FROM events WHERE status = $1 AND category = $2 ORDER BY id",
			models.EventStatusPublished, category)
		return events, err
	}
	err := s.db.SelectContext(ctx, &events,
		"SELECT * FROM events WHERE status = $1 ORDER BY id",
		models.EventStatusPublished)
	return events, err
}

// ListEventsByAdmin retrieves all events owned by an admin
func (s *Store) ListEventsByAdmin(ctx context.Context, adminID int64) ([]models.Event, error) {
	var events []models.Event
	err := s.db.SelectContext(ctx, &events,
		"SELECT * FROM events WHERE owner_admin_id = $1 ORDER BY id", adminID)
	return events, err
}

// UpdateEvent updates the mutable metadata fields of an event
func (s *Store) UpdateEvent(ctx context.Context, event *models.Event) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE events SET name = $1, description = $2, date = $3, location = $4, poster = $5
		WHERE id = $6`,
		event.Name, event.Description, event.Date, event.Location, event.Poster, event.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateEventStatus updates event status
func (s *Store) UpdateEventStatus(ctx context.Context, eventID int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE events SET status = $1 WHERE id = $2", status, eventID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteEventTx deletes an event and its ticket types. The delete is
// refused with ErrConflict while any pending order still references one of
// the event's ticket types, so held stock is never orphaned silently.
func (s *Store) DeleteEventTx(ctx context.Context, eventID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var pending int
	err = tx.GetContext(ctx, &pending, `
		SELECT COUNT(*) FROM orders o
		JOIN ticket_types t ON t.id = o.ticket_type_id
		WHERE t.event_id = $1 AND o.status = $2`,
		eventID, models.OrderStatusPending)
	if err != nil {
		return fmt.Errorf("failed to count pending orders: %w", err)
	}
	if pending > 0 {
		return models.ErrConflict
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM ticket_types WHERE event_id = $1", eventID); err != nil {
		return fmt.Errorf("failed to delete ticket types: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM events WHERE id = $1", eventID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	return tx.Commit()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
