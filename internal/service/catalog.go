package service

import (
	"context"
	"fmt"
	"time"

	"ticketing-service/internal/models"
	"ticketing-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogStore is the persistence surface of the event catalog.
type CatalogStore interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEventByID(ctx context.Context, id int64) (*models.Event, error)
	ListPublishedEvents(ctx context.Context, category string) ([]models.Event, error)
	ListEventsByAdmin(ctx context.Context, adminID int64) ([]models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
	UpdateEventStatus(ctx context.Context, eventID int64, status string) error
	DeleteEventTx(ctx context.Context, eventID int64) error
	CreateTicketType(ctx context.Context, tt *models.TicketType) error
	GetTicketType(ctx context.Context, id int64) (*models.TicketType, error)
	ListTicketTypesByEvent(ctx context.Context, eventID int64) ([]models.TicketType, error)
	ListTicketTypes(ctx context.Context) ([]models.TicketType, error)
}

// StockReader reads the mirrored stock counter; used for lock-free
// availability reads.
type StockReader interface {
	InitStock(ctx context.Context, ticketTypeID int64, stock int) error
	GetStock(ctx context.Context, ticketTypeID int64) (int, bool, error)
	DeleteStock(ctx context.Context, ticketTypeID int64) error
}

// CatalogService is the thin validation layer over events and ticket
// types. A single events table covers all four categories; the category
// column is the only difference between them.
type CatalogService struct {
	store  CatalogStore
	mirror StockReader
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service. mirror may be nil.
func NewCatalogService(store CatalogStore, mirror StockReader) *CatalogService {
	return &CatalogService{
		store:  store,
		mirror: mirror,
		logger: util.GetLogger(),
	}
}

// CreateEventInput carries the fields of a new event.
type CreateEventInput struct {
	Category    string
	Name        string
	Description string
	Date        time.Time
	Location    string
	Poster      string
	Status      string
}

// CreateEvent validates and persists a new event owned by adminID.
// Status defaults to published.
func (c *CatalogService) CreateEvent(ctx context.Context, adminID int64, in CreateEventInput) (*models.Event, error) {
	if !models.ValidCategory(in.Category) {
		return nil, models.ErrInvalidCategory
	}
	if in.Status == "" {
		in.Status = models.EventStatusPublished
	}
	if !models.ValidEventStatus(in.Status) {
		return nil, models.ErrInvalidStatus
	}
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrInvalidInput)
	}
	if in.Location == "" {
		return nil, fmt.Errorf("%w: location is required", models.ErrInvalidInput)
	}
	if in.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", models.ErrInvalidInput)
	}

	event := &models.Event{
		Category:     in.Category,
		Name:         in.Name,
		Description:  in.Description,
		Date:         in.Date,
		Location:     in.Location,
		Poster:       in.Poster,
		Status:       in.Status,
		OwnerAdminID: adminID,
	}
	if err := c.store.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	c.logger.Info("Event created",
		zap.Int64("event_id", event.ID),
		zap.String("category", event.Category))
	return event, nil
}

// UpdateEvent updates event metadata. Owner-only.
func (c *CatalogService) UpdateEvent(ctx context.Context, adminID, eventID int64, in CreateEventInput) (*models.Event, error) {
	event, err := c.requireOwnedEvent(ctx, adminID, eventID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		event.Name = in.Name
	}
	if in.Description != "" {
		event.Description = in.Description
	}
	if !in.Date.IsZero() {
		event.Date = in.Date
	}
	if in.Location != "" {
		event.Location = in.Location
	}
	if in.Poster != "" {
		event.Poster = in.Poster
	}

	if err := c.store.UpdateEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// UpdateEventStatus toggles an event between draft and published.
// Owner-only; there is no automatic expiry of published events.
func (c *CatalogService) UpdateEventStatus(ctx context.Context, adminID, eventID int64, status string) error {
	if !models.ValidEventStatus(status) {
		return models.ErrInvalidStatus
	}
	if _, err := c.requireOwnedEvent(ctx, adminID, eventID); err != nil {
		return err
	}
	return c.store.UpdateEventStatus(ctx, eventID, status)
}

// DeleteEvent removes an event and its ticket types. Owner-only; refused
// while pending orders reference the event.
func (c *CatalogService) DeleteEvent(ctx context.Context, adminID, eventID int64) error {
	if _, err := c.requireOwnedEvent(ctx, adminID, eventID); err != nil {
		return err
	}

	tts, err := c.store.ListTicketTypesByEvent(ctx, eventID)
	if err != nil {
		return err
	}

	if err := c.store.DeleteEventTx(ctx, eventID); err != nil {
		return err
	}

	if c.mirror != nil {
		for _, tt := range tts {
			if err := c.mirror.DeleteStock(ctx, tt.ID); err != nil {
				c.logger.Warn("Failed to drop stock mirror entry",
					zap.Int64("ticket_type_id", tt.ID),
					zap.Error(err))
			}
		}
	}

	c.logger.Info("Event deleted", zap.Int64("event_id", eventID))
	return nil
}

// ListPublished lists published events in creation order, optionally
// filtered by category.
func (c *CatalogService) ListPublished(ctx context.Context, category string) ([]models.Event, error) {
	if category != "" && !models.ValidCategory(category) {
		return nil, models.ErrInvalidCategory
	}
	return c.store.ListPublishedEvents(ctx, category)
}

// ListByAdmin lists all events owned by an admin.
func (c *CatalogService) ListByAdmin(ctx context.Context, adminID int64) ([]models.Event, error) {
	return c.store.ListEventsByAdmin(ctx, adminID)
}

// GetEvent retrieves a single event.
func (c *CatalogService) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	return c.store.GetEventByID(ctx, eventID)
}

// CreateTicketType validates and persists a new ticket type under an event
// owned by adminID. Stock starts at initial stock; the mirror is seeded.
func (c *CatalogService) CreateTicketType(ctx context.Context, adminID, eventID int64, label string, price decimal.Decimal, initialStock int) (*models.TicketType, error) {
	if _, err := c.requireOwnedEvent(ctx, adminID, eventID); err != nil {
		return nil, err
	}
	if label == "" {
		return nil, fmt.Errorf("%w: label is required", models.ErrInvalidInput)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", models.ErrInvalidInput)
	}
	if initialStock < 0 {
		return nil, fmt.Errorf("%w: initial stock must not be negative", models.ErrInvalidInput)
	}

	tt := &models.TicketType{
		EventID:      eventID,
		Label:        label,
		Price:        price,
		InitialStock: initialStock,
		Stock:        initialStock,
	}
	if err := c.store.CreateTicketType(ctx, tt); err != nil {
		return nil, fmt.Errorf("failed to create ticket type: %w", err)
	}

	if c.mirror != nil {
		if err := c.mirror.InitStock(ctx, tt.ID, tt.Stock); err != nil {
			c.logger.Warn("Failed to seed stock mirror",
				zap.Int64("ticket_type_id", tt.ID),
				zap.Error(err))
		}
	}

	c.logger.Info("Ticket type created",
		zap.Int64("ticket_type_id", tt.ID),
		zap.Int64("event_id", eventID),
		zap.Int("initial_stock", initialStock))
	return tt, nil
}

// GetTicketType retrieves a single ticket type from the authoritative store.
func (c *CatalogService) GetTicketType(ctx context.Context, id int64) (*models.TicketType, error) {
	return c.store.GetTicketType(ctx, id)
}

// ListTicketTypes lists the ticket types of an event.
func (c *CatalogService) ListTicketTypes(ctx context.Context, eventID int64) ([]models.TicketType, error) {
	if _, err := c.store.GetEventByID(ctx, eventID); err != nil {
		return nil, err
	}
	return c.store.ListTicketTypesByEvent(ctx, eventID)
}

// Availability reports remaining stock and units sold for a ticket type.
// It prefers the mirror (lock-free, may lag a concurrent reservation) and
// falls back to the store. Sold count is computed here, never accepted
// from a caller.
func (c *CatalogService) Availability(ctx context.Context, ticketTypeID int64) (stock, sold int, err error) {
	tt, err := c.store.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		return 0, 0, err
	}

	stock = tt.Stock
	if c.mirror != nil {
		if mirrored, ok, err := c.mirror.GetStock(ctx, ticketTypeID); err == nil && ok {
			stock = mirrored
		}
	}
	return stock, tt.InitialStock - stock, nil
}

// SyncStockToRedis seeds the stock mirror from the authoritative store.
// Called at startup.
func (c *CatalogService) SyncStockToRedis(ctx context.Context) error {
	if c.mirror == nil {
		return nil
	}

	tts, err := c.store.ListTicketTypes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list ticket types: %w", err)
	}

	for _, tt := range tts {
		if err := c.mirror.InitStock(ctx, tt.ID, tt.Stock); err != nil {
			c.logger.Error("Failed to seed stock mirror",
				zap.Int64("ticket_type_id", tt.ID),
				zap.Error(err))
		}
	}

	c.logger.Info("Stock mirror sync completed", zap.Int("count", len(tts)))
	return nil
}

func (c *CatalogService) requireOwnedEvent(ctx context.Context, adminID, eventID int64) (*models.Event, error) {
	event, err := c.store.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OwnerAdminID != adminID {
		return nil, models.ErrForbidden
	}
	return event, nil
}
