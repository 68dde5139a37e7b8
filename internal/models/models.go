package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event categories
const (
	CategorySport    = "sport"
	CategoryConcert  = "concert"
	CategoryFestival = "festival"
	CategorySeminar  = "seminar"
)

// Event statuses
const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
)

// Order statuses
const (
	OrderStatusPending  = "pending"
	OrderStatusApproved = "approved"
	OrderStatusRejected = "rejected"
)

// ValidCategory reports whether c is one of the four event categories.
func ValidCategory(c string) bool {
	switch c {
	case CategorySport, CategoryConcert, CategoryFestival, CategorySeminar:
		return true
	}
	return false
}

// ValidEventStatus reports whether s is a known event status.
func ValidEventStatus(s string) bool {
	return s == EventStatusDraft || s == EventStatusPublished
}

// TerminalOrderStatus reports whether an order status admits no further transition.
func TerminalOrderStatus(s string) bool {
	return s == OrderStatusApproved || s == OrderStatusRejected
}

// Event represents a draft or published event in one of the four categories
type Event struct {
	ID           int64     `db:"id" json:"id"`
	Category     string    `db:"category" json:"category"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	Date         time.Time `db:"date" json:"date"`
	Location     string    `db:"location" json:"location"`
	Poster       string    `db:"poster" json:"poster,omitempty"`
	Status       string    `db:"status" json:"status"`
	OwnerAdminID int64     `db:"owner_admin_id" json:"owner_admin_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// TicketType represents a purchasable admission class within one event.
// Stock is decremented at reservation time and restored on rejection, so
// 0 <= Stock <= InitialStock holds at all times.
type TicketType struct {
	ID           int64           `db:"id" json:"id"`
	EventID      int64           `db:"event_id" json:"event_id"`
	Label        string          `db:"label" json:"label"`
	Price        decimal.Decimal `db:"price" json:"price"`
	InitialStock int             `db:"initial_stock" json:"initial_stock"`
	Stock        int             `db:"stock" json:"stock"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Sold returns the number of units currently held by pending or approved orders.
func (t *TicketType) Sold() int {
	return t.InitialStock - t.Stock
}

// Order represents a purchase request. UnitPrice is snapshotted from the
// ticket type at reservation time and never updated afterwards.
type Order struct {
	ID             int64           `db:"id" json:"id"`
	UserID         int64           `db:"user_id" json:"user_id"`
	TicketTypeID   int64           `db:"ticket_type_id" json:"ticket_type_id"`
	Quantity       int             `db:"quantity" json:"quantity"`
	UnitPrice      decimal.Decimal `db:"unit_price" json:"unit_price"`
	Status         string          `db:"status" json:"status"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Total returns the snapshot price multiplied by quantity.
func (o *Order) Total() decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// PendingOrder is the admin review projection: a pending order joined with
// the event and ticket type it was placed against.
type PendingOrder struct {
	OrderID       int64           `db:"order_id" json:"order_id"`
	UserID        int64           `db:"user_id" json:"user_id"`
	EventName     string          `db:"event_name" json:"event_name"`
	EventCategory string          `db:"event_category" json:"event_category"`
	TicketLabel   string          `db:"ticket_label" json:"ticket_label"`
	Quantity      int             `db:"quantity" json:"quantity"`
	UnitPrice     decimal.Decimal `db:"unit_price" json:"unit_price"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// OrderAudit is an append-only record of an order lifecycle event,
// written by the audit worker from the kafka stream.
type OrderAudit struct {
	ID         int64     `db:"id" json:"id"`
	OrderID    int64     `db:"order_id" json:"order_id"`
	EventType  string    `db:"event_type" json:"event_type"`
	Detail     string    `db:"detail" json:"detail"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
