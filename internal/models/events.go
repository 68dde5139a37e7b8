package models

import "time"

// Event types
const (
	EventTypeOrderPlaced   = "ORDER_PLACED"
	EventTypeOrderApproved = "ORDER_APPROVED"
	EventTypeOrderRejected = "ORDER_REJECTED"
	EventTypeOrderExpired  = "ORDER_EXPIRED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published when a reservation succeeds and a pending
// order is created
type OrderPlacedEvent struct {
	BaseEvent
	OrderID      int64  `json:"order_id"`
	UserID       int64  `json:"user_id"`
	TicketTypeID int64  `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
}

// OrderApprovedEvent published when an admin approves a pending order
type OrderApprovedEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
	AdminID int64 `json:"admin_id"`
}

// OrderRejectedEvent published when an admin rejects a pending order and
// its stock is restored
type OrderRejectedEvent struct {
	BaseEvent
	OrderID      int64 `json:"order_id"`
	AdminID      int64 `json:"admin_id"`
	TicketTypeID int64 `json:"ticket_type_id"`
	Quantity     int   `json:"quantity"`
}

// OrderExpiredEvent published when the expiry worker releases a stale
// pending order
type OrderExpiredEvent struct {
	BaseEvent
	OrderID      int64 `json:"order_id"`
	TicketTypeID int64 `json:"ticket_type_id"`
	Quantity     int   `json:"quantity"`
}
