package models

import "errors"

// Sentinel errors shared across the store, service and API layers. Handlers
// translate these into HTTP status codes; everything else is treated as a
// transient internal failure, safe to retry from outside.
var (
	// ErrNotFound is returned when a referenced event, ticket type or
	// order does not exist.
	ErrNotFound = errors.New("not found")

	// ErrOutOfStock is returned when a reservation asks for more units
	// than the ticket type currently has. It is a definitive rejection,
	// never retried internally.
	ErrOutOfStock = errors.New("out of stock")

	// ErrAlreadyFinalized is returned on an approve/reject attempt
	// against an order already in a terminal state. The second caller
	// gets this error and no stock is touched twice.
	ErrAlreadyFinalized = errors.New("order already finalized")

	// ErrForbidden is returned when an admin acts on an order or event
	// they do not own.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when a delete cannot proceed because
	// dependent records exist, such as an event with pending orders.
	ErrConflict = errors.New("conflict")

	// ErrInvalidQuantity is returned for reservation quantities below 1.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidCategory is returned for an unknown event category.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidStatus is returned for an unknown event status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidInput covers remaining field validation failures; wrap it
	// with the offending field for context.
	ErrInvalidInput = errors.New("invalid input")
)
