package service

import (
	"context"
	"time"

	"ticketing-service/internal/models"
	"ticketing-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationStore is the persistence surface the engine needs. *store.Store
// satisfies it; tests use an in-memory fake.
type ReservationStore interface {
	ReserveTicketTx(ctx context.Context, ticketTypeID, userID int64, quantity int, idempotencyKey string) (*models.Order, error)
	ReleaseOrderTx(ctx context.Context, orderID int64) (*models.Order, error)
	ApproveOrderTx(ctx context.Context, orderID int64) (*models.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	GetTicketType(ctx context.Context, id int64) (*models.TicketType, error)
	ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]models.Order, error)
}

// StockMirror is the redis-side stock cache. All mirror updates are
// best-effort: a mirror failure never fails the reservation.
type StockMirror interface {
	DecrStock(ctx context.Context, ticketTypeID int64, quantity int) error
	IncrStock(ctx context.Context, ticketTypeID int64, quantity, initialStock int) error
}

// EventPublisher publishes order lifecycle events. *broker.EventPublisher
// satisfies it.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderApproved(ctx context.Context, event *models.OrderApprovedEvent) error
	PublishOrderRejected(ctx context.Context, event *models.OrderRejectedEvent) error
	PublishOrderExpired(ctx context.Context, event *models.OrderExpiredEvent) error
}

// ReservationEngine owns the stock counter lifecycle: reserve decrements
// stock and creates the pending order, release restores stock, commit
// finalizes without touching stock. All contention is resolved inside the
// store transaction; the engine never retries.
type ReservationEngine struct {
	store     ReservationStore
	mirror    StockMirror
	publisher EventPublisher
	logger    *zap.Logger
}

// NewReservationEngine creates a new reservation engine. mirror and
// publisher may be nil, in which case the corresponding side effects are
// skipped.
func NewReservationEngine(store ReservationStore, mirror StockMirror, publisher EventPublisher) *ReservationEngine {
	return &ReservationEngine{
		store:     store,
		mirror:    mirror,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// Reserve atomically decrements stock and creates a pending order with the
// ticket price snapshotted at this moment. Quantity must be at least 1.
// A repeated idempotency key returns the already-created order.
func (e *ReservationEngine) Reserve(ctx context.Context, ticketTypeID, userID int64, quantity int, idempotencyKey string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "ReservationEngine.Reserve")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ReservationLatency.Observe(time.Since(start).Seconds())
	}()

	if quantity < 1 {
		util.ReservationsFailedTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, models.ErrInvalidQuantity
	}

	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	} else {
		existing, err := e.store.GetOrderByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			e.logger.Info("Duplicate purchase request detected",
				zap.String("idempotency_key", idempotencyKey),
				zap.Int64("order_id", existing.ID))
			return existing, nil
		}
	}

	order, err := e.store.ReserveTicketTx(ctx, ticketTypeID, userID, quantity, idempotencyKey)
	if err != nil {
		switch err {
		case models.ErrOutOfStock:
			util.ReservationsFailedTotal.WithLabelValues("out_of_stock").Inc()
		case models.ErrNotFound:
			util.ReservationsFailedTotal.WithLabelValues("not_found").Inc()
		default:
			util.ReservationsFailedTotal.WithLabelValues("store_error").Inc()
		}
		return nil, err
	}

	util.ReservationsTotal.Inc()
	e.logger.Info("Reservation placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("ticket_type_id", ticketTypeID),
		zap.Int("quantity", quantity))

	if e.mirror != nil {
		if err := e.mirror.DecrStock(ctx, ticketTypeID, quantity); err != nil {
			e.logger.Warn("Failed to update stock mirror",
				zap.Int64("ticket_type_id", ticketTypeID),
				zap.Error(err))
		}
	}

	if e.publisher != nil {
		event := &models.OrderPlacedEvent{
			BaseEvent:    newBaseEvent(models.EventTypeOrderPlaced),
			OrderID:      order.ID,
			UserID:       order.UserID,
			TicketTypeID: order.TicketTypeID,
			Quantity:     order.Quantity,
			UnitPrice:    order.UnitPrice.String(),
		}
		if err := e.publisher.PublishOrderPlaced(ctx, event); err != nil {
			e.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
		}
	}

	return order, nil
}

// Release rejects a pending order and restores its quantity to stock.
// A second call on the same order returns ErrAlreadyFinalized and credits
// nothing.
func (e *ReservationEngine) Release(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "ReservationEngine.Release")
	defer span.End()

	order, err := e.store.ReleaseOrderTx(ctx, orderID)
	if err != nil {
		return nil, err
	}

	util.StockReleasedTotal.Add(float64(order.Quantity))
	e.logger.Info("Reservation released",
		zap.Int64("order_id", order.ID),
		zap.Int64("ticket_type_id", order.TicketTypeID),
		zap.Int("quantity", order.Quantity))

	if e.mirror != nil {
		tt, err := e.store.GetTicketType(ctx, order.TicketTypeID)
		if err != nil {
			e.logger.Warn("Failed to read ticket type for mirror restore",
				zap.Int64("ticket_type_id", order.TicketTypeID),
				zap.Error(err))
		} else if err := e.mirror.IncrStock(ctx, order.TicketTypeID, order.Quantity, tt.InitialStock); err != nil {
			e.logger.Warn("Failed to restore stock mirror",
				zap.Int64("ticket_type_id", order.TicketTypeID),
				zap.Error(err))
		}
	}

	return order, nil
}

// Commit finalizes a pending order as approved. Stock stays decremented.
func (e *ReservationEngine) Commit(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "ReservationEngine.Commit")
	defer span.End()

	order, err := e.store.ApproveOrderTx(ctx, orderID)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Reservation committed", zap.Int64("order_id", order.ID))
	return order, nil
}

// GetOrder retrieves an order by ID
func (e *ReservationEngine) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	return e.store.GetOrderByID(ctx, orderID)
}

const expiryBatchSize = 100

// ReleaseExpired releases pending orders created before the cutoff and
// publishes an OrderExpired event per release. Orders finalized by a
// concurrent admin action are skipped. Returns the number released.
func (e *ReservationEngine) ReleaseExpired(ctx context.Context, before time.Time) (int, error) {
	ctx, span := util.StartSpan(ctx, "ReservationEngine.ReleaseExpired")
	defer span.End()

	stale, err := e.store.ListExpiredPending(ctx, before, expiryBatchSize)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, o := range stale {
		order, err := e.Release(ctx, o.ID)
		if err != nil {
			if err == models.ErrAlreadyFinalized || err == models.ErrNotFound {
				continue
			}
			return released, err
		}
		released++
		util.OrdersExpiredTotal.Inc()

		if e.publisher != nil {
			event := &models.OrderExpiredEvent{
				BaseEvent:    newBaseEvent(models.EventTypeOrderExpired),
				OrderID:      order.ID,
				TicketTypeID: order.TicketTypeID,
				Quantity:     order.Quantity,
			}
			if err := e.publisher.PublishOrderExpired(ctx, event); err != nil {
				e.logger.Error("Failed to publish OrderExpired event", zap.Error(err))
			}
		}
	}

	return released, nil
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
