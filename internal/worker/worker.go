package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"ticketing-service/internal/broker"
	"ticketing-service/internal/models"
	"ticketing-service/internal/service"
	"ticketing-service/internal/store"
	"ticketing-service/internal/util"

	"go.uber.org/zap"
)

// ExpiryWorker periodically releases pending orders whose stock has been
// held longer than the configured TTL. A zero TTL disables the worker.
type ExpiryWorker struct {
	engine   *service.ReservationEngine
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
	done     chan struct{}
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(engine *service.ReservationEngine, ttl, interval time.Duration) *ExpiryWorker {
	return &ExpiryWorker{
		engine:   engine,
		ttl:      ttl,
		interval: interval,
		logger:   util.GetLogger(),
		done:     make(chan struct{}),
	}
}

// Start runs the expiry loop until the context is cancelled or Stop is called
func (w *ExpiryWorker) Start(ctx context.Context) error {
	if w.ttl <= 0 {
		w.logger.Info("Pending order expiry disabled")
		return nil
	}

	log.Printf("Starting expiry worker: ttl=%s, interval=%s", w.ttl, w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case <-ticker.C:
			cutoff := time.Now().Add(-w.ttl)
			released, err := w.engine.ReleaseExpired(ctx, cutoff)
			if err != nil {
				w.logger.Error("Expiry pass failed", zap.Error(err))
				continue
			}
			if released > 0 {
				w.logger.Info("Released expired pending orders", zap.Int("count", released))
			}
		}
	}
}

// Stop stops the worker
func (w *ExpiryWorker) Stop() error {
	log.Println("Stopping expiry worker...")
	close(w.done)
	return nil
}

// AuditWorker consumes order lifecycle events and records them into the
// audit ledger, deduplicated through the processed_events table.
type AuditWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	logger       *zap.Logger
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(consumer *broker.Consumer, st *store.Store) *AuditWorker {
	w := &AuditWorker{
		consumer: consumer,
		store:    st,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(func(ctx context.Context, e *models.OrderPlacedEvent) error {
		detail := fmt.Sprintf("user=%d ticket_type=%d quantity=%d unit_price=%s",
			e.UserID, e.TicketTypeID, e.Quantity, e.UnitPrice)
		return w.record(ctx, e.BaseEvent, e.OrderID, detail)
	})
	eventHandler.OnOrderApproved(func(ctx context.Context, e *models.OrderApprovedEvent) error {
		return w.record(ctx, e.BaseEvent, e.OrderID, fmt.Sprintf("admin=%d", e.AdminID))
	})
	eventHandler.OnOrderRejected(func(ctx context.Context, e *models.OrderRejectedEvent) error {
		detail := fmt.Sprintf("admin=%d ticket_type=%d quantity=%d restored",
			e.AdminID, e.TicketTypeID, e.Quantity)
		return w.record(ctx, e.BaseEvent, e.OrderID, detail)
	})
	eventHandler.OnOrderExpired(func(ctx context.Context, e *models.OrderExpiredEvent) error {
		detail := fmt.Sprintf("ticket_type=%d quantity=%d restored", e.TicketTypeID, e.Quantity)
		return w.record(ctx, e.BaseEvent, e.OrderID, detail)
	})
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *AuditWorker) Start(ctx context.Context) error {
	log.Println("Starting audit worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	log.Println("Stopping audit worker...")
	return w.consumer.Close()
}

func (w *AuditWorker) record(ctx context.Context, base models.BaseEvent, orderID int64, detail string) error {
	processed, err := w.store.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", base.EventID))
		return nil
	}

	audit := &models.OrderAudit{
		OrderID:   orderID,
		EventType: base.EventType,
		Detail:    detail,
	}
	if err := w.store.RecordOrderAudit(ctx, audit); err != nil {
		return fmt.Errorf("failed to record audit: %w", err)
	}

	util.AuditRecordsTotal.WithLabelValues(base.EventType).Inc()

	if err := w.store.MarkEventProcessed(ctx, base.EventID, base.EventType); err != nil {
		w.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}
