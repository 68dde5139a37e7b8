package service

import (
	"context"

	"ticketing-service/internal/models"
	"ticketing-service/internal/util"

	"go.uber.org/zap"
)

// ApprovalStore resolves order ownership and pending-order listings.
type ApprovalStore interface {
	OwnerAdminIDForOrder(ctx context.Context, orderID int64) (int64, error)
	ListPendingByAdmin(ctx context.Context, adminID int64) ([]models.PendingOrder, error)
}

// ApprovalWorkflow drives an order from pending to a terminal state on
// admin action. The ownership check runs before any mutation: only the
// admin who owns the event behind the order may finalize it.
type ApprovalWorkflow struct {
	store     ApprovalStore
	engine    *ReservationEngine
	publisher EventPublisher
	logger    *zap.Logger
}

// NewApprovalWorkflow creates a new approval workflow
func NewApprovalWorkflow(store ApprovalStore, engine *ReservationEngine, publisher EventPublisher) *ApprovalWorkflow {
	return &ApprovalWorkflow{
		store:     store,
		engine:    engine,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// Approve finalizes a pending order as approved. Stock is not touched; it
// was decremented when the reservation was placed.
func (w *ApprovalWorkflow) Approve(ctx context.Context, orderID, adminID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "ApprovalWorkflow.Approve")
	defer span.End()

	if err := w.authorize(ctx, orderID, adminID); err != nil {
		return nil, err
	}

	order, err := w.engine.Commit(ctx, orderID)
	if err != nil {
		return nil, err
	}

	util.OrdersApprovedTotal.Inc()
	w.logger.Info("Order approved",
		zap.Int64("order_id", orderID),
		zap.Int64("admin_id", adminID))

	if w.publisher != nil {
		event := &models.OrderApprovedEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderApproved),
			OrderID:   orderID,
			AdminID:   adminID,
		}
		if err := w.publisher.PublishOrderApproved(ctx, event); err != nil {
			w.logger.Error("Failed to publish OrderApproved event", zap.Error(err))
		}
	}

	return order, nil
}

// Reject finalizes a pending order as rejected and restores its stock.
func (w *ApprovalWorkflow) Reject(ctx context.Context, orderID, adminID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "ApprovalWorkflow.Reject")
	defer span.End()

	if err := w.authorize(ctx, orderID, adminID); err != nil {
		return nil, err
	}

	order, err := w.engine.Release(ctx, orderID)
	if err != nil {
		return nil, err
	}

	util.OrdersRejectedTotal.Inc()
	w.logger.Info("Order rejected",
		zap.Int64("order_id", orderID),
		zap.Int64("admin_id", adminID))

	if w.publisher != nil {
		event := &models.OrderRejectedEvent{
			BaseEvent:    newBaseEvent(models.EventTypeOrderRejected),
			OrderID:      orderID,
			AdminID:      adminID,
			TicketTypeID: order.TicketTypeID,
			Quantity:     order.Quantity,
		}
		if err := w.publisher.PublishOrderRejected(ctx, event); err != nil {
			w.logger.Error("Failed to publish OrderRejected event", zap.Error(err))
		}
	}

	return order, nil
}

// ListPending lists pending orders against events owned by the admin.
func (w *ApprovalWorkflow) ListPending(ctx context.Context, adminID int64) ([]models.PendingOrder, error) {
	return w.store.ListPendingByAdmin(ctx, adminID)
}

func (w *ApprovalWorkflow) authorize(ctx context.Context, orderID, adminID int64) error {
	owner, err := w.store.OwnerAdminIDForOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if owner != adminID {
		w.logger.Warn("Approval attempt by non-owner",
			zap.Int64("order_id", orderID),
			zap.Int64("admin_id", adminID))
		return models.ErrForbidden
	}
	return nil
}
