package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matjarly/dispatch-core/internal/api/metrics"
	"github.com/matjarly/dispatch-core/internal/core/domain"
	"github.com/matjarly/dispatch-core/internal/core/ports"
)

// ShipmentService advances orders through the shipment state machine and
// fires the transition side effects. Transitions for the same order are
// serialized through striped locks so validate-then-write is atomic per
// order.
type ShipmentService struct {
	orders    ports.OrderRepository
	notifs    ports.NotificationRepository
	publisher ports.OrderEventPublisher
	log       zerolog.Logger

	locks orderLocks
	now   func() time.Time
}

func NewShipmentService(orders ports.OrderRepository, notifs ports.NotificationRepository, publisher ports.OrderEventPublisher, log zerolog.Logger) *ShipmentService {
	return &ShipmentService{
		orders:    orders,
		notifs:    notifs,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Advance implements ports.ShipmentService.
func (s *ShipmentService) Advance(ctx context.Context, input ports.AdvanceInput) (*domain.Order, error) {
	if !input.Target.IsValid() {
		metrics.TransitionErrorsTotal.WithLabelValues("invalid_status").Inc()
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, input.Target)
	}

	mu := s.locks.lock(input.OrderID)
	defer mu.Unlock()

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	if order.AssignedDriverID == "" || order.AssignedDriverID != input.DriverID {
		metrics.TransitionErrorsTotal.WithLabelValues("forbidden").Inc()
		return nil, domain.ErrForbidden
	}

	// Re-issuing the current status is an idempotent success, even on a
	// terminal order. Double-tapping "delivered" must not error. An
	// explicit amount on a delivered re-issue still corrects the record.
	if order.ShipmentStatus == input.Target {
		if input.Target == domain.StatusDelivered && input.CollectedAmount != nil && *input.CollectedAmount != order.CollectedAmount {
			if err := s.orders.SetCollectedAmount(ctx, order.ID, *input.CollectedAmount); err != nil {
				return nil, err
			}
			order.CollectedAmount = *input.CollectedAmount
		}
		return order, nil
	}

	if order.ShipmentStatus.IsTerminal() {
		metrics.TransitionErrorsTotal.WithLabelValues("terminal").Inc()
		return nil, fmt.Errorf("%w: order already %s", domain.ErrInvalidTransition, order.ShipmentStatus)
	}
	if !order.ShipmentStatus.CanTransitionTo(input.Target) {
		metrics.TransitionErrorsTotal.WithLabelValues("invalid_transition").Inc()
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.ShipmentStatus, input.Target)
	}

	if (input.Target == domain.StatusCancelled || input.Target == domain.StatusReturned) && input.Reason == nil {
		metrics.TransitionErrorsTotal.WithLabelValues("reason_required").Inc()
		return nil, domain.ErrReasonRequired
	}

	now := s.now()
	update := ports.OrderUpdate{
		Status:    input.Target,
		Timestamp: now,
		Notes:     input.Note,
	}

	switch input.Target {
	case domain.StatusDelivered:
		amount := s.collectedAmount(order, input.CollectedAmount)
		update.CollectedAmount = &amount
		update.DeliveredAt = &now
	case domain.StatusCancelled, domain.StatusReturned:
		update.CancelReason = input.Reason
	}

	if err := s.orders.ApplyTransition(ctx, order.ID, update); err != nil {
		return nil, err
	}
	metrics.TransitionsTotal.WithLabelValues(string(input.Target)).Inc()

	updated := s.applyLocal(order, update)
	s.emitSideEffects(ctx, updated, input)
	return updated, nil
}

// collectedAmount resolves what was collected on delivery: an explicit
// value always wins, then the COD amount when positive, then the order
// total.
func (s *ShipmentService) collectedAmount(order *domain.Order, explicit *float64) float64 {
	if explicit != nil {
		return *explicit
	}
	if order.CODAmount > 0 {
		return order.CODAmount
	}
	return order.TotalAmount
}

// applyLocal mirrors the persisted update onto the in-memory order so the
// caller gets the post-transition view without a second read.
func (s *ShipmentService) applyLocal(order *domain.Order, update ports.OrderUpdate) *domain.Order {
	updated := *order
	updated.ShipmentStatus = update.Status
	updated.UpdatedAt = update.Timestamp
	if update.CollectedAmount != nil {
		updated.CollectedAmount = *update.CollectedAmount
	}
	if update.CancelReason != nil {
		updated.CancelReason = *update.CancelReason
	}
	if update.DeliveredAt != nil {
		updated.DeliveredAt = update.DeliveredAt
	}
	updated.StatusHistory = append(append([]domain.StatusHistoryEntry{}, order.StatusHistory...), domain.StatusHistoryEntry{
		Status:    update.Status,
		Timestamp: update.Timestamp,
		Notes:     update.Notes,
	})
	return &updated
}

// emitSideEffects fires the non-fatal followups of a committed transition:
// the owner notification for cancel/return and the order event for the
// driver feed. Failures are logged, never surfaced.
func (s *ShipmentService) emitSideEffects(ctx context.Context, order *domain.Order, input ports.AdvanceInput) {
	if n := s.buildNotification(order, input); n != nil {
		if err := s.notifs.Insert(ctx, n); err != nil {
			s.log.Error().Err(err).Str("order_id", order.ID).Msg("notification insert failed")
		} else {
			metrics.NotificationsEmittedTotal.WithLabelValues(string(n.Type)).Inc()
		}
	}

	if s.publisher != nil {
		event := ports.OrderEvent{
			Type:     ports.EventOrderUpdated,
			OrderID:  order.ID,
			DriverID: order.AssignedDriverID,
			Status:   order.ShipmentStatus,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.log.Error().Err(err).Str("order_id", order.ID).Msg("order event publish failed")
		}
	}
}

func (s *ShipmentService) buildNotification(order *domain.Order, input ports.AdvanceInput) *domain.Notification {
	var typ domain.NotificationType
	var title, message string

	switch input.Target {
	case domain.StatusCancelled:
		typ = domain.NotificationOrderCancelled
		title = "Order cancelled"
		message = fmt.Sprintf("Order %s was cancelled by the driver", order.InvoiceNumber)
	case domain.StatusReturned:
		typ = domain.NotificationOrderReturned
		title = "Order returned"
		message = fmt.Sprintf("Order %s was returned by the driver", order.InvoiceNumber)
	default:
		return nil
	}

	if input.Reason != nil && *input.Reason != "" {
		message = fmt.Sprintf("%s: %s", message, *input.Reason)
	}

	return &domain.Notification{
		ID:              uuid.NewString(),
		UserID:          order.UserID,
		Type:            typ,
		Title:           title,
		Message:         message,
		RelatedID:       order.ID,
		RelatedType:     "order",
		TriggeredBy:     input.DriverID,
		TriggeredByRole: domain.RoleDriver,
		CreatedAt:       s.now(),
	}
}
