package ports

import (
	"context"

	"github.com/matjarly/dispatch-core/internal/core/domain"
)

// Order event types carried on the push channel.
const (
	EventOrderAssigned = "order.assigned"
	EventOrderUpdated  = "order.updated"
)

// OrderEvent notifies a driver session that its assigned-order list is
// stale. Published after every shipment transition and consumed by the
// dispatch feed.
type OrderEvent struct {
	Type     string                `json:"type"`
	OrderID  string                `json:"order_id"`
	DriverID string                `json:"driver_id"`
	Status   domain.ShipmentStatus `json:"status,omitempty"`
}

// OrderEventPublisher pushes order events onto the event bus. Publish
// failures are logged and never fail the transition that produced them.
type OrderEventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}
