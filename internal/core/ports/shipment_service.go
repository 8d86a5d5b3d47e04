package ports

import (
	"context"

	"github.com/matjarly/dispatch-core/internal/core/domain"
)

// AdvanceInput carries a shipment transition request from the transport
// layer. DriverID is the authenticated actor, trusted as already checked
// by the auth middleware.
type AdvanceInput struct {
	OrderID  string
	DriverID string
	Target   domain.ShipmentStatus

	// Note is an optional free-text remark for plain status updates.
	Note string
	// Reason must be present (may be empty string) for cancelled/returned.
	Reason *string
	// CollectedAmount, when supplied, always wins over the default
	// (codAmount if positive, else the order total) on delivery.
	CollectedAmount *float64
}

// ShipmentService advances orders through the shipment state machine.
type ShipmentService interface {
	// Advance executes one transition and its side effects. Re-issuing the
	// current status is an idempotent no-op success.
	Advance(ctx context.Context, input AdvanceInput) (*domain.Order, error)
}
