package ports

import (
	"context"
	"time"

	"github.com/matjarly/dispatch-core/internal/core/domain"
)

// OrderUpdate carries the fields a shipment transition may set alongside
// the new status. Nil pointers leave the stored value untouched.
type OrderUpdate struct {
	Status          domain.ShipmentStatus
	Timestamp       time.Time
	Notes           string
	CollectedAmount *float64
	CancelReason    *string
	DeliveredAt     *time.Time
}

// OrderRepository defines persistence operations for dispatch orders.
// Reads after a successful update must observe that update for the same
// order id (read-your-write consistency per order).
type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)

	// ListAssigned returns all non-terminal orders assigned to the driver.
	ListAssigned(ctx context.Context, driverID string) ([]*domain.Order, error)

	// ApplyTransition atomically sets the new status (plus any transition
	// side fields) and appends a status history entry.
	ApplyTransition(ctx context.Context, orderID string, update OrderUpdate) error

	// SetCollectedAmount corrects the collected amount on an already
	// delivered order without touching status or history.
	SetCollectedAmount(ctx context.Context, orderID string, amount float64) error
}

// NotificationRepository persists transition side-effect notifications.
// Inserts are fire-and-forget: a failure must never fail the transition
// that triggered it.
type NotificationRepository interface {
	Insert(ctx context.Context, n *domain.Notification) error
}
