package ports

import (
	"context"

	"github.com/matjarly/dispatch-core/internal/core/domain"
)

// SortMode selects the ordering of the driver's dispatch view.
type SortMode string

const (
	SortNearest  SortMode = "nearest"
	SortFarthest SortMode = "farthest"
	SortNewest   SortMode = "newest"
	SortOldest   SortMode = "oldest"
)

// ParseSortMode maps a query value to a SortMode, defaulting to nearest.
func ParseSortMode(s string) SortMode {
	switch SortMode(s) {
	case SortFarthest, SortNewest, SortOldest:
		return SortMode(s)
	default:
		return SortNearest
	}
}

// OrderWithDistance pairs an order with its distance from the driver's
// current position. HasDistance is false when either side lacks
// coordinates; such orders sort after all measured ones in every mode.
type OrderWithDistance struct {
	Order          *domain.Order `json:"order"`
	DistanceMeters float64       `json:"distance_meters"`
	HasDistance    bool          `json:"has_distance"`
}

// DispatchService is the driver-facing read path: assigned orders sorted
// by proximity, plus on-demand route computation.
type DispatchService interface {
	// AssignedOrders returns the driver's non-terminal orders in the
	// requested sort order, measured against the last known position.
	AssignedOrders(ctx context.Context, driverID string, mode SortMode) ([]OrderWithDistance, error)

	// Route issues a fresh distance/ETA computation between the driver's
	// current position and the order's stored point. Never cached: routes
	// are short-lived and position-dependent.
	Route(ctx context.Context, driverID, orderID string) (domain.DistanceResult, error)
}
