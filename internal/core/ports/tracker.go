package ports

import "github.com/matjarly/dispatch-core/internal/core/domain"

// PositionSource exposes last-known driver positions to read paths that
// need them for proximity math. Lookups never block.
type PositionSource interface {
	LastPosition(driverID string) (domain.DriverLocationSample, bool)
}
