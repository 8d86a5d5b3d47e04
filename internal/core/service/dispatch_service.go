package service

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/matjarly/dispatch-core/internal/core/domain"
	"github.com/matjarly/dispatch-core/internal/core/ports"
)

// DispatchService assembles the driver's working view: assigned orders
// sorted against the last-known position, and on-demand route lookups.
type DispatchService struct {
	orders    ports.OrderRepository
	positions ports.PositionSource
	geocoder  ports.Geocoder
	log       zerolog.Logger
}

func NewDispatchService(orders ports.OrderRepository, positions ports.PositionSource, geocoder ports.Geocoder, log zerolog.Logger) *DispatchService {
	return &DispatchService{orders: orders, positions: positions, geocoder: geocoder, log: log}
}

// AssignedOrders implements ports.DispatchService. Distances are straight
// haversine against the driver's last sample; orders without coordinates,
// or all orders when no position is known, carry HasDistance=false and
// sort after measured ones in every mode.
func (s *DispatchService) AssignedOrders(ctx context.Context, driverID string, mode ports.SortMode) ([]ports.OrderWithDistance, error) {
	orders, err := s.orders.ListAssigned(ctx, driverID)
	if err != nil {
		return nil, err
	}

	sample, hasPosition := s.positions.LastPosition(driverID)

	out := make([]ports.OrderWithDistance, 0, len(orders))
	for _, o := range orders {
		item := ports.OrderWithDistance{Order: o}
		if hasPosition && o.Location != nil {
			item.DistanceMeters = domain.Haversine(sample.Point, *o.Location)
			item.HasDistance = true
		}
		out = append(out, item)
	}

	sortOrders(out, mode)
	return out, nil
}

// sortOrders orders the view per mode. CreatedAt breaks distance ties so
// the ordering is stable across refreshes.
func sortOrders(items []ports.OrderWithDistance, mode ports.SortMode) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]

		// unmeasured orders trail in every mode, not just distance ones
		if a.HasDistance != b.HasDistance {
			return a.HasDistance
		}

		switch mode {
		case ports.SortNewest:
			return a.Order.CreatedAt.After(b.Order.CreatedAt)
		case ports.SortOldest:
			return a.Order.CreatedAt.Before(b.Order.CreatedAt)
		}

		if !a.HasDistance {
			return a.Order.CreatedAt.Before(b.Order.CreatedAt)
		}
		if a.DistanceMeters != b.DistanceMeters {
			if mode == ports.SortFarthest {
				return a.DistanceMeters > b.DistanceMeters
			}
			return a.DistanceMeters < b.DistanceMeters
		}
		return a.Order.CreatedAt.Before(b.Order.CreatedAt)
	})
}

// Route implements ports.DispatchService. The computation is always fresh:
// the driver moved since any previous answer, so nothing is cached.
func (s *DispatchService) Route(ctx context.Context, driverID, orderID string) (domain.DistanceResult, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.DistanceResult{}, err
	}
	if order.AssignedDriverID != driverID {
		return domain.DistanceResult{}, domain.ErrForbidden
	}
	if order.Location == nil {
		return domain.DistanceResult{}, domain.ErrDistanceUnavailable
	}

	sample, ok := s.positions.LastPosition(driverID)
	if !ok {
		return domain.DistanceResult{}, domain.ErrNoPosition
	}

	origin := ports.Place{Point: &sample.Point}
	destination := ports.Place{Point: order.Location}
	return s.geocoder.Distance(ctx, origin, destination)
}
