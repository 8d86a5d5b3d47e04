package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/matjarly/dispatch-core/internal/core/domain"
	"github.com/matjarly/dispatch-core/internal/core/ports"
	"github.com/matjarly/dispatch-core/internal/core/tracker"
)

// DispatchHandler serves the driver-facing dispatch surface: the assigned
// order list, shipment transitions, route lookups and position updates.
type DispatchHandler struct {
	shipments ports.ShipmentService
	dispatch  ports.DispatchService
	tracker   *tracker.Manager
}

func NewDispatchHandler(shipments ports.ShipmentService, dispatch ports.DispatchService, trk *tracker.Manager) *DispatchHandler {
	return &DispatchHandler{shipments: shipments, dispatch: dispatch, tracker: trk}
}

type advanceRequest struct {
	Status          string   `json:"status" validate:"required"`
	Note            string   `json:"note,omitempty"`
	Reason          *string  `json:"reason,omitempty"`
	CollectedAmount *float64 `json:"collected_amount,omitempty"`
}

type locationRequest struct {
	Lat        float64    `json:"lat" validate:"min=-90,max=90"`
	Lng        float64    `json:"lng" validate:"min=-180,max=180"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
}

type locationResponse struct {
	Applied bool `json:"applied"`
}

// ListOrders returns the driver's assigned orders.
//
// @Summary      List assigned orders
// @Tags         dispatch
// @Produce      json
// @Param        sort  query     string  false  "Sort mode: nearest, farthest, newest, oldest"
// @Success      200   {array}   ports.OrderWithDistance
// @Failure      401   {object}  map[string]string
// @Router       /dispatch/orders [get]
func (h *DispatchHandler) ListOrders(c echo.Context) error {
	_, driverID, err := ctxClaims(c)
	if err != nil {
		return err
	}

	mode := ports.ParseSortMode(c.QueryParam("sort"))
	orders, err := h.dispatch.AssignedOrders(c.Request().Context(), driverID, mode)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orders)
}

// Advance moves an order through the shipment state machine.
//
// @Summary      Advance shipment status
// @Tags         dispatch
// @Accept       json
// @Produce      json
// @Param        id    path      string          true  "Order id"
// @Param        body  body      advanceRequest  true  "Target status and transition details"
// @Success      200   {object}  domain.Order
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /dispatch/orders/{id}/advance [post]
func (h *DispatchHandler) Advance(c echo.Context) error {
	_, driverID, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req advanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	order, err := h.shipments.Advance(c.Request().Context(), ports.AdvanceInput{
		OrderID:         c.Param("id"),
		DriverID:        driverID,
		Target:          domain.ShipmentStatus(req.Status),
		Note:            req.Note,
		Reason:          req.Reason,
		CollectedAmount: req.CollectedAmount,
	})
	if err != nil {
		return err
	}

	// a transition changes the view: nudge the driver's feed loop
	h.tracker.Trigger(driverID)

	return c.JSON(http.StatusOK, order)
}

// Route computes a fresh route from the driver's position to an order.
//
// @Summary      Route to order
// @Tags         dispatch
// @Produce      json
// @Param        id   path      string  true  "Order id"
// @Success      200  {object}  domain.DistanceResult
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /dispatch/orders/{id}/route [get]
func (h *DispatchHandler) Route(c echo.Context) error {
	_, driverID, err := ctxClaims(c)
	if err != nil {
		return err
	}

	result, err := h.dispatch.Route(c.Request().Context(), driverID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// UpdateLocation records the driver's current position.
//
// @Summary      Update driver position
// @Tags         dispatch
// @Accept       json
// @Produce      json
// @Param        body  body      locationRequest  true  "Position sample"
// @Success      200   {object}  locationResponse
// @Failure      400   {object}  map[string]string
// @Router       /dispatch/location [post]
func (h *DispatchHandler) UpdateLocation(c echo.Context) error {
	_, driverID, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req locationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	observedAt := time.Now().UTC()
	if req.ObservedAt != nil {
		observedAt = req.ObservedAt.UTC()
	}

	applied := h.tracker.UpdatePosition(domain.DriverLocationSample{
		DriverID:   driverID,
		Point:      domain.GeoPoint{Lat: req.Lat, Lng: req.Lng},
		ObservedAt: observedAt,
	})
	return c.JSON(http.StatusOK, locationResponse{Applied: applied})
}
