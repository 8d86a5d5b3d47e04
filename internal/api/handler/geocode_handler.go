package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/matjarly/dispatch-core/internal/core/domain"
	"github.com/matjarly/dispatch-core/internal/core/ports"
)

// GeocodeHandler exposes the geocoding gateway. Lookup misses are not HTTP
// errors: the structured result carries the failure kind so clients can
// distinguish "no such address" from "provider down".
type GeocodeHandler struct {
	geocoder ports.Geocoder
}

func NewGeocodeHandler(geocoder ports.Geocoder) *GeocodeHandler {
	return &GeocodeHandler{geocoder: geocoder}
}

// Geocode resolves an address to coordinates.
//
// @Summary      Forward geocode
// @Tags         geo
// @Produce      json
// @Param        address  query     string  true  "Address text"
// @Success      200      {object}  domain.GeocodeResult
// @Failure      400      {object}  map[string]string
// @Failure      503      {object}  map[string]string
// @Router       /geo/geocode [get]
func (h *GeocodeHandler) Geocode(c echo.Context) error {
	address := c.QueryParam("address")
	if address == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "address is required")
	}

	result, err := h.geocoder.Geocode(c.Request().Context(), address)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ReverseGeocode resolves coordinates to an address.
//
// @Summary      Reverse geocode
// @Tags         geo
// @Produce      json
// @Param        lat  query     number  true  "Latitude"
// @Param        lng  query     number  true  "Longitude"
// @Success      200  {object}  domain.GeocodeResult
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /geo/reverse [get]
func (h *GeocodeHandler) ReverseGeocode(c echo.Context) error {
	lat, err := strconv.ParseFloat(c.QueryParam("lat"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "lat must be a number")
	}
	lng, err := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "lng must be a number")
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return echo.NewHTTPError(http.StatusBadRequest, "coordinates out of range")
	}

	result, err := h.geocoder.ReverseGeocode(c.Request().Context(), domain.GeoPoint{Lat: lat, Lng: lng})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ResolveCode resolves a share-location code to an address and point.
//
// @Summary      Resolve share-location code
// @Tags         geo
// @Produce      json
// @Param        code  path      string  true  "Share-location code"
// @Success      200   {object}  domain.GeocodeResult
// @Failure      400   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /geo/share-code/{code} [get]
func (h *GeocodeHandler) ResolveCode(c echo.Context) error {
	code := c.Param("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}

	result, err := h.geocoder.ResolveShareLocationCode(c.Request().Context(), code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type placeInput struct {
	Lat  *float64 `json:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty"`
	Text string   `json:"text,omitempty"`
}

func (p placeInput) toPlace() (ports.Place, bool) {
	if p.Lat != nil && p.Lng != nil {
		return ports.Place{Point: &domain.GeoPoint{Lat: *p.Lat, Lng: *p.Lng}}, true
	}
	if p.Text != "" {
		return ports.Place{Text: p.Text}, true
	}
	return ports.Place{}, false
}

type distanceRequest struct {
	Origin      placeInput `json:"origin"`
	Destination placeInput `json:"destination"`
}

// Distance computes driving distance and ETA between two places, each
// given as a coordinate pair or free text.
//
// @Summary      Distance between two places
// @Tags         geo
// @Accept       json
// @Produce      json
// @Param        body  body      distanceRequest  true  "Origin and destination"
// @Success      200   {object}  domain.DistanceResult
// @Failure      400   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /geo/distance [post]
func (h *GeocodeHandler) Distance(c echo.Context) error {
	var req distanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	origin, ok := req.Origin.toPlace()
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "origin needs lat/lng or text")
	}
	destination, ok := req.Destination.toPlace()
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "destination needs lat/lng or text")
	}

	result, err := h.geocoder.Distance(c.Request().Context(), origin, destination)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type validateAddressRequest struct {
	Address  string `json:"address" validate:"required"`
	Locality string `json:"locality" validate:"required"`
}

// ValidateAddress checks that an address resolves inside a locality.
//
// @Summary      Validate address locality
// @Tags         geo
// @Accept       json
// @Produce      json
// @Param        body  body      validateAddressRequest  true  "Address and expected locality"
// @Success      200   {object}  ports.AddressValidation
// @Failure      400   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /geo/validate [post]
func (h *GeocodeHandler) ValidateAddress(c echo.Context) error {
	var req validateAddressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.geocoder.ValidateAddress(c.Request().Context(), req.Address, req.Locality)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// TestConnection checks provider connectivity. Admin only.
//
// @Summary      Test geocoding provider connectivity
// @Tags         geo
// @Produce      json
// @Success      200  {object}  ports.ConnectionStatus
// @Router       /geo/test [get]
func (h *GeocodeHandler) TestConnection(c echo.Context) error {
	status, err := h.geocoder.TestConnection(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}
