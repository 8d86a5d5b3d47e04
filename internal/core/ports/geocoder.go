package ports

import (
	"context"
	"strconv"

	"github.com/matjarly/dispatch-core/internal/core/domain"
)

// Place identifies one side of a distance query: either a coordinate pair
// or a free-text location. Point wins when both are set.
type Place struct {
	Point *domain.GeoPoint
	Text  string
}

// String renders the place in provider query form: "lat,lng" for a
// coordinate pair, the raw text otherwise.
func (p Place) String() string {
	if p.Point != nil {
		return strconv.FormatFloat(p.Point.Lat, 'f', -1, 64) + "," +
			strconv.FormatFloat(p.Point.Lng, 'f', -1, 64)
	}
	return p.Text
}

// AddressValidation is the outcome of ValidateAddress. A locality mismatch
// is informational, not an error: both sides are surfaced for display.
type AddressValidation struct {
	Valid            bool             `json:"valid"`
	Point            *domain.GeoPoint `json:"point,omitempty"`
	ResolvedCity     string           `json:"resolved_city,omitempty"`
	ExpectedLocality string           `json:"expected_locality,omitempty"`
	Reason           string           `json:"reason,omitempty"`
}

// ConnectionStatus reports the result of a provider connectivity check.
type ConnectionStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Geocoder is the gateway to the external geocoding/distance provider.
// Expected failure modes (zero results, provider errors, transport
// failures) are represented inside the returned values; the only Go error
// surfaced is domain.ErrMissingAPIKey, for which no fallback exists.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.GeocodeResult, error)
	ReverseGeocode(ctx context.Context, point domain.GeoPoint) (domain.GeocodeResult, error)

	// ResolveShareLocationCode forward-geocodes a short location code and
	// then reverse-geocodes the resulting point to obtain a human-readable
	// address, degrading to the forward result's address when the second
	// step fails.
	ResolveShareLocationCode(ctx context.Context, code string) (domain.GeocodeResult, error)

	ValidateAddress(ctx context.Context, address, expectedLocality string) (AddressValidation, error)
	Distance(ctx context.Context, origin, destination Place) (domain.DistanceResult, error)
	TestConnection(ctx context.Context) (ConnectionStatus, error)
}
