package domain

import "math"

// GeoPoint is an immutable latitude/longitude pair. Always passed by value.
type GeoPoint struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// GeoErrorKind classifies a failed geocoding operation.
type GeoErrorKind string

const (
	// GeoErrNotFound means the provider answered but returned zero results.
	// Not retryable; not cached, so a later call asks the provider again.
	GeoErrNotFound GeoErrorKind = "not_found"
	// GeoErrTransient covers network failures, timeouts, malformed
	// responses, and provider overload. A retry may succeed.
	GeoErrTransient GeoErrorKind = "transient"
)

// GeocodeResult is the structured outcome of a forward or reverse geocode.
// Failed lookups are represented with Success=false rather than a Go error;
// only a missing API key escapes as an error from the gateway.
type GeocodeResult struct {
	Success          bool              `json:"success"`
	Point            *GeoPoint         `json:"point,omitempty"`
	FormattedAddress string            `json:"formatted_address,omitempty"`
	Components       map[string]string `json:"components,omitempty"` // city / area / country
	PlaceID          string            `json:"place_id,omitempty"`
	ErrorKind        GeoErrorKind      `json:"error_kind,omitempty"`
	RawStatus        string            `json:"raw_status,omitempty"`
}

// DistanceResult is a point-to-point distance/duration estimate.
// Derived on demand, never persisted.
type DistanceResult struct {
	DistanceMeters  int    `json:"distance_meters"`
	DistanceText    string `json:"distance_text"`
	DurationSeconds int    `json:"duration_seconds"`
	DurationText    string `json:"duration_text"`
}

const earthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b GeoPoint) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
