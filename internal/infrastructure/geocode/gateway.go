// Package geocode wraps the external geocoding/distance provider behind
// the ports.Geocoder interface: cache-first lookups, shared retry policy
// on transient provider signals, and structured success/failure results.
package geocode

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/matjarly/dispatch-core/internal/api/metrics"
	"github.com/matjarly/dispatch-core/internal/core/domain"
	"github.com/matjarly/dispatch-core/internal/core/ports"
	"github.com/matjarly/dispatch-core/internal/pkg/retry"
)

// referencePoint is used by TestConnection: one cheap reverse geocode
// against a fixed, always-resolvable location.
var referencePoint = domain.GeoPoint{Lat: 24.7136, Lng: 46.6753}

// Gateway implements ports.Geocoder against an HTTP provider.
type Gateway struct {
	provider Provider
	cache    Cache
	settings ports.SettingsStore
	envKey   string // static fallback when the settings store has no key
	retrier  *retry.Retrier
	log      zerolog.Logger
}

// NewGateway wires a Gateway. envKey is the restart-time fallback
// credential; the settings store is consulted first on every call so key
// rotations take effect without a restart.
func NewGateway(provider Provider, cache Cache, settings ports.SettingsStore, envKey string, retrier *retry.Retrier, log zerolog.Logger) *Gateway {
	if retrier == nil {
		retrier = retry.New()
	}
	return &Gateway{
		provider: provider,
		cache:    cache,
		settings: settings,
		envKey:   envKey,
		retrier:  retrier,
		log:      log,
	}
}

// apiKey resolves the provider credential: settings store first, env
// fallback second. Absence of both is a configuration error, not a
// transient one.
func (g *Gateway) apiKey(ctx context.Context) (string, error) {
	key, err := g.settings.GetString(ctx, ports.SettingGeocodingAPIKey)
	if err != nil {
		g.log.Warn().Err(err).Msg("settings lookup failed, falling back to env key")
	}
	if key == "" {
		key = g.envKey
	}
	if key == "" {
		return "", domain.ErrMissingAPIKey
	}
	return key, nil
}

// Geocode resolves a free-text address to coordinates. Successful results
// are cached by their normalized query key; failures are not, so a later
// call reaches the provider again.
func (g *Gateway) Geocode(ctx context.Context, address string) (domain.GeocodeResult, error) {
	return g.lookup(ctx, "geocode", GeoKey(address), func(ctx context.Context, apiKey string) (*GeocodeResponse, error) {
		return g.provider.Geocode(ctx, apiKey, address)
	})
}

// ReverseGeocode resolves coordinates to an address and its components.
func (g *Gateway) ReverseGeocode(ctx context.Context, point domain.GeoPoint) (domain.GeocodeResult, error) {
	return g.lookup(ctx, "reverse", RevKey(point), func(ctx context.Context, apiKey string) (*GeocodeResponse, error) {
		return g.provider.ReverseGeocode(ctx, apiKey, point.Lat, point.Lng)
	})
}

func (g *Gateway) lookup(ctx context.Context, op, cacheKey string, call func(ctx context.Context, apiKey string) (*GeocodeResponse, error)) (domain.GeocodeResult, error) {
	if cached, ok := g.cache.Get(ctx, cacheKey); ok {
		metrics.GeocodeCacheTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.GeocodeCacheTotal.WithLabelValues("miss").Inc()

	apiKey, err := g.apiKey(ctx)
	if err != nil {
		return domain.GeocodeResult{}, err
	}

	started := time.Now()
	var resp *GeocodeResponse
	err = g.retrier.Do(ctx, func(ctx context.Context) error {
		r, callErr := call(ctx, apiKey)
		if callErr != nil {
			return retry.Transient(callErr)
		}
		if r.Status == providerStatusOverQueryLimit || r.Status == providerStatusUnknownError {
			return retry.Transient(fmt.Errorf("provider status %s", r.Status))
		}
		resp = r
		return nil
	})
	metrics.ProviderRequestDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())

	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		g.log.Warn().Err(err).Str("op", op).Msg("provider call failed")
		return domain.GeocodeResult{Success: false, ErrorKind: domain.GeoErrTransient}, nil
	}

	metrics.GeocodeRequestsTotal.WithLabelValues(op, resp.Status).Inc()

	if resp.Status != providerStatusOK || len(resp.Results) == 0 {
		return domain.GeocodeResult{
			Success:   false,
			ErrorKind: domain.GeoErrNotFound,
			RawStatus: resp.Status,
		}, nil
	}

	result := mapEntry(resp.Results[0], resp.Status)
	g.cache.Put(ctx, cacheKey, result)
	return result, nil
}

// mapEntry converts the provider's first result into a GeocodeResult.
func mapEntry(e GeocodeEntry, rawStatus string) domain.GeocodeResult {
	return domain.GeocodeResult{
		Success:          true,
		Point:            &domain.GeoPoint{Lat: e.Geometry.Location.Lat, Lng: e.Geometry.Location.Lng},
		FormattedAddress: e.FormattedAddress,
		Components:       extractComponents(e.AddressComponents),
		PlaceID:          e.PlaceID,
		RawStatus:        rawStatus,
	}
}

// extractComponents classifies address components into city/area/country.
// Precedence: locality wins for city; sublocality / sublocality_level_1
// wins for area, with neighborhood as a fallback only while area is still
// unset; the first country-tagged component wins for country.
func extractComponents(components []AddressComponent) map[string]string {
	out := make(map[string]string)
	for _, c := range components {
		for _, t := range c.Types {
			switch t {
			case "locality":
				out["city"] = c.LongName
			case "sublocality", "sublocality_level_1":
				out["area"] = c.LongName
			case "neighborhood":
				if out["area"] == "" {
					out["area"] = c.LongName
				}
			case "country":
				if out["country"] == "" {
					out["country"] = c.LongName
				}
			}
		}
	}
	return out
}

// ResolveShareLocationCode forward-geocodes a proprietary short-location
// code, then always reverse-geocodes the resulting point: the forward
// result for such codes is frequently the encoded string itself rather
// than a usable address. When the second step fails, the forward result's
// own formatted address is kept instead of failing the whole operation.
func (g *Gateway) ResolveShareLocationCode(ctx context.Context, code string) (domain.GeocodeResult, error) {
	forward, err := g.Geocode(ctx, code)
	if err != nil {
		return domain.GeocodeResult{}, err
	}
	if !forward.Success || forward.Point == nil {
		return forward, nil
	}

	reverse, err := g.ReverseGeocode(ctx, *forward.Point)
	if err != nil {
		return domain.GeocodeResult{}, err
	}
	if !reverse.Success {
		g.log.Debug().Str("code", code).Msg("reverse step failed, keeping forward address")
		return forward, nil
	}

	return domain.GeocodeResult{
		Success:          true,
		Point:            forward.Point,
		FormattedAddress: reverse.FormattedAddress,
		Components:       reverse.Components,
		PlaceID:          forward.PlaceID,
		RawStatus:        reverse.RawStatus,
	}, nil
}

// ValidateAddress geocodes the address and, when expectedLocality is
// given, compares it case/whitespace-insensitively against the resolved
// city. A mismatch is informational: both sides are surfaced for display.
func (g *Gateway) ValidateAddress(ctx context.Context, address, expectedLocality string) (ports.AddressValidation, error) {
	result, err := g.Geocode(ctx, address)
	if err != nil {
		return ports.AddressValidation{}, err
	}
	if !result.Success {
		reason := "address could not be resolved"
		if result.ErrorKind == domain.GeoErrTransient {
			reason = "geocoding service unavailable, try again"
		}
		return ports.AddressValidation{Valid: false, Reason: reason}, nil
	}

	resolvedCity := result.Components["city"]
	if expectedLocality != "" && !localityEqual(resolvedCity, expectedLocality) {
		return ports.AddressValidation{
			Valid:            false,
			Point:            result.Point,
			ResolvedCity:     resolvedCity,
			ExpectedLocality: expectedLocality,
			Reason:           "address is outside the expected locality",
		}, nil
	}

	return ports.AddressValidation{
		Valid:            true,
		Point:            result.Point,
		ResolvedCity:     resolvedCity,
		ExpectedLocality: expectedLocality,
	}, nil
}

func localityEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Distance delegates to the provider's distance matrix and reads only the
// first origin×destination element; anything but an OK element fails with
// domain.ErrDistanceUnavailable.
func (g *Gateway) Distance(ctx context.Context, origin, destination ports.Place) (domain.DistanceResult, error) {
	apiKey, err := g.apiKey(ctx)
	if err != nil {
		return domain.DistanceResult{}, err
	}

	started := time.Now()
	var resp *DistanceMatrixResponse
	err = g.retrier.Do(ctx, func(ctx context.Context) error {
		r, callErr := g.provider.DistanceMatrix(ctx, apiKey, origin.String(), destination.String())
		if callErr != nil {
			return retry.Transient(callErr)
		}
		if r.Status == providerStatusOverQueryLimit || r.Status == providerStatusUnknownError {
			return retry.Transient(fmt.Errorf("provider status %s", r.Status))
		}
		resp = r
		return nil
	})
	metrics.ProviderRequestDuration.WithLabelValues("distance").Observe(time.Since(started).Seconds())

	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("distance", "transport_error").Inc()
		return domain.DistanceResult{}, fmt.Errorf("%w: %v", domain.ErrDistanceUnavailable, err)
	}

	metrics.GeocodeRequestsTotal.WithLabelValues("distance", resp.Status).Inc()

	if resp.Status != providerStatusOK || len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return domain.DistanceResult{}, fmt.Errorf("%w: provider status %s", domain.ErrDistanceUnavailable, resp.Status)
	}

	element := resp.Rows[0].Elements[0]
	if element.Status != providerStatusOK {
		return domain.DistanceResult{}, fmt.Errorf("%w: element status %s", domain.ErrDistanceUnavailable, element.Status)
	}

	return domain.DistanceResult{
		DistanceMeters:  element.Distance.Value,
		DistanceText:    element.Distance.Text,
		DurationSeconds: element.Duration.Value,
		DurationText:    element.Duration.Text,
	}, nil
}

// TestConnection issues one reverse geocode of a fixed reference point.
// Used by configuration and health-check flows that share the gateway's
// credentials; never part of the dispatch path itself.
func (g *Gateway) TestConnection(ctx context.Context) (ports.ConnectionStatus, error) {
	result, err := g.ReverseGeocode(ctx, referencePoint)
	if err != nil {
		return ports.ConnectionStatus{OK: false, Message: err.Error()}, nil
	}
	if !result.Success {
		msg := "provider unreachable"
		if result.RawStatus != "" {
			msg = "provider answered with status " + result.RawStatus
		}
		return ports.ConnectionStatus{OK: false, Message: msg}, nil
	}
	return ports.ConnectionStatus{OK: true, Message: "resolved " + result.FormattedAddress}, nil
}
