package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Provider status codes shared by the geocode and distance-matrix APIs.
const (
	providerStatusOK             = "OK"
	providerStatusZeroResults    = "ZERO_RESULTS"
	providerStatusOverQueryLimit = "OVER_QUERY_LIMIT"
	providerStatusUnknownError   = "UNKNOWN_ERROR"
)

// AddressComponent is one element of the provider's component list,
// classified by type tags.
type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type providerLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type providerGeometry struct {
	Location providerLocation `json:"location"`
}

// GeocodeEntry is a single result in a geocode response.
type GeocodeEntry struct {
	FormattedAddress  string             `json:"formatted_address"`
	PlaceID           string             `json:"place_id"`
	AddressComponents []AddressComponent `json:"address_components"`
	Geometry          providerGeometry   `json:"geometry"`
}

// GeocodeResponse is the provider's answer to a forward or reverse geocode.
type GeocodeResponse struct {
	Status  string         `json:"status"`
	Results []GeocodeEntry `json:"results"`
}

type matrixValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

// MatrixElement is one origin×destination cell of a distance-matrix answer.
type MatrixElement struct {
	Status   string      `json:"status"`
	Distance matrixValue `json:"distance"`
	Duration matrixValue `json:"duration"`
}

type matrixRow struct {
	Elements []MatrixElement `json:"elements"`
}

// DistanceMatrixResponse is the provider's distance-matrix answer.
type DistanceMatrixResponse struct {
	Status string      `json:"status"`
	Rows   []matrixRow `json:"rows"`
}

// Provider is the raw HTTP boundary to the external geocoding service.
// Transport and decode failures come back as Go errors; provider-level
// statuses are left in the response for the gateway to interpret.
type Provider interface {
	Geocode(ctx context.Context, apiKey, address string) (*GeocodeResponse, error)
	ReverseGeocode(ctx context.Context, apiKey string, lat, lng float64) (*GeocodeResponse, error)
	DistanceMatrix(ctx context.Context, apiKey, origin, destination string) (*DistanceMatrixResponse, error)
}

const defaultRequestTimeout = 10 * time.Second

// HTTPProvider talks to the provider's JSON API.
type HTTPProvider struct {
	baseURL string
	httpc   *http.Client
}

// NewHTTPProvider returns a provider client rooted at baseURL.
func NewHTTPProvider(baseURL string) *HTTPProvider {
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com/maps/api"
	}
	return &HTTPProvider{
		baseURL: baseURL,
		httpc: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}
}

func (p *HTTPProvider) Geocode(ctx context.Context, apiKey, address string) (*GeocodeResponse, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", apiKey)

	var resp GeocodeResponse
	if err := p.getJSON(ctx, "/geocode/json", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (p *HTTPProvider) ReverseGeocode(ctx context.Context, apiKey string, lat, lng float64) (*GeocodeResponse, error) {
	q := url.Values{}
	q.Set("latlng", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("key", apiKey)

	var resp GeocodeResponse
	if err := p.getJSON(ctx, "/geocode/json", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (p *HTTPProvider) DistanceMatrix(ctx context.Context, apiKey, origin, destination string) (*DistanceMatrixResponse, error) {
	q := url.Values{}
	q.Set("origins", origin)
	q.Set("destinations", destination)
	q.Set("key", apiKey)

	var resp DistanceMatrixResponse
	if err := p.getJSON(ctx, "/distancematrix/json", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return errors.Wrap(err, "parse base url")
	}
	u.Path += path
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "new request")
	}

	resp, err := p.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return errors.Errorf("provider http %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
