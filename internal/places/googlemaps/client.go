// Package googlemaps provides a client for the Google Places Nearby Search,
// Distance Matrix and Geocoding APIs.
package googlemaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ai4care/ai4care/internal/places"
	"github.com/ai4care/ai4care/internal/provider/resilience"
	"github.com/ai4care/ai4care/pkg/geo"
)

const (
	// ProviderName identifies this maps provider.
	ProviderName = "googlemaps"

	// DefaultBaseURL is the Google Maps web services base URL.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Recorder receives one observation per API call.
type Recorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
}

// ClientConfig holds configuration for the Google Maps client.
type ClientConfig struct {
	// APIKey is the Maps API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to Google).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// MaxRetries for the default resilient client. Zero, the default,
	// means failed calls are never repeated.
	MaxRetries uint64

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Metrics records per-call latency and errors (optional).
	Metrics Recorder

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Google Maps API client. It implements places.SearchProvider,
// places.DistanceProvider and places.Geocoder.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	metrics    Recorder
	logger     zerolog.Logger
}

// NewClient creates a new Google Maps client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.SingleShotConfig(ProviderName, timeout)
		clientCfg.MaxRetries = cfg.MaxRetries
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// NearbySearch queries Places Nearby Search. Entries without a name or a
// complete location are dropped.
func (c *Client) NearbySearch(ctx context.Context, req places.NearbyRequest) ([]places.Place, error) {
	if err := req.Location.Validate(); err != nil {
		return nil, &places.ProviderError{
			Provider: ProviderName,
			Code:     "INVALID_LOCATION",
			Message:  "invalid search location",
			Err:      places.ErrInvalidCoordinates,
		}
	}

	q := url.Values{}
	q.Set("location", req.Location.String())
	if req.RankByDistance {
		// radius must not be sent together with rankby=distance
		q.Set("rankby", "distance")
	} else if req.RadiusMeters > 0 {
		q.Set("radius", strconv.Itoa(req.RadiusMeters))
	}
	if req.Type != "" {
		q.Set("type", req.Type)
	}
	if req.Keyword != "" {
		q.Set("keyword", req.Keyword)
	}

	var resp nearbyResponse
	if err := c.get(ctx, "nearbysearch", "/place/nearbysearch/json", q, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case statusOK:
	case statusZeroResults:
		return []places.Place{}, nil
	default:
		return nil, statusError(resp.Status, resp.ErrorMessage)
	}

	result := make([]places.Place, 0, len(resp.Results))
	skipped := 0
	for i := range resp.Results {
		p, ok := toPlace(&resp.Results[i])
		if !ok {
			skipped++
			continue
		}
		result = append(result, p)
	}

	c.logger.Debug().
		Int("place_count", len(result)).
		Int("skipped", skipped).
		Msg("received nearby search results")

	return result, nil
}

// Distance returns the first Distance Matrix element from origin to
// destination.
func (c *Client) Distance(ctx context.Context, origin, destination geo.Point) (places.Distance, error) {
	q := url.Values{}
	q.Set("origins", origin.String())
	q.Set("destinations", destination.String())

	var resp distanceMatrixResponse
	if err := c.get(ctx, "distancematrix", "/distancematrix/json", q, &resp); err != nil {
		return places.Distance{}, err
	}

	if resp.Status != statusOK {
		return places.Distance{}, statusError(resp.Status, resp.ErrorMessage)
	}

	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return places.Distance{}, &places.ProviderError{
			Provider: ProviderName,
			Code:     "EMPTY_MATRIX",
			Message:  "distance matrix has no elements",
			Err:      places.ErrNoDistance,
		}
	}

	el := resp.Rows[0].Elements[0]
	if el.Status != statusOK || el.Distance == nil {
		return places.Distance{}, &places.ProviderError{
			Provider: ProviderName,
			Code:     el.Status,
			Message:  "no distance between the given points",
			Err:      places.ErrNoDistance,
		}
	}

	d := places.Distance{
		Text:   el.Distance.Text,
		Meters: el.Distance.Value,
	}
	if el.Duration != nil {
		d.DurationText = el.Duration.Text
	}
	return d, nil
}

// Geocode resolves address to its best match.
func (c *Client) Geocode(ctx context.Context, address string) (places.GeocodeResult, error) {
	q := url.Values{}
	q.Set("address", address)

	var resp geocodeResponse
	if err := c.get(ctx, "geocode", "/geocode/json", q, &resp); err != nil {
		return places.GeocodeResult{}, err
	}

	switch resp.Status {
	case statusOK:
	case statusZeroResults:
		return places.GeocodeResult{}, places.ErrLocationNotFound
	default:
		return places.GeocodeResult{}, statusError(resp.Status, resp.ErrorMessage)
	}

	for _, r := range resp.Results {
		loc := r.Geometry.Location
		if loc.Lat == nil || loc.Lng == nil {
			continue
		}
		p := geo.Point{Lat: *loc.Lat, Lng: *loc.Lng}
		if p.Validate() != nil {
			continue
		}
		return places.GeocodeResult{Location: p, FormattedAddress: r.FormattedAddress}, nil
	}
	return places.GeocodeResult{}, places.ErrLocationNotFound
}

// get performs one GET against path and decodes the JSON body into target.
func (c *Client) get(ctx context.Context, operation, path string, q url.Values, target any) (err error) {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordRequest(ProviderName, operation, time.Since(start), err)
		}
	}()

	c.logger.Debug().
		Str("operation", operation).
		Msg("requesting google maps")

	q.Set("key", c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// url.Error repeats the request URL, which carries the API key
		cause := err
		var uerr *url.Error
		if errors.As(err, &uerr) {
			cause = uerr.Err
		}
		return &places.ProviderError{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach maps provider",
			Err:      fmt.Errorf("%w: %w", places.ErrProviderUnavailable, cause),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return httpError(resp.StatusCode)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return &places.ProviderError{
			Provider: ProviderName,
			Code:     "DECODE_FAILED",
			Message:  "maps provider returned malformed JSON",
			Err:      fmt.Errorf("%w: %w", places.ErrProviderUnavailable, err),
		}
	}
	return nil
}

// statusError maps an API-level status to a domain error.
func statusError(status, message string) error {
	if message == "" {
		message = "maps provider returned status " + status
	}
	switch status {
	case statusOverQueryLimit:
		return &places.ProviderError{Provider: ProviderName, Code: status, Message: message, Err: places.ErrRateLimitExceeded}
	case statusInvalidRequest:
		return &places.ProviderError{Provider: ProviderName, Code: status, Message: message, Err: places.ErrInvalidCoordinates}
	case statusNotFound:
		return &places.ProviderError{Provider: ProviderName, Code: status, Message: message, Err: places.ErrLocationNotFound}
	default:
		return &places.ProviderError{Provider: ProviderName, Code: status, Message: message, Err: places.ErrProviderUnavailable}
	}
}

// httpError maps a non-200 HTTP answer to a domain error.
func httpError(statusCode int) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &places.ProviderError{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      places.ErrRateLimitExceeded,
		}
	case statusCode == http.StatusForbidden:
		return &places.ProviderError{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "API access denied - check API key configuration",
			Err:      places.ErrProviderUnavailable,
		}
	case statusCode >= http.StatusInternalServerError:
		return &places.ProviderError{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "maps provider is temporarily unavailable",
			Err:      places.ErrProviderUnavailable,
		}
	default:
		return &places.ProviderError{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  fmt.Sprintf("maps provider returned status %d", statusCode),
			Err:      places.ErrProviderUnavailable,
		}
	}
}

// toPlace validates a raw search hit.
func toPlace(raw *nearbyPlace) (places.Place, bool) {
	loc := raw.Geometry.Location
	if raw.Name == "" || loc.Lat == nil || loc.Lng == nil {
		return places.Place{}, false
	}
	point := geo.Point{Lat: *loc.Lat, Lng: *loc.Lng}
	if point.Validate() != nil {
		return places.Place{}, false
	}

	p := places.Place{
		PlaceID:  raw.PlaceID,
		Name:     raw.Name,
		Address:  raw.Vicinity,
		Location: point,
		Rating:   raw.Rating,
		Types:    raw.Types,
	}
	if raw.OpeningHours != nil {
		p.OpenNow = raw.OpeningHours.OpenNow
	}
	return p, true
}
