// Package places locates emergency facilities near a point and annotates
// them with travel distance.
package places

import (
	"context"
	"errors"

	"github.com/ai4care/ai4care/pkg/geo"
)

// Sentinel errors for facility lookups.
var (
	// ErrProviderUnavailable indicates the maps provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("maps provider unavailable")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates missing or out-of-range coordinates.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrInvalidQuery indicates an empty manual location.
	ErrInvalidQuery = errors.New("invalid location query")
	// ErrLocationNotFound indicates the geocoder found no match.
	ErrLocationNotFound = errors.New("location not found")
	// ErrNoDistance indicates the provider had no route between two points.
	ErrNoDistance = errors.New("no distance available")
	// ErrGeocoderUnavailable indicates no geocoder is configured.
	ErrGeocoderUnavailable = errors.New("manual location search is not configured")
)

// Search parameters for emergency rooms.
const (
	SearchRadiusMeters = 2000
	SearchType         = "hospital"
	SearchKeyword      = "emergency"
)

// SearchProvider finds places around a point.
type SearchProvider interface {
	// NearbySearch returns places in the provider's ranking order.
	NearbySearch(ctx context.Context, req NearbyRequest) ([]Place, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// DistanceProvider measures travel distance between two points.
type DistanceProvider interface {
	Distance(ctx context.Context, origin, destination geo.Point) (Distance, error)
}

// Geocoder resolves free text to a point.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (GeocodeResult, error)
}

// NearbyRequest is one place search.
type NearbyRequest struct {
	Location geo.Point
	// RadiusMeters bounds the search. Providers ignore it when
	// RankByDistance is set, since the two cannot be combined.
	RadiusMeters   int
	Type           string
	Keyword        string
	RankByDistance bool
}

// Place is a search hit mapped from the provider payload.
type Place struct {
	PlaceID  string    `json:"placeId"`
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	Location geo.Point `json:"location"`
	Rating   *float64  `json:"rating,omitempty"`
	OpenNow  *bool     `json:"openNow,omitempty"`
	Types    []string  `json:"types,omitempty"`
}

// Distance is one distance-matrix element.
type Distance struct {
	// Text is pre-formatted by the provider, e.g. "1.2 km". It is not
	// sortable without parsing; use Meters.
	Text         string
	Meters       int
	DurationText string
}

// DistanceSource tells where Facility.Distance came from.
type DistanceSource string

const (
	// DistanceSourceProvider means the distance-matrix lookup succeeded.
	DistanceSourceProvider DistanceSource = "provider"
	// DistanceSourceEstimate means the lookup failed and the great-circle
	// distance was used instead.
	DistanceSourceEstimate DistanceSource = "estimate"
)

// Facility is a place annotated with its distance from the user.
type Facility struct {
	Place
	Distance       string         `json:"distance"`
	DistanceMeters int            `json:"distanceMeters"`
	Duration       string         `json:"duration,omitempty"`
	DistanceSource DistanceSource `json:"distanceSource"`
}

// GeocodeResult is the best match for a manual location.
type GeocodeResult struct {
	Location         geo.Point
	FormattedAddress string
}

// AddressSearch is the result of a manual location lookup.
type AddressSearch struct {
	Origin           geo.Point  `json:"origin"`
	FormattedAddress string     `json:"formattedAddress"`
	Facilities       []Facility `json:"facilities"`
}

// ProviderError provides detailed error information from the maps provider.
type ProviderError struct {
	Provider string // Provider that generated the error
	Code     string // Status code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *ProviderError) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
