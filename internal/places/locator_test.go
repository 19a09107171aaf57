package places

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4care/ai4care/pkg/geo"
)

var origin = geo.Point{Lat: 52.3676, Lng: 4.9041}

type fakeSearch struct {
	mu       sync.Mutex
	places   []Place
	err      error
	calls    int
	requests []NearbyRequest
}

func (f *fakeSearch) Name() string { return "fake" }

func (f *fakeSearch) NearbySearch(_ context.Context, req NearbyRequest) ([]Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.places, nil
}

func (f *fakeSearch) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDistances struct {
	calls    atomic.Int32
	failFor  map[string]bool
	delays   map[string]time.Duration
	mu       sync.Mutex
	origins  []geo.Point
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeDistances) Distance(ctx context.Context, o, d geo.Point) (Distance, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	f.mu.Lock()
	f.origins = append(f.origins, o)
	f.mu.Unlock()

	key := d.String()
	if delay, ok := f.delays[key]; ok {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Distance{}, ctx.Err()
		}
	}
	if f.failFor[key] {
		return Distance{}, &ProviderError{Provider: "fake", Code: "UNKNOWN_ERROR", Message: "lookup failed", Err: ErrProviderUnavailable}
	}
	return Distance{Text: "dist " + key, Meters: 1000, DurationText: "5 mins"}, nil
}

func testPlaces(n int) []Place {
	out := make([]Place, n)
	for i := range out {
		out[i] = Place{
			PlaceID:  fmt.Sprintf("place-%d", i),
			Name:     fmt.Sprintf("Hospital %d", i),
			Address:  "Street 1",
			Location: geo.Point{Lat: 52.36 + float64(i)*0.001, Lng: 4.90},
		}
	}
	return out
}

func newTestLocator(search SearchProvider, distances DistanceProvider) *Locator {
	return NewLocator(LocatorConfig{
		Search:    search,
		Distances: distances,
		Logger:    zerolog.Nop(),
	})
}

func TestNearbyEmergencyRooms_OneLookupPerPlace(t *testing.T) {
	search := &fakeSearch{places: testPlaces(5)}
	distances := &fakeDistances{}
	loc := newTestLocator(search, distances)

	facilities, err := loc.NearbyEmergencyRooms(context.Background(), origin)
	require.NoError(t, err)

	assert.Equal(t, int32(5), distances.calls.Load())
	require.Len(t, facilities, 5)
	for i, f := range facilities {
		assert.Equal(t, search.places[i].PlaceID, f.PlaceID, "order must follow search ranking")
		assert.Equal(t, "dist "+search.places[i].Location.String(), f.Distance)
		assert.Equal(t, DistanceSourceProvider, f.DistanceSource)
		assert.Equal(t, "5 mins", f.Duration)
	}
	for _, o := range distances.origins {
		assert.Equal(t, origin, o)
	}
}

func TestNearbyEmergencyRooms_SearchParameters(t *testing.T) {
	search := &fakeSearch{}
	loc := newTestLocator(search, &fakeDistances{})

	_, err := loc.NearbyEmergencyRooms(context.Background(), origin)
	require.NoError(t, err)

	require.Len(t, search.requests, 1)
	req := search.requests[0]
	assert.Equal(t, origin, req.Location)
	assert.Equal(t, SearchRadiusMeters, req.RadiusMeters)
	assert.Equal(t, "hospital", req.Type)
	assert.Equal(t, "emergency", req.Keyword)
	assert.True(t, req.RankByDistance)
}

func TestNearbyEmergencyRooms_ZeroResults(t *testing.T) {
	distances := &fakeDistances{}
	loc := newTestLocator(&fakeSearch{}, distances)

	facilities, err := loc.NearbyEmergencyRooms(context.Background(), origin)
	require.NoError(t, err)
	assert.NotNil(t, facilities)
	assert.Empty(t, facilities)
	assert.Zero(t, distances.calls.Load())
}

func TestNearbyEmergencyRooms_SearchFailureIsEmpty(t *testing.T) {
	search := &fakeSearch{err: &ProviderError{Provider: "fake", Code: "REQUEST_DENIED", Message: "denied", Err: ErrProviderUnavailable}}
	loc := newTestLocator(search, &fakeDistances{})

	facilities, err := loc.NearbyEmergencyRooms(context.Background(), origin)
	require.NoError(t, err)
	assert.NotNil(t, facilities)
	assert.Empty(t, facilities)
}

func TestNearbyEmergencyRooms_InvalidCoordinates(t *testing.T) {
	search := &fakeSearch{}
	loc := newTestLocator(search, &fakeDistances{})

	_, err := loc.NearbyEmergencyRooms(context.Background(), geo.Point{Lat: 91, Lng: 0})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
	assert.Zero(t, search.callCount())
}

func TestNearbyEmergencyRooms_FailedLookupUsesEstimate(t *testing.T) {
	places := testPlaces(3)
	distances := &fakeDistances{failFor: map[string]bool{places[1].Location.String(): true}}
	loc := newTestLocator(&fakeSearch{places: places}, distances)

	facilities, err := loc.NearbyEmergencyRooms(context.Background(), origin)
	require.NoError(t, err)
	require.Len(t, facilities, 3)

	assert.Equal(t, DistanceSourceProvider, facilities[0].DistanceSource)
	assert.Equal(t, DistanceSourceProvider, facilities[2].DistanceSource)

	estimated := facilities[1]
	assert.Equal(t, places[1].PlaceID, estimated.PlaceID)
	assert.Equal(t, DistanceSourceEstimate, estimated.DistanceSource)
	km := geo.HaversineKm(origin, places[1].Location)
	assert.Equal(t, geo.FormatKm(km), estimated.Distance)
	assert.InDelta(t, km*1000, float64(estimated.DistanceMeters), 1)
}

func TestNearbyEmergencyRooms_LookupTimeout(t *testing.T) {
	places := testPlaces(2)
	distances := &fakeDistances{delays: map[string]time.Duration{places[0].Location.String(): time.Second}}
	loc := NewLocator(LocatorConfig{
		Search:        &fakeSearch{places: places},
		Distances:     distances,
		LookupTimeout: 20 * time.Millisecond,
		Logger:        zerolog.Nop(),
	})

	facilities, err := loc.NearbyEmergencyRooms(context.Background(), origin)
	require.NoError(t, err)
	assert.Equal(t, DistanceSourceEstimate, facilities[0].DistanceSource)
	assert.Equal(t, DistanceSourceProvider, facilities[1].DistanceSource)
}

func TestNearbyEmergencyRooms_Concurrency(t *testing.T) {
	places := testPlaces(6)
	delays := map[string]time.Duration{}
	for _, p := range places {
		delays[p.Location.String()] = 20 * time.Millisecond
	}
	distances := &fakeDistances{delays: delays}
	loc := NewLocator(LocatorConfig{
		Search:      &fakeSearch{places: places},
		Distances:   distances,
		Concurrency: 2,
		Logger:      zerolog.Nop(),
	})

	_, err := loc.NearbyEmergencyRooms(context.Background(), origin)
	require.NoError(t, err)
	assert.Equal(t, int32(6), distances.calls.Load())
	assert.LessOrEqual(t, distances.maxSeen.Load(), int32(2))
}

func TestNearbyEmergencyRooms_CachesSearchPerGridCell(t *testing.T) {
	search := &fakeSearch{places: testPlaces(1)}
	distances := &fakeDistances{}
	loc := newTestLocator(search, distances)

	_, err := loc.NearbyEmergencyRooms(context.Background(), origin)
	require.NoError(t, err)
	_, err = loc.NearbyEmergencyRooms(context.Background(), geo.Point{Lat: origin.Lat + 0.00001, Lng: origin.Lng})
	require.NoError(t, err)

	assert.Equal(t, 1, search.callCount())
	assert.Equal(t, int32(2), distances.calls.Load(), "distances are measured from each caller's exact point")

	stats := loc.CacheStats()
	assert.Equal(t, 1, stats.FreshEntries)
	assert.Equal(t, "fake", stats.Provider)

	loc.InvalidateCache()
	_, err = loc.NearbyEmergencyRooms(context.Background(), origin)
	require.NoError(t, err)
	assert.Equal(t, 2, search.callCount())
}

func TestNearbyEmergencyRooms_StaleIfError(t *testing.T) {
	search := &fakeSearch{places: testPlaces(2)}
	loc := NewLocator(LocatorConfig{
		Search:    search,
		Distances: &fakeDistances{},
		CacheTTL:  time.Nanosecond,
		Logger:    zerolog.Nop(),
	})

	_, err := loc.NearbyEmergencyRooms(context.Background(), origin)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	search.mu.Lock()
	search.err = errors.New("provider down")
	search.mu.Unlock()

	facilities, err := loc.NearbyEmergencyRooms(context.Background(), origin)
	require.NoError(t, err)
	assert.Len(t, facilities, 2)
	assert.Equal(t, 2, search.callCount())
}

type fakeGeocoder struct {
	result GeocodeResult
	err    error
	query  string
}

func (f *fakeGeocoder) Geocode(_ context.Context, address string) (GeocodeResult, error) {
	f.query = address
	return f.result, f.err
}

func TestSearchByAddress(t *testing.T) {
	geocoder := &fakeGeocoder{result: GeocodeResult{Location: origin, FormattedAddress: "Dam, Amsterdam"}}
	loc := NewLocator(LocatorConfig{
		Search:    &fakeSearch{places: testPlaces(2)},
		Distances: &fakeDistances{},
		Geocoder:  geocoder,
		Logger:    zerolog.Nop(),
	})

	result, err := loc.SearchByAddress(context.Background(), "  Dam Square  ")
	require.NoError(t, err)
	assert.Equal(t, "Dam Square", geocoder.query)
	assert.Equal(t, origin, result.Origin)
	assert.Equal(t, "Dam, Amsterdam", result.FormattedAddress)
	assert.Len(t, result.Facilities, 2)
}

func TestSearchByAddress_Errors(t *testing.T) {
	loc := newTestLocator(&fakeSearch{}, &fakeDistances{})
	_, err := loc.SearchByAddress(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = loc.SearchByAddress(context.Background(), "Dam")
	assert.ErrorIs(t, err, ErrGeocoderUnavailable)

	loc = NewLocator(LocatorConfig{
		Search:    &fakeSearch{},
		Distances: &fakeDistances{},
		Geocoder:  &fakeGeocoder{err: ErrLocationNotFound},
		Logger:    zerolog.Nop(),
	})
	_, err = loc.SearchByAddress(context.Background(), "Nowhere")
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestProviderError(t *testing.T) {
	err := &ProviderError{Provider: "google", Code: "OVER_QUERY_LIMIT", Message: "quota", Err: ErrRateLimitExceeded}
	assert.Equal(t, "quota: rate limit exceeded", err.Error())
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.True(t, err.IsRetryable())

	denied := &ProviderError{Message: "denied", Err: ErrInvalidCoordinates}
	assert.False(t, denied.IsRetryable())
}

type countingMetrics struct {
	mu        sync.Mutex
	hits      int
	misses    int
	estimates int
}

func (m *countingMetrics) RecordCacheHit(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits++
}

func (m *countingMetrics) RecordCacheMiss(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses++
}

func (m *countingMetrics) RecordDistanceEstimate(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.estimates += n
}

func TestNearbyEmergencyRooms_Metrics(t *testing.T) {
	places := testPlaces(2)
	metrics := &countingMetrics{}
	loc := NewLocator(LocatorConfig{
		Search:    &fakeSearch{places: places},
		Distances: &fakeDistances{failFor: map[string]bool{places[0].Location.String(): true}},
		Metrics:   metrics,
		Logger:    zerolog.Nop(),
	})

	for i := 0; i < 2; i++ {
		_, err := loc.NearbyEmergencyRooms(context.Background(), origin)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, metrics.misses)
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 2, metrics.estimates)
}

// gatedSearch blocks every search until release is closed.
type gatedSearch struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newGatedSearch() *gatedSearch {
	return &gatedSearch{entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (g *gatedSearch) Name() string { return "gated" }

func (g *gatedSearch) NearbySearch(ctx context.Context, _ NearbyRequest) ([]Place, error) {
	g.calls.Add(1)
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return testPlaces(1), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestNearbyEmergencyRooms_CellsSearchInParallel(t *testing.T) {
	search := newGatedSearch()
	loc := newTestLocator(search, &fakeDistances{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := geo.Point{Lat: origin.Lat + float64(i)*0.01, Lng: origin.Lng}
			_, err := loc.NearbyEmergencyRooms(context.Background(), p)
			assert.NoError(t, err)
		}(i)
	}

	for i := 0; i < 4; i++ {
		select {
		case <-search.entered:
		case <-time.After(2 * time.Second):
			close(search.release)
			t.Fatal("searches for different cells did not overlap")
		}
	}

	statsDone := make(chan CacheStats, 1)
	go func() { statsDone <- loc.CacheStats() }()
	select {
	case stats := <-statsDone:
		assert.Equal(t, 0, stats.TotalEntries)
	case <-time.After(time.Second):
		t.Error("CacheStats waited on in-flight searches")
	}

	close(search.release)
	wg.Wait()

	assert.Equal(t, int32(4), search.calls.Load())
	assert.Equal(t, 4, loc.CacheStats().FreshEntries)
}

func TestNearbyEmergencyRooms_SameCellSharesSearch(t *testing.T) {
	search := newGatedSearch()
	loc := newTestLocator(search, &fakeDistances{})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := loc.NearbyEmergencyRooms(context.Background(), origin)
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}

	<-search.entered
	// give the other callers time to queue behind the first search
	time.Sleep(50 * time.Millisecond)
	close(search.release)
	wg.Wait()

	assert.Equal(t, int32(1), search.calls.Load())
}
