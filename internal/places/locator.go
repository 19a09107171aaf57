package places

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ai4care/ai4care/pkg/geo"
)

// LocatorConfig holds configuration for the facility locator.
type LocatorConfig struct {
	// Search finds candidate facilities (required).
	Search SearchProvider

	// Distances annotates each facility (required).
	Distances DistanceProvider

	// Geocoder resolves manual locations (optional).
	Geocoder Geocoder

	// Logger for locator operations.
	Logger zerolog.Logger

	// Metrics observes cache use and distance fallbacks (optional).
	Metrics LocatorMetrics

	// Concurrency caps the distance lookups in flight. Zero means one
	// lookup per place, all at once.
	Concurrency int

	// LookupTimeout bounds a single distance lookup (default: 5 seconds).
	LookupTimeout time.Duration

	// CacheTTL is how long search results are reused (default: 5 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees
	// (default: 0.001, about 110 m). Points in the same cell share results.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale results on provider errors (default: 15 minutes).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is how often expired entries are dropped (default: 5 minutes).
	CleanupInterval time.Duration
}

// LocatorMetrics observes the locator's cache and distance fallbacks.
type LocatorMetrics interface {
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
	RecordDistanceEstimate(n int)
}

type noopLocatorMetrics struct{}

func (noopLocatorMetrics) RecordCacheHit(string, string)  {}
func (noopLocatorMetrics) RecordCacheMiss(string, string) {}
func (noopLocatorMetrics) RecordDistanceEstimate(int)     {}

// Locator finds emergency rooms and annotates them with distances.
type Locator struct {
	search        SearchProvider
	distances     DistanceProvider
	geocoder      Geocoder
	logger        zerolog.Logger
	metrics       LocatorMetrics
	concurrency   int
	lookupTimeout time.Duration

	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	cleanupInterval time.Duration

	mu          sync.RWMutex
	cache       map[string]*cachedPlaces
	lastCleanup time.Time
	inflight    singleflight.Group
}

type cachedPlaces struct {
	places    []Place
	fetchedAt time.Time
	expiresAt time.Time
}

// NewLocator creates a facility locator.
func NewLocator(cfg LocatorConfig) *Locator {
	lookupTimeout := cfg.LookupTimeout
	if lookupTimeout == 0 {
		lookupTimeout = 5 * time.Second
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.001
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 15 * time.Minute
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	var metrics LocatorMetrics = noopLocatorMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}

	return &Locator{
		search:          cfg.Search,
		metrics:         metrics,
		distances:       cfg.Distances,
		geocoder:        cfg.Geocoder,
		logger:          cfg.Logger.With().Str("component", "places").Logger(),
		concurrency:     cfg.Concurrency,
		lookupTimeout:   lookupTimeout,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cleanupInterval: cleanupInterval,
		cache:           make(map[string]*cachedPlaces),
	}
}

// NearbyEmergencyRooms returns emergency rooms around origin in the search
// provider's order, each annotated with its distance from origin.
//
// Invalid coordinates return ErrInvalidCoordinates. A failed or empty search
// returns an empty list and no error. A failed distance lookup keeps the
// facility with a great-circle estimate.
func (l *Locator) NearbyEmergencyRooms(ctx context.Context, origin geo.Point) ([]Facility, error) {
	if err := origin.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCoordinates, err)
	}

	found, err := l.nearbyPlaces(ctx, origin)
	if err != nil {
		l.logger.Error().Err(err).
			Float64("lat", origin.Lat).
			Float64("lng", origin.Lng).
			Msg("emergency room search failed, returning no results")
		return []Facility{}, nil
	}
	if len(found) == 0 {
		return []Facility{}, nil
	}

	return l.annotate(ctx, origin, found), nil
}

// SearchByAddress geocodes query and returns the emergency rooms around the
// match.
func (l *Locator) SearchByAddress(ctx context.Context, query string) (*AddressSearch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}
	if l.geocoder == nil {
		return nil, ErrGeocoderUnavailable
	}

	match, err := l.geocoder.Geocode(ctx, query)
	if err != nil {
		return nil, err
	}

	facilities, err := l.NearbyEmergencyRooms(ctx, match.Location)
	if err != nil {
		return nil, err
	}

	return &AddressSearch{
		Origin:           match.Location,
		FormattedAddress: match.FormattedAddress,
		Facilities:       facilities,
	}, nil
}

// nearbyPlaces returns the search results for origin, from cache when fresh.
func (l *Locator) nearbyPlaces(ctx context.Context, origin geo.Point) ([]Place, error) {
	cacheKey := l.cacheKey(origin)

	l.mu.RLock()
	if cached, ok := l.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		l.mu.RUnlock()
		l.metrics.RecordCacheHit(l.search.Name(), "nearby")
		l.logger.Debug().
			Str("cache_key", cacheKey).
			Msg("cache hit for nearby search")
		return cached.places, nil
	}
	l.mu.RUnlock()

	l.metrics.RecordCacheMiss(l.search.Name(), "nearby")
	return l.fetchPlaces(ctx, origin, cacheKey)
}

// fetchPlaces runs one search per cell at a time; concurrent misses for the
// same cell share its result. mu is never held across the provider call.
func (l *Locator) fetchPlaces(ctx context.Context, origin geo.Point, cacheKey string) ([]Place, error) {
	v, err, _ := l.inflight.Do(cacheKey, func() (any, error) {
		return l.searchAndStore(ctx, origin, cacheKey)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Place), nil
}

func (l *Locator) searchAndStore(ctx context.Context, origin geo.Point, cacheKey string) ([]Place, error) {
	// another request may have filled the cell meanwhile
	l.mu.RLock()
	if cached, ok := l.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		l.mu.RUnlock()
		return cached.places, nil
	}
	l.mu.RUnlock()

	found, err := l.search.NearbySearch(ctx, NearbyRequest{
		Location:       origin,
		RadiusMeters:   SearchRadiusMeters,
		Type:           SearchType,
		Keyword:        SearchKeyword,
		RankByDistance: true,
	})
	if err != nil {
		l.mu.RLock()
		cached, ok := l.cache[cacheKey]
		l.mu.RUnlock()
		if ok && time.Now().Before(cached.fetchedAt.Add(l.staleIfErrorTTL)) {
			l.logger.Warn().Err(err).
				Time("fetched_at", cached.fetchedAt).
				Str("cache_key", cacheKey).
				Msg("serving stale search results due to provider error")
			return cached.places, nil
		}
		return nil, err
	}

	now := time.Now()
	l.mu.Lock()
	l.cache[cacheKey] = &cachedPlaces{
		places:    found,
		fetchedAt: now,
		expiresAt: now.Add(l.cacheTTL),
	}
	l.cleanupIfNeeded()
	l.mu.Unlock()

	l.logger.Debug().
		Str("cache_key", cacheKey).
		Str("provider", l.search.Name()).
		Int("place_count", len(found)).
		Msg("cached nearby search")

	return found, nil
}

// lookupResult is the settled outcome of one distance lookup.
type lookupResult struct {
	index    int
	distance Distance
	err      error
}

// annotate runs one distance lookup per place and merges the settled
// results by index, so the output keeps the search order.
func (l *Locator) annotate(ctx context.Context, origin geo.Point, found []Place) []Facility {
	workers := l.concurrency
	if workers <= 0 || workers > len(found) {
		workers = len(found)
	}

	jobs := make(chan int, len(found))
	results := make(chan lookupResult, len(found))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results <- l.lookup(ctx, idx, origin, found[idx].Location)
			}
		}()
	}

	for i := range found {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	facilities := make([]Facility, len(found))
	estimated := 0
	for res := range results {
		place := found[res.index]
		if res.err != nil {
			estimated++
			km := geo.HaversineKm(origin, place.Location)
			l.logger.Warn().Err(res.err).
				Str("place_id", place.PlaceID).
				Str("place", place.Name).
				Msg("distance lookup failed, using straight-line estimate")
			facilities[res.index] = Facility{
				Place:          place,
				Distance:       geo.FormatKm(km),
				DistanceMeters: int(math.Round(km * 1000)),
				DistanceSource: DistanceSourceEstimate,
			}
			continue
		}
		facilities[res.index] = Facility{
			Place:          place,
			Distance:       res.distance.Text,
			DistanceMeters: res.distance.Meters,
			Duration:       res.distance.DurationText,
			DistanceSource: DistanceSourceProvider,
		}
	}

	l.metrics.RecordDistanceEstimate(estimated)
	l.logger.Info().
		Int("facilities", len(facilities)).
		Int("estimated", estimated).
		Msg("annotated emergency rooms")

	return facilities
}

func (l *Locator) lookup(ctx context.Context, idx int, origin, destination geo.Point) lookupResult {
	lookupCtx, cancel := context.WithTimeout(ctx, l.lookupTimeout)
	defer cancel()

	d, err := l.distances.Distance(lookupCtx, origin, destination)
	return lookupResult{index: idx, distance: d, err: err}
}

// cacheKey quantizes origin to the grid cell it falls in.
func (l *Locator) cacheKey(origin geo.Point) string {
	gridLat := math.Floor(origin.Lat/l.cacheGridSize) * l.cacheGridSize
	gridLng := math.Floor(origin.Lng/l.cacheGridSize) * l.cacheGridSize
	return fmt.Sprintf("er:%.4f,%.4f", gridLat, gridLng)
}

// cleanupIfNeeded removes entries past the stale window. Caller holds mu.
func (l *Locator) cleanupIfNeeded() {
	now := time.Now()
	if now.Sub(l.lastCleanup) < l.cleanupInterval {
		return
	}

	l.lastCleanup = now
	expired := 0

	for key, cached := range l.cache {
		if now.After(cached.fetchedAt.Add(l.staleIfErrorTTL)) {
			delete(l.cache, key)
			expired++
		}
	}

	if expired > 0 {
		l.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired search cache entries")
	}
}

// InvalidateCache clears all cached search results.
func (l *Locator) InvalidateCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]*cachedPlaces)
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

// CacheStats returns cache statistics.
func (l *Locator) CacheStats() CacheStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := time.Now()
	fresh := 0
	stale := 0

	for _, c := range l.cache {
		if now.Before(c.expiresAt) {
			fresh++
		} else if now.Before(c.fetchedAt.Add(l.staleIfErrorTTL)) {
			stale++
		}
	}

	return CacheStats{
		TotalEntries: len(l.cache),
		FreshEntries: fresh,
		StaleEntries: stale,
		Provider:     l.search.Name(),
	}
}
