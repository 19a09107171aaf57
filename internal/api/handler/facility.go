package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ai4care/ai4care/internal/api/models"
	"github.com/ai4care/ai4care/internal/api/response"
	"github.com/ai4care/ai4care/internal/places"
	"github.com/ai4care/ai4care/pkg/geo"
)

// FacilityLocator is the part of the places locator the handlers use.
type FacilityLocator interface {
	NearbyEmergencyRooms(ctx context.Context, origin geo.Point) ([]places.Facility, error)
	SearchByAddress(ctx context.Context, query string) (*places.AddressSearch, error)
}

// FacilityHandler handles emergency room lookup endpoints.
type FacilityHandler struct {
	locator FacilityLocator
	logger  zerolog.Logger
}

// NewFacilityHandler creates a new FacilityHandler. A nil locator answers
// every nearby search with an empty list, the same as a failed provider.
func NewFacilityHandler(locator FacilityLocator, logger zerolog.Logger) *FacilityHandler {
	return &FacilityHandler{locator: locator, logger: logger}
}

// NearbyER handles GET /api/er?latitude=&longitude= - emergency rooms around
// a point, nearest first, each with its distance from the point.
func (h *FacilityHandler) NearbyER(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	latRaw, lngRaw := strings.TrimSpace(q.Get("latitude")), strings.TrimSpace(q.Get("longitude"))
	if latRaw == "" || lngRaw == "" {
		response.ErrorMessage(w, r, http.StatusBadRequest, models.ErrMissingCoordinates)
		return
	}

	origin, ok := parsePoint(latRaw, lngRaw)
	if !ok {
		response.ErrorMessage(w, r, http.StatusBadRequest, models.ErrInvalidCoordinates)
		return
	}

	if h.locator == nil {
		response.JSON(w, r, http.StatusOK, []places.Facility{})
		return
	}

	facilities, err := h.locator.NearbyEmergencyRooms(r.Context(), origin)
	if err != nil {
		if errors.Is(err, places.ErrInvalidCoordinates) {
			response.ErrorMessage(w, r, http.StatusBadRequest, models.ErrInvalidCoordinates)
			return
		}
		h.logger.Error().Err(err).
			Str("request_id", requestID(r)).
			Msg("nearby emergency room search failed")
		facilities = []places.Facility{}
	}

	response.JSON(w, r, http.StatusOK, facilities)
}

// SearchByAddress handles GET /api/er/search?address= - emergency rooms
// around a typed location.
func (h *FacilityHandler) SearchByAddress(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		response.ErrorMessage(w, r, http.StatusBadRequest, models.ErrMissingAddress)
		return
	}

	if h.locator == nil {
		response.ErrorMessage(w, r, http.StatusServiceUnavailable, models.ErrSearchUnavailable)
		return
	}

	result, err := h.locator.SearchByAddress(r.Context(), address)
	switch {
	case err == nil:
		response.JSON(w, r, http.StatusOK, result)
	case errors.Is(err, places.ErrInvalidQuery):
		response.ErrorMessage(w, r, http.StatusBadRequest, models.ErrMissingAddress)
	case errors.Is(err, places.ErrLocationNotFound):
		response.ErrorMessage(w, r, http.StatusNotFound, models.ErrAddressNotFound)
	default:
		h.logger.Error().Err(err).
			Str("request_id", requestID(r)).
			Msg("address search failed")
		response.ErrorMessage(w, r, http.StatusServiceUnavailable, models.ErrSearchUnavailable)
	}
}

func parsePoint(latRaw, lngRaw string) (geo.Point, bool) {
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return geo.Point{}, false
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return geo.Point{}, false
	}

	p := geo.Point{Lat: lat, Lng: lng}
	if p.Validate() != nil {
		return geo.Point{}, false
	}
	return p, true
}
