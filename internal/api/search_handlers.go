// Package api provides HTTP handlers for the places directory.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/weplace/weplace/internal/middleware"
	"github.com/weplace/weplace/internal/place"
	"github.com/weplace/weplace/internal/search"
)

// Search parameter bounds.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 50
	MaxProximityWeight = 2.0
	DefaultProximity   = 1.0
)

// SearchHandlers holds dependencies for search HTTP handlers.
type SearchHandlers struct {
	repo   place.Repository
	ranker *search.Ranker
}

// NewSearchHandlers creates a new SearchHandlers instance.
func NewSearchHandlers(repo place.Repository, ranker *search.Ranker) *SearchHandlers {
	return &SearchHandlers{repo: repo, ranker: ranker}
}

// SearchResponse is the body for GET /places/search.
type SearchResponse struct {
	Results  []SearchResult `json:"results"`
	Count    int            `json:"count"`
	Degraded bool           `json:"degraded,omitempty"`
}

// SearchResult is one ranked place. DistanceKm is null when either side of
// the distance computation lacks coordinates.
type SearchResult struct {
	Place      *place.Place `json:"place"`
	Score      float64      `json:"score"`
	DistanceKm *float64     `json:"distance_km"`
}

// SearchPlaces handles GET /places/search.
//
// Parameters:
//   - q: free-text query, minimum 3 characters (required)
//   - lat, lng: requester location, both or neither (optional)
//   - weight: proximity weight in [0, 2], default 1.0 (optional)
//   - limit: max results, default 20, capped at 50 (optional)
func (h *SearchHandlers) SearchPlaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	query := r.URL.Query()

	q := strings.TrimSpace(query.Get("q"))
	if q == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "'q' is required")
		return
	}

	latStr, lngStr := query.Get("lat"), query.Get("lng")
	var origin *place.Coordinates
	switch {
	case latStr != "" && lngStr != "":
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(lngStr, 64)
		if latErr != nil || lngErr != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidCoordinates)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidCoordinates, "lat must be in [-90, 90] and lng in [-180, 180]")
			return
		}
		origin = &place.Coordinates{Lat: lat, Lng: lng}
	case latStr != "" || lngStr != "":
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidCoordinates)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidCoordinates, "lat and lng must be provided together")
		return
	}

	weight := DefaultProximity
	if raw := query.Get("weight"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > MaxProximityWeight {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidWeight)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidWeight, "weight must be a number in [0, 2]")
			return
		}
		weight = parsed
	}

	limit := DefaultSearchLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "limit must be a positive integer")
			return
		}
		if parsed > MaxSearchLimit {
			parsed = MaxSearchLimit
		}
		limit = parsed
	}

	candidates, err := h.repo.ScanAll(r.Context())
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load candidates")
		return
	}

	ranked, err := h.ranker.Rank(candidates, search.Options{
		Query:           q,
		Origin:          origin,
		ProximityWeight: weight,
		Limit:           limit,
	})
	if err != nil {
		if errors.Is(err, search.ErrQueryTooShort) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeQueryTooShort)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeQueryTooShort, "'q' must be at least 3 characters")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Search failed")
		return
	}

	results := make([]SearchResult, 0, len(ranked))
	for _, res := range ranked {
		results = append(results, SearchResult{
			Place:      res.Place,
			Score:      res.Score,
			DistanceKm: res.DistanceKm,
		})
	}

	writeJSON(w, r.Context(), http.StatusOK, SearchResponse{
		Results:  results,
		Count:    len(results),
		Degraded: h.ranker.Degraded(),
	})
}
