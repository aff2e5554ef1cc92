// Package api provides HTTP handlers for the places directory.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/weplace/weplace/internal/middleware"
	"github.com/weplace/weplace/internal/place"
)

// Listing limits.
const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// PlaceHandlers holds dependencies for place CRUD handlers.
type PlaceHandlers struct {
	repo place.Repository
}

// NewPlaceHandlers creates a new PlaceHandlers instance.
func NewPlaceHandlers(repo place.Repository) *PlaceHandlers {
	return &PlaceHandlers{repo: repo}
}

// RootResponse is the service banner returned from GET /.
type RootResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Message string `json:"message"`
}

// Root handles GET /. Any other path under / is a structured 404.
func (h *PlaceHandlers) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
		return
	}
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, RootResponse{
		Service: "weplace-api",
		Version: "0.0.1",
		Message: "Crowdsourced places-of-interest directory",
	})
}

// PlaceListResponse is the body for place listings.
type PlaceListResponse struct {
	Places []*place.Place `json:"places"`
	Count  int            `json:"count"`
}

// Places dispatches /places by method: GET lists, POST creates.
func (h *PlaceHandlers) Places(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listPlaces(w, r)
	case http.MethodPost:
		h.createPlace(w, r)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// listPlaces handles GET /places with optional category, subcategory,
// limit, and offset parameters.
func (h *PlaceHandlers) listPlaces(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := DefaultListLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "limit must be a positive integer")
			return
		}
		if parsed > MaxListLimit {
			parsed = MaxListLimit
		}
		limit = parsed
	}

	offset := 0
	if raw := query.Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "offset must be a non-negative integer")
			return
		}
		offset = parsed
	}

	places, err := h.repo.List(r.Context(), place.ListOptions{
		Category:    strings.TrimSpace(query.Get("category")),
		Subcategory: strings.TrimSpace(query.Get("subcategory")),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list places")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, PlaceListResponse{Places: places, Count: len(places)})
}

// CreatePlaceRequest is the body for POST /places.
type CreatePlaceRequest struct {
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Subcategory  string   `json:"subcategory,omitempty"`
	Address      string   `json:"address,omitempty"`
	Description  string   `json:"description,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Website      string   `json:"website,omitempty"`
	OpeningHours string   `json:"opening_hours,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
}

// createPlace handles POST /places. Coordinates are optional but must come
// as a pair; records created without them never earn proximity bonuses.
func (h *PlaceHandlers) createPlace(w http.ResponseWriter, r *http.Request) {
	var req CreatePlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "name is required")
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "category is required")
		return
	}

	var coords *place.Coordinates
	switch {
	case req.Lat != nil && req.Lng != nil:
		if *req.Lat < -90 || *req.Lat > 90 || *req.Lng < -180 || *req.Lng > 180 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidCoordinates)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidCoordinates, "lat must be in [-90, 90] and lng in [-180, 180]")
			return
		}
		coords = &place.Coordinates{Lat: *req.Lat, Lng: *req.Lng}
	case req.Lat != nil || req.Lng != nil:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidCoordinates)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidCoordinates, "lat and lng must be provided together")
		return
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	p := &place.Place{
		ID:           id,
		Name:         req.Name,
		Category:     req.Category,
		Subcategory:  req.Subcategory,
		Address:      req.Address,
		Description:  req.Description,
		Phone:        req.Phone,
		Website:      req.Website,
		OpeningHours: req.OpeningHours,
		Coordinates:  coords,
	}

	if err := h.repo.Create(r.Context(), p); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create place")
		return
	}

	writeJSON(w, r.Context(), http.StatusCreated, p)
}

// GetPlace handles GET /places/{id}.
func (h *PlaceHandlers) GetPlace(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, place.ErrNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Place not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to fetch place")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, p)
}

// CategoriesResponse groups distinct subcategories by category.
type CategoriesResponse struct {
	Categories map[string][]string `json:"categories"`
}

// Categories handles GET /categories. The catch-all "other" bucket is
// excluded by the repository.
func (h *PlaceHandlers) Categories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	categories, err := h.repo.Categories(r.Context())
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list categories")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, CategoriesResponse{Categories: categories})
}
