package api

import (
	"net/http"
	"strings"

	"github.com/weplace/weplace/internal/middleware"
)

// RouterConfig bundles the handler groups mounted on the mux.
type RouterConfig struct {
	Places *PlaceHandlers
	Search *SearchHandlers
	Update *UpdateHandlers
	Health *HealthHandlers

	// PerRouteMiddleware wraps individual route groups; both are optional.
	SearchLimiter func(http.Handler) http.Handler
	UpdateAuth    func(http.Handler) http.Handler
}

// NewRouter assembles the service mux. Dynamic /places/{id} routes are
// dispatched by hand; the mux handles the static ones.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", cfg.Places.Root)
	mux.HandleFunc("/places", cfg.Places.Places)
	mux.HandleFunc("/categories", cfg.Places.Categories)
	mux.HandleFunc("/health", cfg.Health.Health)
	mux.HandleFunc("/ready", cfg.Health.Ready)

	searchHandler := http.Handler(http.HandlerFunc(cfg.Search.SearchPlaces))
	if cfg.SearchLimiter != nil {
		searchHandler = cfg.SearchLimiter(searchHandler)
	}
	mux.Handle("/places/search", searchHandler)

	// /places/{id} and /places/{id}/update
	placeByID := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/places/")
		parts := strings.Split(rest, "/")
		switch {
		case len(parts) == 1 && parts[0] != "":
			cfg.Places.GetPlace(w, r, parts[0])
		case len(parts) == 2 && parts[0] != "" && parts[1] == "update":
			handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				cfg.Update.UpdatePlace(w, r, parts[0])
			}))
			if cfg.UpdateAuth != nil {
				handler = cfg.UpdateAuth(handler)
			}
			handler.ServeHTTP(w, r)
		default:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
		}
	})
	mux.Handle("/places/", placeByID)

	return mux
}
