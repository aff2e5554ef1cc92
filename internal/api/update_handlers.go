// Package api provides HTTP handlers for the places directory.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/weplace/weplace/internal/middleware"
	"github.com/weplace/weplace/internal/place"
	"github.com/weplace/weplace/internal/update"
)

// UpdateHandlers holds dependencies for update HTTP handlers.
type UpdateHandlers struct {
	orchestrator *update.Orchestrator
	metrics      *middleware.Metrics
}

// NewUpdateHandlers creates a new UpdateHandlers instance. metrics may be
// nil in tests.
func NewUpdateHandlers(orchestrator *update.Orchestrator, metrics *middleware.Metrics) *UpdateHandlers {
	return &UpdateHandlers{orchestrator: orchestrator, metrics: metrics}
}

// UpdateResponse is the body for POST /places/{id}/update.
//
// Compensation and reason are present in every terminal state: a rejected
// update pays an explicit zero, and an accepted one carries the validator's
// note. Staleness and relevance appear only for accepted updates.
type UpdateResponse struct {
	Status       string   `json:"status"`
	Message      string   `json:"message"`
	Compensation float64  `json:"compensation"`
	Staleness    *float64 `json:"staleness,omitempty"`
	Relevance    *float64 `json:"relevance,omitempty"`
	Reason       string   `json:"reason"`
}

// UpdatePlace handles POST /places/{id}/update. The body is a flat JSON
// object mapping editable field names to their new values.
func (h *UpdateHandlers) UpdatePlace(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var changes map[string]string
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Body must be a JSON object of field names to string values")
		return
	}

	result, err := h.orchestrator.Apply(r.Context(), id, changes)
	if err != nil {
		switch {
		case errors.Is(err, place.ErrNotFound):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Place not found")
		case errors.Is(err, place.ErrProtectedField):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeProtectedField)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeProtectedField, "Update names a protected field")
		case errors.Is(err, place.ErrUnknownField):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnknownField)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeUnknownField, "Update names an unknown field")
		case errors.Is(err, update.ErrMalformedInput):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Update proposal is empty or malformed")
		default:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to apply update")
		}
		return
	}

	if result.Status == update.StatusRejected {
		if h.metrics != nil {
			h.metrics.IncOracleVerdict("rejected")
		}
		writeJSON(w, r.Context(), http.StatusOK, UpdateResponse{
			Status:  update.StatusRejected,
			Message: "Update rejected by validation",
			Reason:  result.Reason,
		})
		return
	}

	if h.metrics != nil {
		h.metrics.IncOracleVerdict("accepted")
		h.metrics.AddCompensationCredits(result.Compensation)
	}

	stale, rel := result.Staleness, result.Relevance
	writeJSON(w, r.Context(), http.StatusOK, UpdateResponse{
		Status:       update.StatusAccepted,
		Message:      result.Message,
		Compensation: result.Compensation,
		Staleness:    &stale,
		Relevance:    &rel,
		Reason:       result.Reason,
	})
}
