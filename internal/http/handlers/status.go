package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/state"
)

// Status reports the lifecycle state of a submitted job. Every poll of an
// existing entry refreshes its expiry window.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chi.URLParam(r, "requestId")

	st, err := a.States.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.json(w, http.StatusNotFound, map[string]any{
				"success": false,
				"error":   "Prediction not found",
			})
			return
		}
		a.json(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to read job state",
			"details": err.Error(),
		})
		return
	}

	if err := a.States.RefreshTTL(ctx, requestID, state.PollTTL); err != nil {
		a.Logger.Warn().Err(err).Str("request_id", requestID).Msg("status: ttl refresh failed")
	}

	switch st {
	case domain.JobStateCompleted:
		ok, err := a.Store.Exists(ctx, domain.ResultImageKey(requestID))
		if err != nil {
			a.json(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"error":   "Failed to check result",
				"details": err.Error(),
			})
			return
		}
		if !ok {
			// The state write can land before the result object is visible.
			a.statusData(w, map[string]any{"status": "pending"})
			return
		}
		a.statusData(w, map[string]any{
			"status": "completed",
			"id":     requestID,
			"url":    a.resultURL(requestID),
		})
	case domain.JobStateFailed:
		a.statusData(w, map[string]any{"status": "failed"})
	default:
		a.statusData(w, map[string]any{"status": "pending"})
	}
}

func (a *App) statusData(w http.ResponseWriter, data map[string]any) {
	a.json(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func (a *App) resultURL(requestID string) string {
	return strings.TrimRight(a.Config.PublicBaseURL, "/") + "/" + domain.ResultImageKey(requestID)
}
