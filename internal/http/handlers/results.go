package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

// Result streams a generated image from the object store, making the URL
// returned by Status resolvable when PUBLIC_BASE_URL points at this API.
func (a *App) Result(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chi.URLParam(r, "requestId")

	data, contentType, err := a.Store.Get(ctx, domain.ResultImageKey(requestID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.json(w, http.StatusNotFound, map[string]any{
				"success": false,
				"error":   "Result not found",
			})
			return
		}
		a.Logger.Error().Err(err).Str("request_id", requestID).Msg("result: load failed")
		a.json(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to load result",
		})
		return
	}

	if contentType == "" {
		contentType = "image/png"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
