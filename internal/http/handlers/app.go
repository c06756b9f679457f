package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/ratelimit"
	"server/internal/state"
	"server/internal/storage"
)

// JobQueue is the slice of the message bus the ingress handler needs.
type JobQueue interface {
	PublishJob(ctx context.Context, subject string, msg domain.JobMessage) error
}

type App struct {
	Config  *infra.Config
	Logger  infra.Logger
	States  *state.Store
	Limiter *ratelimit.Limiter
	Store   storage.ObjectStore
	Queue   JobQueue
	GeoIP   geoip.CountryResolver
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
