package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Logger,
	)

	r.Get("/v1/healthz", app.Health)
	r.Post("/v1/new", app.Submit)
	r.Get("/v1/status/{requestId}", app.Status)
	r.Get("/processed/{requestId}.png", app.Result)

	return r
}
