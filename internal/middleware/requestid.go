package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestID ensures every response carries an X-Request-ID header,
// honoring one supplied by the caller. The submit handler overrides it
// with the job's request id.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r)
	})
}
