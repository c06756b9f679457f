package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/middleware"
	"server/internal/ratelimit"
)

type submitImage struct {
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
}

type submitRequest struct {
	Image   submitImage `json:"image"`
	StyleID string      `json:"styleID"`
	UserID  string      `json:"userID"`
}

// Submit accepts an image transformation job: rate-limit check, source
// upload, queued state write, queue publish. Validation of the style
// identifier is deferred to the consumer's prompt builder.
func (a *App) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)

	ip := middleware.ClientIP(r)
	rl, err := a.Limiter.Allow(ctx, ip)
	if err != nil {
		a.Logger.Error().Err(err).Str("request_id", requestID).Msg("submit: rate limit check failed")
		a.submitError(w, http.StatusInternalServerError, "Failed to check rate limit", err, requestID)
		return
	}
	writeRateLimitHeaders(w, rl)
	if !rl.Allowed {
		a.Logger.Warn().Str("client_ip", ip).Int("limit", rl.Limit).Msg("submit: rate limit exceeded")
		a.json(w, http.StatusTooManyRequests, map[string]any{
			"success":      false,
			"message":      "Rate limit exceeded",
			"requestId":    requestID,
			"resetIn":      int(rl.ResetIn.Seconds()),
			"limitPerHour": rl.Limit,
		})
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "Invalid JSON body", requestID)
		return
	}
	if req.Image.Data == "" || req.Image.MimeType == "" || req.StyleID == "" || req.UserID == "" {
		a.badRequest(w, "image.data, image.mime_type, styleID and userID are required", requestID)
		return
	}

	imageData, err := decodeImagePayload(req.Image.Data)
	if err != nil {
		a.badRequest(w, "Invalid base64 image data", requestID)
		return
	}

	imageKey := domain.SourceImageKey(req.UserID, requestID)
	if err := a.Store.Put(ctx, imageKey, imageData, req.Image.MimeType); err != nil {
		a.Logger.Error().Err(err).Str("request_id", requestID).Msg("submit: source upload failed")
		a.submitError(w, http.StatusInternalServerError, "Failed to store image", err, requestID)
		return
	}

	if err := a.States.Set(ctx, requestID, domain.JobStateQueued); err != nil {
		a.Logger.Error().Err(err).Str("request_id", requestID).Msg("submit: state write failed")
		a.submitError(w, http.StatusInternalServerError, "Failed to record job state", err, requestID)
		return
	}

	msg := domain.JobMessage{
		Image:     domain.ImageRef{Key: imageKey, MimeType: req.Image.MimeType},
		StyleID:   req.StyleID,
		UserID:    req.UserID,
		Timestamp: time.Now().UnixMilli(),
		RequestID: requestID,
	}
	if err := a.Queue.PublishJob(ctx, a.Config.JobSubject, msg); err != nil {
		a.Logger.Error().Err(err).Str("request_id", requestID).Msg("submit: publish failed")
		// Roll back the ledger entry so polling this id reports not found
		// instead of a queued job no consumer will ever see.
		if delErr := a.States.Delete(ctx, requestID); delErr != nil {
			a.Logger.Error().Err(delErr).Str("request_id", requestID).Msg("submit: rollback failed")
		}
		a.submitError(w, http.StatusInternalServerError, "Failed to enqueue job", err, requestID)
		return
	}

	event := a.Logger.Info().
		Str("request_id", requestID).
		Str("style_id", req.StyleID).
		Str("user_id", req.UserID).
		Str("client_ip", ip)
	if a.GeoIP != nil {
		if cc, err := a.GeoIP.CountryCode(ip); err == nil && cc != "" {
			event = event.Str("country", cc)
		}
	}
	event.Msg("submit: job queued")

	a.json(w, http.StatusAccepted, map[string]any{
		"success":   true,
		"message":   "Image queued for processing",
		"requestId": requestID,
		"imageKey":  imageKey,
		"state":     string(domain.JobStateQueued),
	})
}

func (a *App) badRequest(w http.ResponseWriter, message, requestID string) {
	a.json(w, http.StatusBadRequest, map[string]any{
		"success":   false,
		"message":   message,
		"requestId": requestID,
	})
}

func (a *App) submitError(w http.ResponseWriter, code int, message string, err error, requestID string) {
	a.json(w, code, map[string]any{
		"success":   false,
		"message":   message,
		"error":     err.Error(),
		"requestId": requestID,
		"state":     string(domain.JobStateFailed),
	})
}

func writeRateLimitHeaders(w http.ResponseWriter, rl ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rl.ResetAt(time.Now()), 10))
}

// decodeImagePayload accepts both a bare base64 string and a data URI.
func decodeImagePayload(encoded string) ([]byte, error) {
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.IndexByte(encoded, ','); i >= 0 {
			encoded = encoded[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
}
