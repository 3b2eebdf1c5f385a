package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/openclaw/wallet-relay-go/internal/errors"
	"github.com/openclaw/wallet-relay-go/internal/httputil"
	"github.com/openclaw/wallet-relay-go/internal/ratelimit"
	"github.com/openclaw/wallet-relay-go/internal/session"
)

type SessionHandler struct {
	store   *session.Store
	limiter ratelimit.Limiter
}

func NewSessionHandler(store *session.Store, limiter ratelimit.Limiter) *SessionHandler {
	return &SessionHandler{
		store:   store,
		limiter: limiter,
	}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)

	return r
}

type createRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Icon string `json:"icon"`
}

type createResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expiresAt"`
}

// POST /session
//
// Admission order is fixed: capacity first, then the per-IP rate limit,
// then the optional metadata body.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.store.AtCapacity() {
		writeError(w, apperrors.AtCapacity())
		return
	}

	ip := httputil.ClientIP(r)
	if !h.limiter.Check(ctx, ip) {
		remaining, resetAt := h.limiter.Info(ctx, ip)
		retryAfter := (time.Until(resetAt).Milliseconds() + 999) / 1000
		if retryAfter < 0 {
			retryAfter = 0
		}
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		log.Warn().Str("ip", ip).Msg("session creation rate limited")
		writeError(w, apperrors.RateLimitExceeded())
		return
	}

	// The body is optional and advisory; anything that does not carry both
	// name and url is ignored rather than rejected.
	var metadata *session.Metadata
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Name != "" && req.URL != "" {
		metadata = &session.Metadata{Name: req.Name, URL: req.URL, Icon: req.Icon}
	}

	created, err := h.store.Create(metadata)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, createResponse{
		ID:        created.ID,
		URL:       shortLinkURL(r, created.ID, created.Secret),
		ExpiresAt: created.ExpiresAt.UnixMilli(),
	})
}

// GET /session/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	info, ok := h.store.Get(id)
	if !ok {
		writeError(w, apperrors.SessionNotFound())
		return
	}
	if info.Terminated {
		writeError(w, apperrors.SessionTerminated())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":        info.ID,
		"status":    info.Status,
		"metadata":  info.Metadata,
		"expiresAt": info.ExpiresAt.UnixMilli(),
	})
}

// GET /health
func (h *SessionHandler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"uptime":   stats.Uptime,
		"sessions": stats.TotalSessions,
	})
}

// GET /metrics
func (h *SessionHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats())
}

// shortLinkURL builds the QR payload handed to the wallet. The relay sits
// behind a TLS-terminating proxy, so the scheme comes from
// X-Forwarded-Proto when present.
func shortLinkURL(r *http.Request, id, secret string) string {
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
	}
	return fmt.Sprintf("%s://%s/s/%s?k=%s", proto, r.Host, id, secret)
}
