package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/openclaw/wallet-relay-go/internal/ratelimit"
	"github.com/openclaw/wallet-relay-go/internal/session"
)

// newTestRouter mirrors the route table in cmd/server.
func newTestRouter(maxSessions, rateLimitMax int) (chi.Router, *session.Store) {
	store := session.NewStore(maxSessions)
	limiter := ratelimit.NewMemory(time.Minute, rateLimitMax)

	sessionHandler := NewSessionHandler(store, limiter)
	wsHandler := NewWSHandler(store)
	pages := NewPagesHandler(store, "")

	r := chi.NewRouter()
	r.Get("/health", sessionHandler.Health)
	r.Get("/metrics", sessionHandler.Metrics)
	r.Mount("/session", sessionHandler.Routes())
	r.Get("/ws", wsHandler.ServeHTTP)

	r.Get("/", pages.Index)
	r.Get("/landing", pages.Landing)
	r.Get("/bridge", pages.Bridge)
	r.Get("/demo", pages.Demo)
	r.Get("/s/{id}", func(w http.ResponseWriter, req *http.Request) {
		pages.Session(w, req, chi.URLParam(req, "id"))
	})

	corsAll := cors.AllowAll().Handler
	for _, path := range []string{
		"/manifest.json",
		"/s/{id}/manifest.json",
		"/demo/manifest.json",
		"/bridge/manifest.json",
		"/landing/manifest.json",
	} {
		r.With(corsAll).Get(path, pages.Manifest)
	}
	r.Get("/logo.svg", pages.Logo)

	return r, store
}
