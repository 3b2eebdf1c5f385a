package handler

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/rs/zerolog/log"

	apperrors "github.com/openclaw/wallet-relay-go/internal/errors"
	"github.com/openclaw/wallet-relay-go/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed assets/logo.svg
var logoSVG []byte

// PagesHandler serves the HTML surface: the session landing page opened by
// the wallet, the guide/demo pages, and the manifest/logo compatibility
// routes for wallets that sandbox the relay as an iframe app.
type PagesHandler struct {
	store     *session.Store
	templates *template.Template
}

func NewPagesHandler(store *session.Store, configDir string) *PagesHandler {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/*.html"))

	// CONFIG_DIR may carry operator-supplied template overrides; they are
	// layered on top of the embedded defaults.
	if configDir != "" {
		pattern := filepath.Join(configDir, "templates", "*.html")
		if matches, _ := filepath.Glob(pattern); len(matches) > 0 {
			if custom, err := tmpl.ParseGlob(pattern); err != nil {
				log.Warn().Err(err).Str("dir", configDir).Msg("failed to parse custom templates, using defaults")
			} else {
				tmpl = custom
			}
		}
	}

	return &PagesHandler{store: store, templates: tmpl}
}

type pageData struct {
	SessionID string
	Key       string
	Lang      string
	Theme     string
}

func pageDataFrom(r *http.Request, sessionID string) pageData {
	q := r.URL.Query()
	return pageData{
		SessionID: sessionID,
		Key:       q.Get("k"),
		Lang:      q.Get("lang"),
		Theme:     q.Get("theme"),
	}
}

// GET /s/{id}
//
// Renders the landing page directly instead of redirecting: wallets that
// open the relay inside an iframe drop the query string (and with it the
// secret) across an HTTP redirect.
func (h *PagesHandler) Session(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.store.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	h.render(w, "landing.html", pageDataFrom(r, id))
}

// GET /landing
func (h *PagesHandler) Landing(w http.ResponseWriter, r *http.Request) {
	h.render(w, "landing.html", pageDataFrom(r, r.URL.Query().Get("session")))
}

// GET /bridge
func (h *PagesHandler) Bridge(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		writeError(w, apperrors.MissingRequired("session"))
		return
	}
	h.render(w, "bridge.html", pageDataFrom(r, id))
}

// GET /demo
func (h *PagesHandler) Demo(w http.ResponseWriter, r *http.Request) {
	h.render(w, "demo.html", pageDataFrom(r, ""))
}

// GET /
func (h *PagesHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, "index.html", pageDataFrom(r, ""))
}

// Manifest serves /manifest.json and its path variants. Some wallets
// resolve the manifest relative to whatever page they framed, hence the
// copies under /s, /demo, /bridge and /landing.
func (h *PagesHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"name":        "Wallet Relay",
		"description": "Pairs a browser DApp with a mobile wallet for remote signing",
		"iconPath":    fmt.Sprintf("%s://%s/logo.svg", proto, r.Host),
	})
}

// GET /logo.svg
func (h *PagesHandler) Logo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(logoSVG)
}

func (h *PagesHandler) render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("failed to render page")
	}
}
