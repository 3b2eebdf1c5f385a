package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSessionPage(t *testing.T) {
	t.Run("renders for a known session without redirecting", func(t *testing.T) {
		r, store := newTestRouter(10, 10)
		created, err := store.Create(nil)
		require.NoError(t, err)

		rec := get(t, r, "/s/"+created.ID+"?k="+created.Secret+"&lang=ko&theme=dark")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), created.ID)
	})

	t.Run("404 for unknown session", func(t *testing.T) {
		r, _ := newTestRouter(10, 10)
		rec := get(t, r, "/s/ZZZZ")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestStaticPages(t *testing.T) {
	r, _ := newTestRouter(10, 10)

	t.Run("index", func(t *testing.T) {
		rec := get(t, r, "/")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	})

	t.Run("landing", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get(t, r, "/landing").Code)
	})

	t.Run("demo", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get(t, r, "/demo").Code)
	})

	t.Run("bridge requires session parameter", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get(t, r, "/bridge").Code)
		assert.Equal(t, http.StatusOK, get(t, r, "/bridge?session=A7X3").Code)
	})
}

func TestManifest(t *testing.T) {
	r, _ := newTestRouter(10, 10)

	paths := []string{
		"/manifest.json",
		"/s/A7X3/manifest.json",
		"/demo/manifest.json",
		"/bridge/manifest.json",
		"/landing/manifest.json",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest("GET", path, nil)
			req.Header.Set("Origin", "https://wallet.example")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["name"])
			assert.Contains(t, body["iconPath"], "/logo.svg")
		})
	}

	t.Run("iconPath uses forwarded proto", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/manifest.json", nil)
		req.Header.Set("X-Forwarded-Proto", "https")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body["iconPath"], "https://")
	})
}

func TestLogo(t *testing.T) {
	r, _ := newTestRouter(10, 10)
	rec := get(t, r, "/logo.svg")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "<svg")
}
