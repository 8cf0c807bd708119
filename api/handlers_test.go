package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pawarasasmina/photobooth/session"
)

func newTestAPI(t *testing.T, renderer QRRenderer) (*session.Registry, http.Handler) {
	t.Helper()
	registry := session.NewRegistry(session.NewMemoryStore(), "http://booth.local", time.Minute, time.Second)
	handlers := NewHandlers(registry, renderer)
	router := NewRouter(handlers, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
	})
	return registry, router
}

func TestGenerateSession(t *testing.T) {
	_, router := newTestAPI(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/generate-session", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Status    string `json:"status"`
		SessionID string `json:"session_id"`
		JoinURL   string `json:"join_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "http://booth.local/mobile/"+resp.SessionID, resp.JoinURL)
}

func TestGetSessionStatus(t *testing.T) {
	registry, router := newTestAPI(t, nil)
	sess, _, err := registry.Create(context.Background())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		SessionID    string `json:"session_id"`
		Phase        string `json:"phase"`
		CaptureCount int64  `json:"capture_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, sess.ID, resp.SessionID)
	assert.Equal(t, "idle", resp.Phase)
	assert.Zero(t, resp.CaptureCount)
}

func TestGetSessionStatusNotFound(t *testing.T) {
	_, router := newTestAPI(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionQRServesPNG(t *testing.T) {
	registry, router := newTestAPI(t, nil)
	sess, _, err := registry.Create(context.Background())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID+"/qr", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"), "body should be a PNG")
}

// A broken renderer degrades to the raw join URL; the join stays
// usable without the image.
func TestSessionQRFallsBackToJoinURL(t *testing.T) {
	broken := func(string, int) ([]byte, error) {
		return nil, errors.New("renderer unavailable")
	}
	registry, router := newTestAPI(t, broken)
	sess, _, err := registry.Create(context.Background())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID+"/qr", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "http://booth.local/mobile/"+sess.ID, rec.Body.String())
}

func TestSessionQRNotFound(t *testing.T) {
	_, router := newTestAPI(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/ghost/qr", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	_, router := newTestAPI(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
