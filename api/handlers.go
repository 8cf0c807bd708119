package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Pawarasasmina/photobooth/session"
)

// Handlers carries the HTTP-facing side of the session registry.
type Handlers struct {
	registry *session.Registry
	renderer QRRenderer
}

// NewHandlers creates the API handler set. A nil renderer falls back
// to DefaultQRRenderer.
func NewHandlers(registry *session.Registry, renderer QRRenderer) *Handlers {
	if renderer == nil {
		renderer = DefaultQRRenderer
	}
	return &Handlers{registry: registry, renderer: renderer}
}

type generateSessionResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	JoinURL   string `json:"join_url"`
}

// GenerateSessionHandler mints a fresh session and returns its id and
// join URL synchronously.
func (h *Handlers) GenerateSessionHandler(w http.ResponseWriter, r *http.Request) {
	_, info, err := h.registry.Create(r.Context())
	if err != nil {
		http.Error(w, "could not create session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(generateSessionResponse{
		Status:    "success",
		SessionID: info.SessionID,
		JoinURL:   info.JoinURL,
	})
}

type sessionStatusResponse struct {
	SessionID    string `json:"session_id"`
	Phase        string `json:"phase"`
	CaptureCount int64  `json:"capture_count"`
	CreatedAt    string `json:"created_at"`
}

// GetSessionHandler reports a live session's phase and counters.
func (h *Handlers) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := h.registry.Get(id)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionStatusResponse{
		SessionID:    sess.ID,
		Phase:        sess.Phase().String(),
		CaptureCount: sess.CaptureCount(),
		CreatedAt:    sess.CreatedAt().UTC().Format(time.RFC3339),
	})
}

// SessionQRHandler serves the scannable join code as a PNG. If the
// renderer fails the join URL is served as plain text instead; the
// join stays usable without the image.
func (h *Handlers) SessionQRHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := h.registry.Get(id)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	joinURL := h.registry.JoinURL(sess.ID)
	png, err := h.renderer(joinURL, 320)
	if err != nil {
		log.Printf("QR render failed for session %s, serving raw join URL: %v", sess.ID, err)
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(joinURL))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
