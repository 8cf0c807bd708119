package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter mounts the session API, the QR endpoint and the websocket
// endpoint on one router.
func NewRouter(h *Handlers, ws http.HandlerFunc) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")
	r.HandleFunc("/api/generate-session", h.GenerateSessionHandler).Methods("POST")
	r.HandleFunc("/api/sessions/{id}", h.GetSessionHandler).Methods("GET")
	r.HandleFunc("/api/sessions/{id}/qr", h.SessionQRHandler).Methods("GET")
	r.HandleFunc("/ws", ws)
	return r
}
