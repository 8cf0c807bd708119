package websocket

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Pawarasasmina/photobooth/config"
	"github.com/Pawarasasmina/photobooth/metrics"
	"github.com/Pawarasasmina/photobooth/protocol"
	"github.com/Pawarasasmina/photobooth/session"
)

// Upgrader for websocket connections
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler owns the websocket endpoint: it upgrades connections,
// reads their protocol messages and drives the session registry and
// capture sequencer with them.
type Handler struct {
	registry  *session.Registry
	sequencer *session.Sequencer
	cfg       *config.WebSocketConfig
}

// NewHandler creates a new websocket handler.
func NewHandler(registry *session.Registry, sequencer *session.Sequencer, cfg *config.WebSocketConfig) *Handler {
	return &Handler{
		registry:  registry,
		sequencer: sequencer,
		cfg:       cfg,
	}
}

// HandleWebSocket handles incoming websocket connections.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	connID := uuid.New().String()
	client := NewClientSession(connID, conn, h.cfg)
	client.StartWritePump()
	metrics.ActiveConnections.Inc()
	metrics.TotalConnections.Inc()
	log.Printf("Connection %s accepted from %s", connID, r.RemoteAddr)

	conn.SetReadLimit(int64(h.cfg.MessageSizeLimit))
	// The deadline starts counting at accept; only pongs push it
	// forward, so a client that never answers pings times out here.
	conn.SetReadDeadline(time.Now().Add(time.Duration(h.cfg.PongTimeout) * time.Second))
	conn.SetPongHandler(client.GetPongHandler())

	defer func() {
		// Transport close and the exactly-once detach notification.
		if sess, _, ok := client.Binding(); ok {
			sess.Detach(client)
		}
		client.Close(websocket.CloseNormalClosure, "Client disconnected")
		metrics.ActiveConnections.Dec()
		log.Printf("Connection %s closed", connID)
	}()

	for {
		var msg protocol.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
				!errors.Is(err, net.ErrClosed) {
				log.Printf("Read error from connection %s: %v", connID, err)
			}
			return
		}
		metrics.MessagesReceived.Inc()
		h.handleMessage(client, msg)
	}
}

// handleMessage dispatches one inbound message. Every rejection is
// reported back over the same connection; nothing is silently
// swallowed.
func (h *Handler) handleMessage(client *ClientSession, msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeJoinCapture:
		h.handleJoin(client, msg, session.RoleCapture)
	case protocol.TypeJoinController:
		h.handleJoin(client, msg, session.RoleController)
	case protocol.TypeCaptureRequest:
		h.handleCaptureRequest(client, msg)
	case protocol.TypeArtifactReady:
		h.handleArtifactReady(client, msg)
	case protocol.TypeCaptureFailed:
		h.handleCaptureFailed(client, msg)
	case protocol.TypeEndSession:
		h.handleEndSession(client, msg)
	default:
		h.handleRelay(client, msg)
	}
}

func (h *Handler) handleJoin(client *ClientSession, msg protocol.Message, role session.Role) {
	sess, err := h.registry.Get(msg.SessionID)
	if err != nil {
		h.reject(client, msg.SessionID, protocol.ReasonNotFound, "unknown or expired session")
		return
	}

	if _, _, bound := client.Binding(); bound {
		h.reject(client, msg.SessionID, protocol.ReasonRoleConflict, "connection already joined a session")
		return
	}

	// Attach sends the joined ack itself, ahead of any pairing
	// notification, so the hook must be in place first.
	sess.OnDetach(h.closeDetached)
	if role == session.RoleCapture {
		err = sess.AttachCapture(client)
	} else {
		err = sess.AttachController(client)
	}
	switch {
	case errors.Is(err, session.ErrRoleConflict):
		h.reject(client, msg.SessionID, protocol.ReasonRoleConflict, string(role)+" role already taken")
		return
	case errors.Is(err, session.ErrNotFound):
		h.reject(client, msg.SessionID, protocol.ReasonNotFound, "unknown or expired session")
		return
	}

	client.Bind(sess, role)
	h.touch(sess)
}

// closeDetached closes the transport of a peer the session detached
// after a failed delivery; without it the dead connection would sit
// open until its read loop noticed on its own.
func (h *Handler) closeDetached(p session.Peer) {
	if cs, ok := p.(*ClientSession); ok {
		cs.Close(websocket.CloseGoingAway, "Delivery failed")
	}
}

func (h *Handler) handleCaptureRequest(client *ClientSession, msg protocol.Message) {
	sess, role, ok := client.Binding()
	if !ok {
		h.reject(client, msg.SessionID, protocol.ReasonNotFound, "not joined to a session")
		return
	}
	if role != session.RoleController {
		h.reject(client, sess.ID, protocol.ReasonInvalidPhase, "only the controller may request captures")
		return
	}

	h.touch(sess)
	if _, err := h.sequencer.Start(sess); errors.Is(err, session.ErrInvalidPhase) {
		// Either no booth is attached yet or a round is in flight;
		// both look the same to the controller.
		client.Send(protocol.Message{
			Type:      protocol.TypeCaptureBusy,
			SessionID: sess.ID,
			Reason:    protocol.ReasonInvalidPhase,
		})
	}
}

func (h *Handler) handleArtifactReady(client *ClientSession, msg protocol.Message) {
	sess, role, ok := client.Binding()
	if !ok || role != session.RoleCapture {
		h.reject(client, msg.SessionID, protocol.ReasonInvalidPhase, "artifact from a non-capture connection")
		return
	}
	h.touch(sess)
	// Stale artifacts (after a deadline or disconnect) are dropped by
	// the sequencer; there is nothing useful to tell the booth.
	if err := h.sequencer.Deliver(sess, msg.RoundID, msg.Artifact); err == nil {
		h.registry.SyncRecord(context.Background(), sess)
	}
}

func (h *Handler) handleCaptureFailed(client *ClientSession, msg protocol.Message) {
	sess, role, ok := client.Binding()
	if !ok || role != session.RoleCapture {
		h.reject(client, msg.SessionID, protocol.ReasonInvalidPhase, "failure report from a non-capture connection")
		return
	}
	h.touch(sess)
	reason := msg.Reason
	if reason == "" {
		reason = protocol.ReasonCaptureFailed
	}
	h.sequencer.Fail(sess, msg.RoundID, reason, msg.Detail)
}

func (h *Handler) handleEndSession(client *ClientSession, msg protocol.Message) {
	sess, _, ok := client.Binding()
	if !ok {
		h.reject(client, msg.SessionID, protocol.ReasonNotFound, "not joined to a session")
		return
	}
	h.registry.Destroy(context.Background(), sess.ID)
}

// handleRelay forwards any other message from a bound role to the
// opposite role, the generic relay contract. Unbound peers mean the
// message is dropped and the sender is told, never buffered.
func (h *Handler) handleRelay(client *ClientSession, msg protocol.Message) {
	sess, role, ok := client.Binding()
	if !ok {
		h.reject(client, msg.SessionID, protocol.ReasonNotFound, "not joined to a session")
		return
	}
	h.touch(sess)
	if err := sess.Relay(role, msg); errors.Is(err, session.ErrPeerUnavailable) {
		h.reject(client, sess.ID, protocol.ReasonPeerUnavailable, "peer role not connected")
	}
}

func (h *Handler) reject(client *ClientSession, sessionID, reason, detail string) {
	client.Send(protocol.Message{
		Type:      protocol.TypeError,
		SessionID: sessionID,
		Reason:    reason,
		Detail:    detail,
	})
}

func (h *Handler) touch(sess *session.Session) {
	h.registry.Touch(context.Background(), sess)
}
