package agent

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Pawarasasmina/photobooth/camera"
	"github.com/Pawarasasmina/photobooth/protocol"
)

// CaptureAgent is a headless booth client: it joins a session in the
// capture role and serves capture triggers from a camera source.
type CaptureAgent struct {
	// ServerURL is the websocket endpoint, e.g. ws://localhost:8080/ws.
	ServerURL string
	// Source provides frames; required.
	Source camera.FrameSource
	// Compositor and Overlay are optional; when both are set each
	// frame is composited before encoding. A compositing problem never
	// fails a round; the bare frame ships instead.
	Compositor camera.Compositor
	Overlay    image.Image
	// Retry bounds acquisition retries before a failure is reported.
	Retry camera.RetryPolicy
	// JPEGQuality for the artifact encoding; zero means jpeg.DefaultQuality.
	JPEGQuality int

	// Regen, when non-nil, is consulted after the session ends: the
	// agent waits the policy's delay, asks it for a fresh session and
	// rejoins. Session regeneration is a booth product behavior layered
	// on top of session creation, which is why it lives here and not in
	// the registry.
	Regen *RegenPolicy

	mu   sync.Mutex
	conn *websocket.Conn
}

// Run joins the given session and serves it until the connection
// drops, the session ends (and no regen policy is set), or ctx is
// cancelled.
func (a *CaptureAgent) Run(ctx context.Context, sessionID string) error {
	for {
		err := a.serve(ctx, sessionID)
		if err != nil {
			return err
		}
		if a.Regen == nil {
			return nil
		}
		next, err := a.Regen.Next(ctx)
		if err != nil {
			return fmt.Errorf("session regeneration failed: %w", err)
		}
		log.Printf("booth agent: regenerated session %s", next)
		sessionID = next
	}
}

// serve runs one session to completion. A nil error means the session
// ended normally (session_ended observed).
func (a *CaptureAgent) serve(ctx context.Context, sessionID string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", a.ServerURL, err)
	}
	defer conn.Close()
	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()

	if err := a.write(protocol.Message{
		Type:      protocol.TypeJoinCapture,
		SessionID: sessionID,
	}); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var msg protocol.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}

		switch msg.Type {
		case protocol.TypeJoined:
			log.Printf("booth agent: joined session %s", msg.SessionID)
		case protocol.TypePeerConnected:
			log.Printf("booth agent: controller connected")
		case protocol.TypePeerDisconnected:
			log.Printf("booth agent: controller disconnected")
		case protocol.TypeCaptureTrigger:
			a.handleTrigger(ctx, sessionID, msg.RoundID)
		case protocol.TypeSessionEnded:
			log.Printf("booth agent: session %s ended", sessionID)
			return nil
		case protocol.TypeError:
			if msg.Reason == protocol.ReasonNotFound {
				return fmt.Errorf("session %s not found", sessionID)
			}
			log.Printf("booth agent: server rejection: %s (%s)", msg.Reason, msg.Detail)
		}
	}
}

func (a *CaptureAgent) handleTrigger(ctx context.Context, sessionID, roundID string) {
	frame, err := camera.Grab(ctx, a.Source, a.Retry)
	if err != nil {
		log.Printf("booth agent: frame acquisition failed for round %s: %v", roundID, err)
		a.write(protocol.Message{
			Type:      protocol.TypeCaptureFailed,
			SessionID: sessionID,
			RoundID:   roundID,
			Reason:    protocol.ReasonWebcamUnavailable,
			Detail:    err.Error(),
		})
		return
	}

	if a.Compositor != nil && a.Overlay != nil {
		frame = a.Compositor.Merge(frame, a.Overlay)
	}

	quality := a.JPEGQuality
	if quality == 0 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: quality}); err != nil {
		a.write(protocol.Message{
			Type:      protocol.TypeCaptureFailed,
			SessionID: sessionID,
			RoundID:   roundID,
			Reason:    protocol.ReasonCaptureFailed,
			Detail:    "frame encoding failed",
		})
		return
	}

	a.write(protocol.Message{
		Type:      protocol.TypeArtifactReady,
		SessionID: sessionID,
		RoundID:   roundID,
		Artifact: &protocol.Artifact{
			MediaType: "image/jpeg",
			Data:      base64.StdEncoding.EncodeToString(buf.Bytes()),
		},
	})
}

func (a *CaptureAgent) write(msg protocol.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn.WriteJSON(msg)
}
