package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Pawarasasmina/photobooth/protocol"
)

// Outcome is the terminal result of one capture round as the
// controller observed it.
type Outcome struct {
	Delivered bool
	Reason    string
	Artifact  *protocol.Artifact
}

// Controller is a headless remote-shutter client. One goroutine at a
// time may drive it; rounds are strictly sequential because the booth
// serves one camera frame at a time.
type Controller struct {
	conn      *websocket.Conn
	sessionID string
	// RoundWait bounds how long a round is awaited client-side; it
	// should exceed the server's round timeout so the server's verdict
	// arrives first.
	RoundWait time.Duration
}

// DialController connects to the relay and joins the session in the
// controller role.
func DialController(ctx context.Context, serverURL, sessionID string) (*Controller, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", serverURL, err)
	}

	c := &Controller{conn: conn, sessionID: sessionID, RoundWait: 15 * time.Second}
	if err := conn.WriteJSON(protocol.Message{
		Type:      protocol.TypeJoinController,
		SessionID: sessionID,
	}); err != nil {
		conn.Close()
		return nil, err
	}

	// Wait for the join verdict, skipping lifecycle notifications that
	// may land first.
	for {
		msg, err := c.read(ctx, 10*time.Second)
		if err != nil {
			conn.Close()
			return nil, err
		}
		switch msg.Type {
		case protocol.TypeJoined:
			return c, nil
		case protocol.TypeError:
			conn.Close()
			return nil, fmt.Errorf("join rejected: %s (%s)", msg.Reason, msg.Detail)
		}
	}
}

// RequestCapture runs a single round to its terminal outcome.
func (c *Controller) RequestCapture(ctx context.Context) (Outcome, error) {
	if err := c.conn.WriteJSON(protocol.Message{
		Type:      protocol.TypeCaptureRequest,
		SessionID: c.sessionID,
	}); err != nil {
		return Outcome{}, err
	}

	for {
		msg, err := c.read(ctx, c.RoundWait)
		if err != nil {
			return Outcome{}, err
		}
		switch msg.Type {
		case protocol.TypeArtifactDelivered:
			return Outcome{Delivered: true, Artifact: msg.Artifact}, nil
		case protocol.TypeCaptureFailed:
			return Outcome{Reason: msg.Reason}, nil
		case protocol.TypeCaptureBusy:
			return Outcome{Reason: msg.Reason}, nil
		case protocol.TypeSessionEnded:
			return Outcome{}, errors.New("session ended mid-round")
		case protocol.TypePeerDisconnected:
			// The booth dropped; the round's capture_failed follows.
		}
	}
}

// Burst replays the single-shot protocol n times, strictly
// sequentially: shot k+1 is not requested until shot k reached a
// terminal outcome. Individual failures do not abort the remaining
// shots.
func (c *Controller) Burst(ctx context.Context, n int) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, n)
	for i := 0; i < n; i++ {
		out, err := c.RequestCapture(ctx)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// EndSession asks the relay to tear the session down.
func (c *Controller) EndSession() error {
	return c.conn.WriteJSON(protocol.Message{
		Type:      protocol.TypeEndSession,
		SessionID: c.sessionID,
	})
}

// Close closes the underlying connection.
func (c *Controller) Close() error {
	return c.conn.Close()
}

func (c *Controller) read(ctx context.Context, wait time.Duration) (protocol.Message, error) {
	deadline := time.Now().Add(wait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetReadDeadline(deadline)

	var msg protocol.Message
	if err := c.conn.ReadJSON(&msg); err != nil {
		return protocol.Message{}, fmt.Errorf("read: %w", err)
	}
	return msg, nil
}
