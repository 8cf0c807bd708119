package agent

import (
	"context"
	"errors"
	"time"

	"github.com/Pawarasasmina/photobooth/protocol"
)

// RegenPolicy re-creates a session a fixed delay after teardown, the
// booth's "always have a QR on screen" behavior. It sits on top of
// session creation; the server's Destroy has no knowledge of it.
type RegenPolicy struct {
	// Delay before asking for the replacement session.
	Delay time.Duration
	// Create mints the replacement, typically a thin wrapper around
	// POST /api/generate-session.
	Create func(ctx context.Context) (protocol.JoinInfo, error)
}

// Next waits out the delay and creates the replacement session,
// returning its id.
func (p *RegenPolicy) Next(ctx context.Context) (string, error) {
	if p.Create == nil {
		return "", errors.New("regen policy has no Create func")
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(p.Delay):
	}
	info, err := p.Create(ctx)
	if err != nil {
		return "", err
	}
	return info.SessionID, nil
}
