package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Pawarasasmina/photobooth/metrics"
	"github.com/Pawarasasmina/photobooth/protocol"
)

// Registry is the process-wide table of active sessions. It is the
// exclusive owner of every Session; the record store is a mirror for
// operators, never the source of truth.
type Registry struct {
	sessions sync.Map // session id -> *Session
	store    Store

	publicURL     string
	idleTimeout   time.Duration
	sweepInterval time.Duration
}

// NewRegistry creates a registry backed by the given record store.
// publicURL is the externally reachable base the join URL is built
// from (the QR code encodes joinURL).
func NewRegistry(store Store, publicURL string, idleTimeout, sweepInterval time.Duration) *Registry {
	return &Registry{
		store:         store,
		publicURL:     publicURL,
		idleTimeout:   idleTimeout,
		sweepInterval: sweepInterval,
	}
}

// Create mints a new session in phase Idle and returns it with its
// join descriptor.
func (r *Registry) Create(ctx context.Context) (*Session, protocol.JoinInfo, error) {
	id := uuid.New().String()
	s := newSession(id)

	rec := &Record{
		SessionID:      id,
		CreatedAt:      s.createdAt,
		LastActivityAt: s.createdAt,
	}
	if err := r.store.Save(ctx, rec); err != nil {
		// The mirror failing is not fatal to the session; log and go on.
		log.Printf("failed to save session record for %s: %v", id, err)
	}

	r.sessions.Store(id, s)
	metrics.SessionsActive.Inc()
	metrics.SessionsCreated.Inc()
	log.Printf("session %s created", id)

	info := protocol.JoinInfo{
		SessionID: id,
		JoinURL:   r.JoinURL(id),
	}
	return s, info, nil
}

// JoinURL builds the controller-side join URL for a session id. The
// original booth serves its controller UI under /mobile/.
func (r *Registry) JoinURL(id string) string {
	return fmt.Sprintf("%s/mobile/%s", r.publicURL, id)
}

// Get looks up a live session, returning ErrNotFound for unknown or
// expired ids.
func (r *Registry) Get(id string) (*Session, error) {
	if v, ok := r.sessions.Load(id); ok {
		return v.(*Session), nil
	}
	return nil, ErrNotFound
}

// Destroy tears a session down: bound peers are told the session
// ended before the registry entry disappears, so the transport owner
// can act on it. Destroying an unknown id is a no-op, which makes the
// call idempotent.
func (r *Registry) Destroy(ctx context.Context, id string) {
	v, ok := r.sessions.LoadAndDelete(id)
	if !ok {
		return
	}
	s := v.(*Session)

	// Marking the session destroyed under its lock shuts the door on
	// attaches and rounds that raced a stale Get; whoever bound before
	// this point is in peers and still receives the ended signal.
	s.mu.Lock()
	s.destroyed = true
	s.failRoundLocked()
	s.phase = PhaseIdle
	peers := s.boundPeersLocked()
	s.capture = nil
	s.controller = nil
	s.mu.Unlock()

	s.dispatch(peers, protocol.Message{
		Type:      protocol.TypeSessionEnded,
		SessionID: id,
	})

	if err := r.store.Delete(context.WithoutCancel(ctx), id); err != nil {
		log.Printf("failed to delete session record for %s: %v", id, err)
	}
	metrics.SessionsActive.Dec()
	log.Printf("session %s destroyed", id)
}

// SyncRecord rewrites the mirrored record from the live session, so
// the capture count an operator sees tracks deliveries. Store errors
// only get logged, same as Touch.
func (r *Registry) SyncRecord(ctx context.Context, s *Session) {
	rec := &Record{
		SessionID:      s.ID,
		CreatedAt:      s.CreatedAt(),
		LastActivityAt: s.LastActivity(),
		CaptureCount:   s.CaptureCount(),
	}
	if err := r.store.Save(ctx, rec); err != nil {
		log.Printf("failed to sync session record for %s: %v", s.ID, err)
	}
}

// Touch refreshes both the live session's activity clock and the
// mirrored record's TTL. A store error only gets logged; a transient
// mirror outage must not disturb the session.
func (r *Registry) Touch(ctx context.Context, s *Session) {
	s.Touch()
	if err := r.store.Touch(ctx, s.ID); err != nil {
		log.Printf("failed to refresh session record TTL for %s: %v", s.ID, err)
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	n := 0
	r.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// DestroyAll tears down every session, used on shutdown.
func (r *Registry) DestroyAll(ctx context.Context) {
	r.sessions.Range(func(key, _ any) bool {
		r.Destroy(ctx, key.(string))
		return true
	})
}

// StartSweeper runs the expiry scan until ctx is cancelled. Any
// session whose last activity is older than the idle threshold is
// destroyed. Attached but silent peers expire too; only real session
// traffic refreshes the clock.
func (r *Registry) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep(ctx)
			}
		}
	}()
}

func (r *Registry) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.idleTimeout)
	r.sessions.Range(func(key, value any) bool {
		s := value.(*Session)
		if s.LastActivity().Before(cutoff) {
			log.Printf("session %s idle since %s, expiring", s.ID, s.LastActivity().Format(time.RFC3339))
			metrics.SessionsExpired.Inc()
			r.Destroy(ctx, key.(string))
		}
		return true
	})
}
