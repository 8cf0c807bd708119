package session

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Pawarasasmina/photobooth/metrics"
	"github.com/Pawarasasmina/photobooth/protocol"
)

// RoundState tracks one capture round from request to its terminal
// outcome.
type RoundState int

const (
	RoundRequested RoundState = iota
	RoundAcquiring
	RoundDelivered
	RoundFailed
)

func (r RoundState) String() string {
	switch r {
	case RoundRequested:
		return "requested"
	case RoundAcquiring:
		return "acquiring"
	case RoundDelivered:
		return "delivered"
	case RoundFailed:
		return "failed"
	}
	return "unknown"
}

// Round is one in-flight capture exchange. At most one exists per
// session; its fields are guarded by the owning session's lock.
type Round struct {
	ID          string
	SessionID   string
	RequestedAt time.Time
	Deadline    time.Time
	state       RoundState
	timer       *time.Timer
}

// Sequencer drives capture rounds end to end: request, trigger,
// artifact (or failure), delivery. A round left unresolved past its
// deadline is force-failed so a stuck booth can never wedge the
// session.
type Sequencer struct {
	roundTimeout time.Duration
}

// NewSequencer returns a sequencer whose rounds time out after
// roundTimeout.
func NewSequencer(roundTimeout time.Duration) *Sequencer {
	return &Sequencer{roundTimeout: roundTimeout}
}

// Start begins a round on s and relays the capture trigger to the
// booth. Only valid while the session is Connected; any other phase
// (including an already-running round) returns ErrInvalidPhase and
// changes nothing. Overlapping rounds are impossible by construction:
// the phase check and the round assignment happen under one lock.
func (q *Sequencer) Start(s *Session) (*Round, error) {
	s.mu.Lock()
	if s.destroyed || s.phase != PhaseConnected {
		s.mu.Unlock()
		return nil, ErrInvalidPhase
	}
	r := &Round{
		ID:          uuid.New().String(),
		SessionID:   s.ID,
		RequestedAt: time.Now(),
		Deadline:    time.Now().Add(q.roundTimeout),
		state:       RoundRequested,
	}
	s.phase = PhaseCapturing
	s.round = r
	r.timer = time.AfterFunc(q.roundTimeout, func() {
		q.expire(s, r.ID)
	})
	target := s.capture
	r.state = RoundAcquiring
	s.mu.Unlock()

	s.Touch()
	metrics.RoundsStarted.Inc()
	log.Printf("session %s: round %s started", s.ID, r.ID)
	s.dispatch([]Peer{target}, protocol.Message{
		Type:      protocol.TypeCaptureTrigger,
		SessionID: s.ID,
		RoundID:   r.ID,
	})
	return r, nil
}

// Deliver resolves the round with an artifact: the controller receives
// it, the session's capture count goes up, and the phase returns to
// Connected. Artifacts for unknown or already-terminal rounds (a booth
// answering after the deadline fired) are dropped.
func (q *Sequencer) Deliver(s *Session, roundID string, art *protocol.Artifact) error {
	s.mu.Lock()
	if s.round == nil || s.round.ID != roundID || s.phase != PhaseCapturing {
		s.mu.Unlock()
		log.Printf("session %s: dropping artifact for stale round %s", s.ID, roundID)
		return ErrInvalidPhase
	}
	r := s.round
	r.timer.Stop()
	r.state = RoundDelivered
	s.captureCount++
	s.endRoundLocked()
	controller := s.controller
	s.mu.Unlock()

	s.Touch()
	metrics.RoundsDelivered.Inc()
	log.Printf("session %s: round %s delivered", s.ID, roundID)
	if controller != nil {
		s.dispatch([]Peer{controller}, protocol.Message{
			Type:      protocol.TypeArtifactDelivered,
			SessionID: s.ID,
			RoundID:   roundID,
			Artifact:  art,
		})
	}
	return nil
}

// Fail resolves the round as failed with the given reason, relaying
// the failure to the controller. Stale round ids are ignored, same as
// Deliver.
func (q *Sequencer) Fail(s *Session, roundID, reason, detail string) error {
	s.mu.Lock()
	if s.round == nil || s.round.ID != roundID || s.phase != PhaseCapturing {
		s.mu.Unlock()
		return ErrInvalidPhase
	}
	r := s.round
	r.timer.Stop()
	r.state = RoundFailed
	s.endRoundLocked()
	controller := s.controller
	s.mu.Unlock()

	s.Touch()
	metrics.RoundsFailed.WithLabelValues(reason).Inc()
	log.Printf("session %s: round %s failed: %s", s.ID, roundID, reason)
	if controller != nil {
		s.dispatch([]Peer{controller}, protocol.Message{
			Type:      protocol.TypeCaptureFailed,
			SessionID: s.ID,
			RoundID:   roundID,
			Reason:    reason,
			Detail:    detail,
		})
	}
	return nil
}

// expire is the deadline path. It is a no-op when the round already
// reached a terminal state through Deliver, Fail, or a disconnect.
func (q *Sequencer) expire(s *Session, roundID string) {
	if err := q.Fail(s, roundID, protocol.ReasonRoundTimeout, "no artifact before round deadline"); err == nil {
		log.Printf("session %s: round %s force-failed on deadline", s.ID, roundID)
	}
}

// endRoundLocked clears the active round and restores the phase.
// Capturing drops back to Connected, unless a concurrent disconnect
// already emptied a role slot, in which case Idle wins.
func (s *Session) endRoundLocked() {
	s.round = nil
	if s.capture != nil && s.controller != nil {
		s.phase = PhaseConnected
	} else {
		s.phase = PhaseIdle
	}
}

// failRoundLocked terminally fails any in-flight round without
// notifying anyone; callers holding the lock decide what to relay.
// Returns the failed round, or nil if none was active.
func (s *Session) failRoundLocked() *Round {
	if s.round == nil {
		return nil
	}
	r := s.round
	r.timer.Stop()
	r.state = RoundFailed
	s.round = nil
	// phase was already forced by the caller (Detach sets Idle).
	return r
}
