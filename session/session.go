package session

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Pawarasasmina/photobooth/metrics"
	"github.com/Pawarasasmina/photobooth/protocol"
)

// Protocol-level rejections. All of these are recoverable at the
// session boundary: they are reported to the requester and leave the
// session state untouched.
var (
	ErrRoleConflict    = errors.New("role slot already occupied")
	ErrInvalidPhase    = errors.New("operation not valid in current phase")
	ErrPeerUnavailable = errors.New("peer role not bound")
	ErrNotFound        = errors.New("session not found")
)

// Phase is the session lifecycle phase. It is the single source of
// truth for pairing status; there are deliberately no side booleans
// that could drift out of agreement with it.
type Phase int

const (
	// PhaseIdle: freshly created, or at least one role unbound.
	PhaseIdle Phase = iota
	// PhaseConnected: both roles bound, no round in flight.
	PhaseConnected
	// PhaseCapturing: a capture round is in flight.
	PhaseCapturing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnected:
		return "connected"
	case PhaseCapturing:
		return "capturing"
	}
	return "unknown"
}

// Role identifies one of the two mutually exclusive participant kinds.
type Role string

const (
	RoleCapture    Role = "capture"
	RoleController Role = "controller"
)

// Opposite returns the other role.
func (r Role) Opposite() Role {
	if r == RoleCapture {
		return RoleController
	}
	return RoleCapture
}

// Peer is a bound connection as the session sees it. The transport
// layer owns the connection; the session only holds a reference and
// must be notified exactly once when it goes away. Send must enqueue
// without blocking: a full queue or closed connection returns an
// error, which the session treats as a disconnect.
type Peer interface {
	ID() string
	Send(msg protocol.Message) error
}

// Session is one booth/controller rendezvous. All state transitions
// are serialized on mu; different sessions share nothing and proceed
// fully in parallel.
type Session struct {
	ID string

	mu           sync.Mutex
	phase        Phase
	capture      Peer
	controller   Peer
	round        *Round
	captureCount int64
	destroyed    bool

	createdAt    time.Time
	lastActivity atomic.Int64

	// onDetach is invoked after a peer's send fails and the role has
	// been detached, so the transport owner can close the connection.
	onDetach func(p Peer)
}

func newSession(id string) *Session {
	s := &Session{
		ID:        id,
		phase:     PhaseIdle,
		createdAt: time.Now(),
	}
	s.lastActivity.Store(time.Now().Unix())
	return s
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// CaptureCount returns the number of artifacts delivered so far.
func (s *Session) CaptureCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captureCount
}

// CreatedAt returns the creation timestamp.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// RoleBound reports whether the given role slot is occupied.
func (s *Session) RoleBound(role Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.slot(role) != nil
}

// OnDetach registers the hook invoked after a peer is detached
// because a delivery to it failed. The transport owner uses it to
// close the dead connection. Later registrations replace earlier ones.
func (s *Session) OnDetach(fn func(p Peer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDetach = fn
}

// LastActivity returns the time of the last session-bound message.
func (s *Session) LastActivity() time.Time {
	return time.Unix(s.lastActivity.Load(), 0)
}

// Touch refreshes the activity timestamp. Called for every inbound
// message tied to the session; role attach/detach and round traffic
// count as activity, silence does not.
func (s *Session) Touch() {
	s.lastActivity.Store(time.Now().Unix())
}

// AttachCapture binds the capture role. Rejected with ErrRoleConflict
// if the slot is occupied and ErrNotFound once the session has been
// destroyed. If the controller is already bound the session pairs up
// and both sides are told so.
func (s *Session) AttachCapture(p Peer) error {
	return s.attach(RoleCapture, p)
}

// AttachController binds the controller role; same contract as
// AttachCapture with the roles swapped.
func (s *Session) AttachController(p Peer) error {
	return s.attach(RoleController, p)
}

func (s *Session) attach(role Role, p Peer) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrNotFound
	}
	slot := s.slot(role)
	if *slot != nil {
		s.mu.Unlock()
		return ErrRoleConflict
	}
	*slot = p
	paired := s.capture != nil && s.controller != nil
	if paired {
		s.phase = PhaseConnected
	}
	notify := s.boundPeersLocked()
	s.mu.Unlock()

	s.Touch()
	log.Printf("session %s: %s role bound to connection %s", s.ID, role, p.ID())
	// The join ack goes out before any pairing notification so the
	// joining connection always observes joined first.
	s.dispatch([]Peer{p}, protocol.Message{
		Type:      protocol.TypeJoined,
		SessionID: s.ID,
	})
	if paired {
		s.dispatch(notify, protocol.Message{
			Type:      protocol.TypePeerConnected,
			SessionID: s.ID,
		})
	}
	return nil
}

// Detach unbinds whichever role the peer holds. The session drops to
// Idle, an in-flight round is failed (disconnect takes precedence over
// any concurrent round resolution), and the remaining peer is told.
// Detaching a peer that is not bound is a no-op, so transport close
// paths may call it unconditionally.
func (s *Session) Detach(p Peer) {
	s.mu.Lock()
	var role Role
	switch {
	case s.capture != nil && s.capture.ID() == p.ID():
		s.capture = nil
		role = RoleCapture
	case s.controller != nil && s.controller.ID() == p.ID():
		s.controller = nil
		role = RoleController
	default:
		s.mu.Unlock()
		return
	}
	s.phase = PhaseIdle
	failed := s.failRoundLocked()
	remaining := s.boundPeersLocked()
	s.mu.Unlock()

	s.Touch()
	log.Printf("session %s: %s role detached (connection %s)", s.ID, role, p.ID())
	s.dispatch(remaining, protocol.Message{
		Type:      protocol.TypePeerDisconnected,
		SessionID: s.ID,
	})
	if failed != nil {
		metrics.RoundsFailed.WithLabelValues(protocol.ReasonPeerDisconnected).Inc()
		s.dispatch(remaining, protocol.Message{
			Type:      protocol.TypeCaptureFailed,
			SessionID: s.ID,
			RoundID:   failed.ID,
			Reason:    protocol.ReasonPeerDisconnected,
		})
	}
}

// Relay forwards a message from one role to the opposite role, and
// only that one. If the opposite role is unbound the message is
// dropped and the sender gets ErrPeerUnavailable back; nothing is ever
// buffered for later delivery.
func (s *Session) Relay(from Role, msg protocol.Message) error {
	s.mu.Lock()
	target := *s.slot(from.Opposite())
	s.mu.Unlock()
	if target == nil {
		metrics.RelayDrops.Inc()
		return ErrPeerUnavailable
	}
	s.Touch()
	s.dispatch([]Peer{target}, msg)
	return nil
}

// Broadcast delivers a message to whichever roles are currently bound.
// Used for lifecycle notifications; an entirely unbound session drops
// the message silently, which is the one sanctioned silent drop.
func (s *Session) Broadcast(msg protocol.Message) {
	s.mu.Lock()
	peers := s.boundPeersLocked()
	s.mu.Unlock()
	s.dispatch(peers, msg)
}

// dispatch delivers msg to each peer. It runs off the session lock;
// Peer.Send is required to be a non-blocking enqueue onto the
// connection's outbound queue, so dispatch preserves per-sender order
// without letting a slow connection stall the session. A delivery
// failure is treated identically to that connection disconnecting.
func (s *Session) dispatch(peers []Peer, msg protocol.Message) {
	for _, p := range peers {
		if err := p.Send(msg); err != nil {
			log.Printf("session %s: send to connection %s failed, detaching: %v", s.ID, p.ID(), err)
			s.Detach(p)
			s.mu.Lock()
			fn := s.onDetach
			s.mu.Unlock()
			if fn != nil {
				fn(p)
			}
		}
	}
}

func (s *Session) slot(role Role) *Peer {
	if role == RoleCapture {
		return &s.capture
	}
	return &s.controller
}

func (s *Session) boundPeersLocked() []Peer {
	var peers []Peer
	if s.capture != nil {
		peers = append(peers, s.capture)
	}
	if s.controller != nil {
		peers = append(peers, s.controller)
	}
	return peers
}
