package protocol

// Message types exchanged over a booth or controller websocket.
const (
	TypeJoinCapture       = "join_capture"
	TypeJoinController    = "join_controller"
	TypeJoined            = "joined"
	TypePeerConnected     = "peer_connected"
	TypePeerDisconnected  = "peer_disconnected"
	TypeCaptureRequest    = "capture_request"
	TypeCaptureTrigger    = "capture_trigger"
	TypeArtifactReady     = "artifact_ready"
	TypeArtifactDelivered = "artifact_delivered"
	TypeCaptureFailed     = "capture_failed"
	TypeCaptureBusy       = "capture_busy"
	TypeEndSession        = "end_session"
	TypeSessionEnded      = "session_ended"
	TypeError             = "error"
)

// Reason codes carried on rejections and failures. Every rejection is
// reported back to the originator over the connection it used; none are
// silently swallowed.
const (
	ReasonRoleConflict      = "role_conflict"
	ReasonInvalidPhase      = "invalid_phase"
	ReasonPeerUnavailable   = "peer_unavailable"
	ReasonCaptureFailed     = "capture_failed"
	ReasonNotFound          = "not_found"
	ReasonRoundTimeout      = "round_timeout"
	ReasonPeerDisconnected  = "peer_disconnected"
	ReasonWebcamUnavailable = "webcam_unavailable"
)

// Message is the wire envelope. Artifact payloads travel in Artifact;
// everything else uses the scalar fields.
type Message struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	RoundID   string    `json:"round_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Artifact  *Artifact `json:"artifact,omitempty"`
}

// Artifact carries one captured still frame. Data is base64 of the
// encoded image (the original app shipped data-URLs; we keep the media
// type separate so receivers do not have to parse one).
type Artifact struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// JoinInfo is returned synchronously from session creation: the id a
// controller needs and the URL the booth turns into a QR code.
type JoinInfo struct {
	SessionID string `json:"session_id"`
	JoinURL   string `json:"join_url"`
}
