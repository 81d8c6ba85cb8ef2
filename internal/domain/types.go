package domain

// TransportState models the voice-call transport lifecycle.
type TransportState string

const (
	TransportStateDisconnected TransportState = "disconnected"
	TransportStateConnecting   TransportState = "connecting"
	TransportStateConnected    TransportState = "connected"
)

// CallStateReason provides a structured reason for state transitions.
type CallStateReason string

const (
	CallReasonIdle               CallStateReason = "idle"
	CallReasonCallRequested      CallStateReason = "call_requested"
	CallReasonTransportConnected CallStateReason = "transport_connected"
	CallReasonTransportDropped   CallStateReason = "transport_dropped"
	CallReasonCallEnded          CallStateReason = "call_ended"
	CallReasonStartFailed        CallStateReason = "start_failed"
	CallReasonMissingCredential  CallStateReason = "missing_credential"
)

// ErrorCode identifies non-fatal backend errors surfaced to the UI layer.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeTransport   ErrorCode = "transport"
	ErrorCodeSend        ErrorCode = "send"
	ErrorCodePersistence ErrorCode = "persistence"
)

// Role identifies which side of the call produced a transcript entry.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// TranscriptEntry is one finalized utterance in a call transcript.
// Text is trimmed with internal newlines collapsed; Timestamp is RFC 3339.
type TranscriptEntry struct {
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// TransportEventKind identifies one adapter callback variant.
type TransportEventKind string

const (
	EventConnected           TransportEventKind = "connected"
	EventDisconnected        TransportEventKind = "disconnected"
	EventUserSpeakingStarted TransportEventKind = "user_speaking_started"
	EventUserSpeakingStopped TransportEventKind = "user_speaking_stopped"
	EventBotSpeakingStarted  TransportEventKind = "bot_speaking_started"
	EventBotSpeakingStopped  TransportEventKind = "bot_speaking_stopped"
	EventUserTranscript      TransportEventKind = "user_transcript"
	EventBotTranscript       TransportEventKind = "bot_transcript"
	EventTransportError      TransportEventKind = "transport_error"
)

// TransportEvent is one callback delivered by the transport adapter.
// All events for a session arrive on a single channel so consumers see
// them in transport order.
type TransportEvent struct {
	Kind TransportEventKind `json:"kind"`

	// Text payload for transcript events.
	Text string `json:"text,omitempty"`
	// Final marks a user transcript as committed rather than interim.
	Final bool `json:"final,omitempty"`
	// Detail carries an error description for transport_error events.
	Detail string `json:"detail,omitempty"`
}

// CallSnapshot is the read-only observable call state consumed by the UI.
type CallSnapshot struct {
	TransportState    TransportState    `json:"transportState"`
	IsLoading         bool              `json:"isLoading"`
	LocalAudioActive  bool              `json:"localAudioActive"`
	RemoteAudioActive bool              `json:"remoteAudioActive"`
	Transcript        []TranscriptEntry `json:"transcript"`
	PendingTarget     *CallTarget       `json:"pendingTarget,omitempty"`
	ActiveTarget      *CallTarget       `json:"activeTarget,omitempty"`
}

// CallRecord is the persistence row written when a capsule call segment ends.
type CallRecord struct {
	CapsuleID       string            `json:"capsuleId"`
	CallerID        string            `json:"callerId"`
	DurationSeconds int               `json:"durationSeconds"`
	Transcript      []TranscriptEntry `json:"transcript"`
}
