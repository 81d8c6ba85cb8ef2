package ports

import (
	"context"

	"capcall/internal/domain"
)

// ConnectRequest carries the per-call parameters sent to the calling backend.
type ConnectRequest struct {
	PreferredLanguage string
	Credential        string
}

// TransportSession is one live connection to the calling backend.
//
// SendMessage is fire-and-forget: a nil return means the message was
// handed to the socket, not that the backend processed it. Events delivers
// every adapter callback on a single channel, in transport order; the
// channel is closed after the disconnected event is delivered.
type TransportSession interface {
	SendMessage(payload []byte) error
	Disconnect(ctx context.Context) error
	Events() <-chan domain.TransportEvent
}

// TransportDialer establishes transport sessions.
type TransportDialer interface {
	Connect(ctx context.Context, req ConnectRequest) (TransportSession, error)
}

// CallStore persists call analytics. All writes are best-effort telemetry;
// callers log failures and move on.
type CallStore interface {
	InsertCallRecord(ctx context.Context, record domain.CallRecord) error
	IncrementCallSeconds(ctx context.Context, capsuleID string, seconds int) error
	UpdateConvoSession(ctx context.Context, sessionID string, durationSeconds int, transcript []domain.TranscriptEntry) error
}

// EventSink emits call state/events to the UI layer.
type EventSink interface {
	CallStateChanged(state domain.TransportState, reason domain.CallStateReason)
	SpeakingChanged(role domain.Role, active bool)
	TranscriptAppended(entry domain.TranscriptEntry)
	TargetChanged(pending *domain.CallTarget, active *domain.CallTarget)
	CallError(code domain.ErrorCode, detail string)
}
