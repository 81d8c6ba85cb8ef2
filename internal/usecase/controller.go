package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"capcall/internal/domain"
	"capcall/internal/ports"
)

// ErrMissingCredential means the calling backend credential is not
// configured. This is the one start failure the UI is expected to act on
// (redirect to settings) rather than just report.
var ErrMissingCredential = errors.New("calling backend credential is not configured")

// Config controls call session behavior.
type Config struct {
	// Credential authenticates against the calling backend. Required.
	Credential string
	// PreferredLanguage is passed to the backend on connect.
	PreferredLanguage string
	// CallerID identifies the local user in persisted call records.
	CallerID string
	// CallerName is the display name sent in persona call messages.
	CallerName string
}

// CallController orchestrates the single live voice-call session: starting,
// queueing targets, tracking transport state, accumulating the transcript,
// and reconciling analytics when a segment ends. Exactly one controller
// worth of call state exists per app instance; concurrent calls are not
// supported.
type CallController struct {
	dialer ports.TransportDialer
	store  ports.CallStore
	events ports.EventSink
	cfg    Config
	now    func() time.Time

	mu sync.Mutex
	// Guarded by mu.
	transport         ports.TransportSession
	transportState    domain.TransportState
	isLoading         bool
	localAudioActive  bool
	remoteAudioActive bool
	transcript        []domain.TranscriptEntry
	pendingTarget     *domain.CallTarget
	activeTarget      *domain.CallTarget
	segment           *segment
}

func NewCallController(
	dialer ports.TransportDialer,
	store ports.CallStore,
	events ports.EventSink,
	cfg Config,
) *CallController {
	return &CallController{
		dialer:         dialer,
		store:          store,
		events:         events,
		cfg:            cfg,
		now:            time.Now,
		transportState: domain.TransportStateDisconnected,
	}
}

// Start establishes a fresh transport session. It fails fast with
// ErrMissingCredential when the backend credential is absent, and is a
// no-op while a session is already live or a start is still settling.
// There is no automatic retry; retrying is a user action.
func (c *CallController) Start(ctx context.Context) error {
	if strings.TrimSpace(c.cfg.Credential) == "" {
		c.events.CallStateChanged(domain.TransportStateDisconnected, domain.CallReasonMissingCredential)
		return ErrMissingCredential
	}

	c.mu.Lock()
	if c.transport != nil || c.isLoading {
		c.mu.Unlock()
		return nil
	}
	c.isLoading = true
	c.transportState = domain.TransportStateConnecting
	c.mu.Unlock()

	c.events.CallStateChanged(domain.TransportStateConnecting, domain.CallReasonCallRequested)

	session, err := c.dialer.Connect(ctx, ports.ConnectRequest{
		PreferredLanguage: c.cfg.PreferredLanguage,
		Credential:        c.cfg.Credential,
	})
	if err != nil {
		c.mu.Lock()
		c.isLoading = false
		c.transportState = domain.TransportStateDisconnected
		c.mu.Unlock()
		c.events.CallError(domain.ErrorCodeTransport, err.Error())
		c.events.CallStateChanged(domain.TransportStateDisconnected, domain.CallReasonStartFailed)
		return err
	}

	c.mu.Lock()
	c.transport = session
	c.mu.Unlock()

	go c.consumeEvents(session)
	return nil
}

// Leave tears the current session down: closes out any open analytics
// segment, disconnects the transport, resets the speaking flags, and
// clears the pending target and transcript. Calling it with no live
// transport is a no-op, so a Leave racing an unsettled Start is simply
// dropped.
func (c *CallController) Leave(ctx context.Context) error {
	c.mu.Lock()
	transport := c.transport
	if transport == nil {
		c.mu.Unlock()
		return nil
	}
	// Detach first so late adapter events from this session are ignored.
	c.transport = nil
	c.mu.Unlock()

	c.closeOpenSegment(ctx)

	if err := transport.Disconnect(ctx); err != nil {
		c.events.CallError(domain.ErrorCodeTransport, err.Error())
	}

	c.mu.Lock()
	c.transportState = domain.TransportStateDisconnected
	c.isLoading = false
	c.localAudioActive = false
	c.remoteAudioActive = false
	c.pendingTarget = nil
	c.transcript = nil
	c.mu.Unlock()

	c.events.CallStateChanged(domain.TransportStateDisconnected, domain.CallReasonCallEnded)
	c.notifyTargets()
	return nil
}

// ClearActiveTarget closes out the open target's analytics segment while
// keeping the call alive for a possible next target. Used when the user
// dismisses the open capsule without hanging up.
func (c *CallController) ClearActiveTarget(ctx context.Context) {
	c.closeOpenSegment(ctx)
	c.notifyTargets()
}

// Snapshot returns the current observable call state.
func (c *CallController) Snapshot() domain.CallSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	transcript := make([]domain.TranscriptEntry, len(c.transcript))
	copy(transcript, c.transcript)

	return domain.CallSnapshot{
		TransportState:    c.transportState,
		IsLoading:         c.isLoading,
		LocalAudioActive:  c.localAudioActive,
		RemoteAudioActive: c.remoteAudioActive,
		Transcript:        transcript,
		PendingTarget:     c.pendingTarget.Clone(),
		ActiveTarget:      c.activeTarget.Clone(),
	}
}

// consumeEvents drains one transport session's event channel into the
// reducer. One goroutine per session; channel order is append order.
func (c *CallController) consumeEvents(session ports.TransportSession) {
	for event := range session.Events() {
		c.apply(session, event)
	}
}

func (c *CallController) notifyTargets() {
	c.mu.Lock()
	pending := c.pendingTarget.Clone()
	active := c.activeTarget.Clone()
	c.mu.Unlock()
	c.events.TargetChanged(pending, active)
}
