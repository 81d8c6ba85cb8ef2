package usecase

import (
	"context"
	"strings"
	"time"

	"capcall/internal/domain"
	"capcall/internal/ports"
)

// apply dispatches one adapter event against the session state. Events from
// a session that has been detached (by Leave or by a newer Start) are
// dropped: the adapter's connected/disconnected callbacks are the sole
// source of truth for transportState, but only while the session is owned.
func (c *CallController) apply(session ports.TransportSession, event domain.TransportEvent) {
	c.mu.Lock()
	owned := c.transport == session
	c.mu.Unlock()
	if !owned {
		return
	}

	switch event.Kind {
	case domain.EventConnected:
		c.onConnected(session)
	case domain.EventDisconnected:
		c.onDisconnected(session)
	case domain.EventUserSpeakingStarted:
		c.setSpeaking(domain.RoleUser, true)
	case domain.EventUserSpeakingStopped:
		c.setSpeaking(domain.RoleUser, false)
	case domain.EventBotSpeakingStarted:
		c.setSpeaking(domain.RoleBot, true)
	case domain.EventBotSpeakingStopped:
		c.setSpeaking(domain.RoleBot, false)
	case domain.EventUserTranscript:
		// Interim user fragments are dropped; only utterances the
		// transport marks final are durable.
		if event.Final {
			c.appendTranscript(domain.RoleUser, event.Text)
		}
	case domain.EventBotTranscript:
		// Bot output arrives pre-finalized.
		c.appendTranscript(domain.RoleBot, event.Text)
	case domain.EventTransportError:
		// Logged only. Errors never flip transportState; the explicit
		// connected/disconnected events decide that.
		c.events.CallError(domain.ErrorCodeTransport, event.Detail)
	}
}

func (c *CallController) onConnected(session ports.TransportSession) {
	c.mu.Lock()
	c.transportState = domain.TransportStateConnected
	c.isLoading = false
	pending := c.pendingTarget
	c.pendingTarget = nil
	c.mu.Unlock()

	c.events.CallStateChanged(domain.TransportStateConnected, domain.CallReasonTransportConnected)

	// Flush the queued target exactly once now that the transport is live.
	if pending != nil {
		_ = c.deliver(session, pending)
	}
}

func (c *CallController) onDisconnected(session ports.TransportSession) {
	// Close out the open segment before touching state so the persisted
	// transcript and duration describe the segment that just ended.
	c.closeOpenSegment(context.Background())

	c.mu.Lock()
	if c.transport == session {
		c.transport = nil
	}
	c.transportState = domain.TransportStateDisconnected
	c.isLoading = false
	c.localAudioActive = false
	c.remoteAudioActive = false
	c.mu.Unlock()

	c.events.CallStateChanged(domain.TransportStateDisconnected, domain.CallReasonTransportDropped)
}

func (c *CallController) setSpeaking(role domain.Role, active bool) {
	c.mu.Lock()
	if role == domain.RoleUser {
		c.localAudioActive = active
	} else {
		c.remoteAudioActive = active
	}
	c.mu.Unlock()
	c.events.SpeakingChanged(role, active)
}

// appendTranscript appends one utterance in arrival order. Each adapter
// callback results in at most one append; entries are never reordered,
// batched, or deduplicated.
func (c *CallController) appendTranscript(role domain.Role, text string) {
	normalized := normalizeUtterance(text)
	if normalized == "" {
		return
	}

	entry := domain.TranscriptEntry{
		Role:      role,
		Text:      normalized,
		Timestamp: c.now().UTC().Format(time.RFC3339Nano),
	}

	c.mu.Lock()
	c.transcript = append(c.transcript, entry)
	c.mu.Unlock()

	c.events.TranscriptAppended(entry)
}

// normalizeUtterance trims the text and collapses internal whitespace runs,
// including newlines, to single spaces.
func normalizeUtterance(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
