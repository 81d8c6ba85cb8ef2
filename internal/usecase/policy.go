package usecase

import (
	"context"

	"capcall/internal/domain"
	"capcall/internal/ports"
)

// SendContent requests that a capsule be read into the call, starting a
// fresh call when none is live.
func (c *CallController) SendContent(ctx context.Context, payload domain.ContentPayload) error {
	return c.send(ctx, domain.NewContentTarget(payload))
}

// SendPersona requests a call against another user's assistant persona.
func (c *CallController) SendPersona(ctx context.Context, payload domain.PersonaPayload) error {
	return c.send(ctx, domain.NewPersonaTarget(payload))
}

// send is the queueing policy shared by both target kinds. Without a
// connected transport the target is queued (last write wins; only one
// target may be in flight per call) and a start is triggered when no
// session exists yet. With a live transport the target is forwarded
// in-band, closing out the previous target's analytics segment first.
func (c *CallController) send(ctx context.Context, target *domain.CallTarget) error {
	c.mu.Lock()
	transport := c.transport
	live := transport != nil && c.transportState == domain.TransportStateConnected
	if !live {
		c.pendingTarget = target.Clone()
		needStart := transport == nil && !c.isLoading
		c.mu.Unlock()
		c.notifyTargets()

		if !needStart {
			return nil
		}
		if err := c.Start(ctx); err != nil {
			// The call never got off the ground; drop the queued target
			// unless a newer request already replaced it.
			c.mu.Lock()
			if c.pendingTarget.SameIdentity(target) {
				c.pendingTarget = nil
			}
			c.mu.Unlock()
			c.notifyTargets()
			return err
		}
		return nil
	}
	c.mu.Unlock()

	// In-band target switch: the outgoing segment must be accounted for
	// before the incoming target becomes active.
	c.closeOpenSegment(ctx)
	return c.deliver(transport, target)
}

// deliver sends the target over the wire and, only on success, promotes it
// to the active target and opens its analytics segment. A failed send is
// logged and leaves no active target, so no analytics are ever accounted
// for a target that was never delivered.
func (c *CallController) deliver(transport ports.TransportSession, target *domain.CallTarget) error {
	payload, err := encodeClientMessage(target, c.cfg.CallerName)
	if err != nil {
		c.events.CallError(domain.ErrorCodeSend, err.Error())
		return err
	}

	if err := transport.SendMessage(payload); err != nil {
		c.events.CallError(domain.ErrorCodeSend, err.Error())
		return err
	}

	sent := target.Clone()
	sent.Queued = true

	c.mu.Lock()
	if c.transport != transport {
		// A leave raced the send; the session is gone, so the target
		// never becomes active and no segment opens.
		c.mu.Unlock()
		return nil
	}
	c.activeTarget = sent
	c.segment = &segment{target: sent.Clone(), startedAt: c.now()}
	c.mu.Unlock()

	c.notifyTargets()
	return nil
}
