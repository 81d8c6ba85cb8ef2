package usecase

import (
	"context"
	"fmt"
	"time"

	"capcall/internal/domain"
)

// segment is the single-slot "segment in progress" marker: one target open
// in a live call, with its start instant captured exactly once when the
// target became active. It is cleared before persistence runs, so a failed
// write can never block future reconciliation.
type segment struct {
	target    *domain.CallTarget
	startedAt time.Time
}

// closeOpenSegment converts the open segment, if any, into durable
// analytics: one call record plus counter increment for capsule targets,
// one session update for persona targets. Exactly one write sequence
// happens per segment regardless of which end trigger fires first
// (explicit leave, transport drop, target dismissal, or in-band target
// switch) because the marker is consumed under the lock.
func (c *CallController) closeOpenSegment(ctx context.Context) {
	c.mu.Lock()
	seg := c.segment
	if seg == nil {
		c.mu.Unlock()
		return
	}
	c.segment = nil
	c.activeTarget = nil
	duration := int(c.now().Sub(seg.startedAt).Seconds())
	transcript := make([]domain.TranscriptEntry, len(c.transcript))
	copy(transcript, c.transcript)
	c.mu.Unlock()

	if duration < 0 {
		duration = 0
	}
	c.persistSegment(ctx, seg.target, duration, transcript)
}

// persistSegment issues the per-kind persistence writes. Failures are
// logged and never retried: analytics are best-effort telemetry, and a
// lost write is preferable to blocking the next call.
func (c *CallController) persistSegment(ctx context.Context, target *domain.CallTarget, durationSeconds int, transcript []domain.TranscriptEntry) {
	switch target.Kind {
	case domain.TargetKindContent:
		record := domain.CallRecord{
			CapsuleID:       target.Content.ID,
			CallerID:        c.cfg.CallerID,
			DurationSeconds: durationSeconds,
			Transcript:      transcript,
		}
		if err := c.store.InsertCallRecord(ctx, record); err != nil {
			c.events.CallError(domain.ErrorCodePersistence, fmt.Sprintf("failed to record capsule call: %v", err))
			return
		}
		if err := c.store.IncrementCallSeconds(ctx, target.Content.ID, durationSeconds); err != nil {
			c.events.CallError(domain.ErrorCodePersistence, fmt.Sprintf("failed to increment capsule call counter: %v", err))
		}
	case domain.TargetKindPersona:
		if err := c.store.UpdateConvoSession(ctx, target.Persona.SessionID, durationSeconds, transcript); err != nil {
			c.events.CallError(domain.ErrorCodePersistence, fmt.Sprintf("failed to update convo session: %v", err))
		}
	}
}
