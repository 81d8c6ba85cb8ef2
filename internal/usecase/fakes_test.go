package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"capcall/internal/domain"
	"capcall/internal/ports"
)

type fakeDialer struct {
	mu       sync.Mutex
	sessions []ports.TransportSession
	err      error
	calls    int
	lastReq  ports.ConnectRequest
}

func (f *fakeDialer) Connect(_ context.Context, req ports.ConnectRequest) (ports.TransportSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no transport session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

func (f *fakeDialer) connectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTransport struct {
	mu              sync.Mutex
	events          chan domain.TransportEvent
	sent            [][]byte
	sendErr         error
	disconnectCalls int
	closed          bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan domain.TransportEvent, 32)}
}

func (f *fakeTransport) SendMessage(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, append([]byte(nil), payload...))
	return nil
}

func (f *fakeTransport) Disconnect(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnectCalls++
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeTransport) Events() <-chan domain.TransportEvent { return f.events }

func (f *fakeTransport) emit(event domain.TransportEvent) {
	f.events <- event
}

// drop simulates the backend ending the connection: the disconnected event
// is the last one delivered before the channel closes, matching the
// adapter contract.
func (f *fakeTransport) drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.events <- domain.TransportEvent{Kind: domain.EventDisconnected}
	close(f.events)
}

func (f *fakeTransport) sentMessages() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

type storeCall struct {
	kind     string
	id       string
	callerID string
	seconds  int
	entries  int
}

type fakeStore struct {
	mu           sync.Mutex
	calls        []storeCall
	insertErr    error
	incrementErr error
	updateErr    error
}

func (f *fakeStore) InsertCallRecord(_ context.Context, record domain.CallRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.calls = append(f.calls, storeCall{
		kind:     "insert",
		id:       record.CapsuleID,
		callerID: record.CallerID,
		seconds:  record.DurationSeconds,
		entries:  len(record.Transcript),
	})
	return nil
}

func (f *fakeStore) IncrementCallSeconds(_ context.Context, capsuleID string, seconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErr != nil {
		return f.incrementErr
	}
	f.calls = append(f.calls, storeCall{kind: "increment", id: capsuleID, seconds: seconds})
	return nil
}

func (f *fakeStore) UpdateConvoSession(_ context.Context, sessionID string, durationSeconds int, transcript []domain.TranscriptEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.calls = append(f.calls, storeCall{
		kind:    "update",
		id:      sessionID,
		seconds: durationSeconds,
		entries: len(transcript),
	})
	return nil
}

func (f *fakeStore) snapshotCalls() []storeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]storeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

type stateEvent struct {
	state  domain.TransportState
	reason domain.CallStateReason
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

type fakeEventSink struct {
	mu sync.Mutex

	states  []stateEvent
	entries []domain.TranscriptEntry
	errors  []errEvent
}

func (f *fakeEventSink) CallStateChanged(state domain.TransportState, reason domain.CallStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) SpeakingChanged(domain.Role, bool) {}

func (f *fakeEventSink) TranscriptAppended(entry domain.TranscriptEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

func (f *fakeEventSink) TargetChanged(*domain.CallTarget, *domain.CallTarget) {}

func (f *fakeEventSink) CallError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// waitFor polls until the condition holds; transport events are applied by
// a consumer goroutine, so observable effects land asynchronously.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func newTestController(dialer *fakeDialer, store *fakeStore, sink *fakeEventSink, clock *fakeClock) *CallController {
	controller := NewCallController(dialer, store, sink, Config{
		Credential:        "test-key",
		PreferredLanguage: "en",
		CallerID:          "caller-1",
		CallerName:        "Avery",
	})
	if clock != nil {
		controller.now = clock.Now
	}
	return controller
}
