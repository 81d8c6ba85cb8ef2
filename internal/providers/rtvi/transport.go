package rtvi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"capcall/internal/domain"
	"capcall/internal/ports"
)

// Config controls the calling backend websocket settings.
type Config struct {
	// Endpoint is the calling backend base URL (http(s) or ws(s) scheme).
	Endpoint string
	// EventBuffer sizes the per-session event channel.
	EventBuffer int
}

// Dialer implements ports.TransportDialer against an RTVI-style calling
// backend: a websocket that carries client control messages outbound and
// bot-ready/speaking/transcription events inbound.
type Dialer struct {
	cfg Config
}

func NewDialer(cfg Config) *Dialer {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	return &Dialer{cfg: cfg}
}

func (d *Dialer) Connect(ctx context.Context, req ports.ConnectRequest) (ports.TransportSession, error) {
	if strings.TrimSpace(req.Credential) == "" {
		return nil, errors.New("calling backend credential is not configured")
	}

	wsURL, err := buildCallURL(d.cfg.Endpoint, req.PreferredLanguage, uuid.NewString())
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+req.Credential)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to calling backend: %w", err)
	}

	session := &transportSession{
		conn:   conn,
		events: make(chan domain.TransportEvent, d.cfg.EventBuffer),
		done:   make(chan struct{}),
	}

	go session.readLoop()

	return session, nil
}

type transportSession struct {
	conn *websocket.Conn

	events chan domain.TransportEvent
	done   chan struct{}

	writeMu sync.Mutex

	errMu   sync.Mutex
	err     error
	closing bool

	closeOnce sync.Once
}

// SendMessage writes one client control message. Fire-and-forget: a nil
// return means the frame was handed to the socket.
func (s *transportSession) SendMessage(payload []byte) error {
	select {
	case <-s.done:
		return errors.New("transport session is closed")
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("failed to send client message: %w", err)
	}
	return nil
}

func (s *transportSession) Events() <-chan domain.TransportEvent {
	return s.events
}

func (s *transportSession) Disconnect(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.errMu.Lock()
		s.closing = true
		s.errMu.Unlock()

		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline())
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})

	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.sessionErr()
}

func (s *transportSession) sessionErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *transportSession) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	// A read error caused by our own Disconnect is expected, not a fault.
	if s.closing {
		return
	}
	if s.err == nil {
		s.err = err
	}
}

// readLoop decodes backend events into domain transport events, in socket
// order, on a single channel. The disconnected event is always the last one
// delivered, after which the channel closes.
func (s *transportSession) readLoop() {
	defer func() {
		s.emit(domain.TransportEvent{Kind: domain.EventDisconnected})
		close(s.events)
		close(s.done)
		_ = s.conn.Close()
	}()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(fmt.Errorf("failed to read backend event: %w", err))
			return
		}

		var message serverMessage
		if err := json.Unmarshal(payload, &message); err != nil {
			continue
		}

		if event, ok := mapServerMessage(message); ok {
			s.emit(event)
		}
	}
}

// emit blocks rather than drops: consumers rely on seeing every event.
func (s *transportSession) emit(event domain.TransportEvent) {
	s.events <- event
}

type serverMessage struct {
	Type string `json:"type"`
	Data struct {
		Text    string `json:"text"`
		Final   bool   `json:"final"`
		Message string `json:"message"`
	} `json:"data"`
}

func mapServerMessage(message serverMessage) (domain.TransportEvent, bool) {
	switch message.Type {
	case "bot-ready":
		return domain.TransportEvent{Kind: domain.EventConnected}, true
	case "user-started-speaking":
		return domain.TransportEvent{Kind: domain.EventUserSpeakingStarted}, true
	case "user-stopped-speaking":
		return domain.TransportEvent{Kind: domain.EventUserSpeakingStopped}, true
	case "bot-started-speaking":
		return domain.TransportEvent{Kind: domain.EventBotSpeakingStarted}, true
	case "bot-stopped-speaking":
		return domain.TransportEvent{Kind: domain.EventBotSpeakingStopped}, true
	case "user-transcription":
		return domain.TransportEvent{
			Kind:  domain.EventUserTranscript,
			Text:  message.Data.Text,
			Final: message.Data.Final,
		}, true
	case "bot-transcription":
		return domain.TransportEvent{Kind: domain.EventBotTranscript, Text: message.Data.Text}, true
	case "error":
		detail := strings.TrimSpace(message.Data.Message)
		if detail == "" {
			detail = "calling backend returned an unknown error"
		}
		return domain.TransportEvent{Kind: domain.EventTransportError, Detail: detail}, true
	default:
		return domain.TransportEvent{}, false
	}
}

func deadline() time.Time {
	return time.Now().Add(2 * time.Second)
}

func buildCallURL(endpoint string, language string, sessionID string) (string, error) {
	base := strings.TrimSpace(endpoint)
	if base == "" {
		return "", errors.New("calling backend endpoint is not configured")
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	callURL, err := url.Parse(base + "/call")
	if err != nil {
		return "", fmt.Errorf("invalid calling backend endpoint: %w", err)
	}

	query := callURL.Query()
	if language != "" {
		query.Set("language", language)
	}
	query.Set("session_id", sessionID)
	callURL.RawQuery = query.Encode()
	return callURL.String(), nil
}
