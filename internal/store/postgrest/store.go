package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"capcall/internal/domain"
)

// Config controls the row-store REST client.
type Config struct {
	// BaseURL is the store root, e.g. https://project.example.co.
	BaseURL string
	// APIKey is sent as both the apikey header and the bearer token.
	APIKey string
	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration
}

// Store implements ports.CallStore against a PostgREST-style row API:
// inserts into capsule_calls, updates of convo_sessions by id, and an
// RPC that increments a capsule's cumulative call-seconds counter.
type Store struct {
	cfg  Config
	http *http.Client
}

func NewStore(cfg Config) (*Store, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, errors.New("call store base URL is not configured")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("call store API key is not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Store{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type callRow struct {
	CapsuleID       string                   `json:"capsule_id"`
	CallerID        string                   `json:"caller_id"`
	DurationSeconds int                      `json:"duration_seconds"`
	Transcript      []domain.TranscriptEntry `json:"transcript"`
}

type sessionPatch struct {
	DurationSeconds int                      `json:"duration_seconds"`
	Transcript      []domain.TranscriptEntry `json:"transcript"`
}

type incrementArgs struct {
	CapsuleID string `json:"capsule_id"`
	Seconds   int    `json:"seconds"`
}

func (s *Store) InsertCallRecord(ctx context.Context, record domain.CallRecord) error {
	row := callRow{
		CapsuleID:       record.CapsuleID,
		CallerID:        record.CallerID,
		DurationSeconds: record.DurationSeconds,
		Transcript:      record.Transcript,
	}
	return s.do(ctx, http.MethodPost, "/rest/v1/capsule_calls", row)
}

func (s *Store) IncrementCallSeconds(ctx context.Context, capsuleID string, seconds int) error {
	args := incrementArgs{CapsuleID: capsuleID, Seconds: seconds}
	return s.do(ctx, http.MethodPost, "/rest/v1/rpc/increment_capsule_call_seconds", args)
}

func (s *Store) UpdateConvoSession(ctx context.Context, sessionID string, durationSeconds int, transcript []domain.TranscriptEntry) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("convo session id is empty")
	}
	patch := sessionPatch{DurationSeconds: durationSeconds, Transcript: transcript}
	path := "/rest/v1/convo_sessions?id=eq." + url.QueryEscape(sessionID)
	return s.do(ctx, http.MethodPatch, path, patch)
}

func (s *Store) do(ctx context.Context, method string, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode store payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Prefer", "return=minimal")

	res, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		message := strings.TrimSpace(string(detail))
		if message == "" {
			message = res.Status
		}
		return fmt.Errorf("store request %s %s failed: %s", method, path, message)
	}
	return nil
}
