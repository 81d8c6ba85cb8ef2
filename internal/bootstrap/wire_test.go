package bootstrap

import (
	"testing"

	"capcall/internal/domain"
)

func TestBuildSuccess(t *testing.T) {
	t.Setenv("CAPCALL_STORE_URL", "https://db.example.co")
	t.Setenv("CAPCALL_STORE_KEY", "store-key")
	t.Setenv("CAPCALL_API_KEY", "call-key")

	services, err := Build(noopEventSink{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.Controller == nil {
		t.Fatalf("expected controller")
	}
	if services.Config.Store.BaseURL != "https://db.example.co" {
		t.Fatalf("unexpected store URL: %q", services.Config.Store.BaseURL)
	}
}

func TestBuildFailsWithoutStoreConfig(t *testing.T) {
	t.Setenv("CAPCALL_STORE_URL", "")
	t.Setenv("CAPCALL_STORE_KEY", "")

	if _, err := Build(noopEventSink{}); err == nil {
		t.Fatalf("expected build error without store settings")
	}
}

type noopEventSink struct{}

func (noopEventSink) CallStateChanged(_ domain.TransportState, _ domain.CallStateReason) {}
func (noopEventSink) SpeakingChanged(_ domain.Role, _ bool)                              {}
func (noopEventSink) TranscriptAppended(_ domain.TranscriptEntry)                        {}
func (noopEventSink) TargetChanged(_ *domain.CallTarget, _ *domain.CallTarget)           {}
func (noopEventSink) CallError(_ domain.ErrorCode, _ string)                             {}
