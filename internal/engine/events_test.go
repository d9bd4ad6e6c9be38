package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/panekit/panekit/pkg/models"
)

func TestEventType_Valid(t *testing.T) {
	valid := []EventType{
		EventTransitionStarted, EventTransitionCompleted, EventTransitionRejected,
		EventTransitionFailed, EventPreferenceSaved, EventPreferenceSaveFailed,
	}
	for _, et := range valid {
		if !et.Valid() {
			t.Errorf("EventType(%q).Valid() = false, want true", et)
		}
	}
	if EventType("LayoutExploded").Valid() {
		t.Error("unknown event type reported valid")
	}
}

func TestEncodeEvent_WireNames(t *testing.T) {
	e := Event{
		Type:      EventTransitionRejected,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Request: &models.TransitionRequest{
			ID:     "req-9",
			ToMode: models.Grid,
			Origin: models.OriginUser,
		},
		Reason: string(models.RejectLocked),
	}
	data, err := EncodeEvent(e)
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}

	s := string(data)
	for _, want := range []string{`"type":"TransitionRejected"`, `"reason":"locked"`, `"timestamp"`} {
		if !strings.Contains(s, want) {
			t.Errorf("encoded event missing %s: %s", want, s)
		}
	}
	// Empty optional fields stay off the wire.
	for _, absent := range []string{`"config"`, `"scope"`, `"error"`} {
		if strings.Contains(s, absent) {
			t.Errorf("encoded event carries empty field %s: %s", absent, s)
		}
	}
}

func TestDecodeEvent_RoundTrip(t *testing.T) {
	cfg, err := DeriveConfiguration(DeriveInput{
		ToMode:        models.SplitScreen,
		PaneIDs:       []string{"editor", "terminal"},
		FocusedPaneID: "editor",
	})
	if err != nil {
		t.Fatalf("DeriveConfiguration() error = %v", err)
	}
	e := Event{
		Type:      EventTransitionCompleted,
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Config:    &cfg,
	}

	data, err := EncodeEvent(e)
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}

	if decoded.Type != e.Type {
		t.Errorf("Type = %v, want %v", decoded.Type, e.Type)
	}
	if decoded.Config == nil || !decoded.Config.Equal(cfg) {
		t.Error("decoded configuration differs from encoded one")
	}
	if !decoded.Timestamp.Equal(e.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", decoded.Timestamp, e.Timestamp)
	}
}

func TestDecodeEvent_RejectsUnknownType(t *testing.T) {
	if _, err := DecodeEvent([]byte(`{"type":"LayoutExploded"}`)); err == nil {
		t.Error("DecodeEvent() with unknown type should return error")
	}
}

func TestDecodeEvent_RejectsMalformedJSON(t *testing.T) {
	if _, err := DecodeEvent([]byte(`{"type":`)); err == nil {
		t.Error("DecodeEvent() with malformed JSON should return error")
	}
}
