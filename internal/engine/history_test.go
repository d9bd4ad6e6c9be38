package engine

import (
	"testing"
	"time"

	"github.com/panekit/panekit/pkg/models"
)

func record(id string, outcome TransitionOutcome) TransitionRecord {
	return TransitionRecord{
		Request: models.TransitionRequest{ID: id, ToMode: models.Grid},
		Outcome: outcome,
		EndedAt: time.Now(),
	}
}

func TestHistory_RecordAndRecent(t *testing.T) {
	h := NewHistory(4)
	if h.Len() != 0 {
		t.Errorf("Len() = %d on empty history, want 0", h.Len())
	}

	h.Record(record("a", OutcomeCompleted))
	h.Record(record("b", OutcomeRejected))
	h.Record(record("c", OutcomeCompleted))

	recent := h.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("len(Recent(2)) = %d, want 2", len(recent))
	}
	if recent[0].Request.ID != "c" || recent[1].Request.ID != "b" {
		t.Errorf("Recent order = [%s %s], want newest first [c b]",
			recent[0].Request.ID, recent[1].Request.ID)
	}
}

func TestHistory_EvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		h.Record(record(id, OutcomeCompleted))
	}

	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want capacity 3", h.Len())
	}
	recent := h.Recent(10)
	if len(recent) != 3 {
		t.Fatalf("len(Recent(10)) = %d, want 3", len(recent))
	}
	want := []string{"e", "d", "c"}
	for i, rec := range recent {
		if rec.Request.ID != want[i] {
			t.Errorf("Recent[%d] = %s, want %s", i, rec.Request.ID, want[i])
		}
	}
}

func TestHistory_RecentZeroOrNegative(t *testing.T) {
	h := NewHistory(4)
	h.Record(record("a", OutcomeCompleted))

	if got := h.Recent(0); len(got) != 0 {
		t.Errorf("Recent(0) returned %d records, want 0", len(got))
	}
	if got := h.Recent(-1); len(got) != 0 {
		t.Errorf("Recent(-1) returned %d records, want 0", len(got))
	}
}
