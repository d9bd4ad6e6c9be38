package engine

import "testing"

func TestStaticPaneHost_InitialState(t *testing.T) {
	host := NewStaticPaneHost("a", "b", "c")

	got := host.ActivePaneIDs()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("ActivePaneIDs() returned %d panes, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i] != id {
			t.Errorf("ActivePaneIDs()[%d] = %q, want %q", i, got[i], id)
		}
	}
	if focused := host.FocusedPaneID(); focused != "a" {
		t.Errorf("FocusedPaneID() = %q, want %q before any SetFocus", focused, "a")
	}
}

func TestStaticPaneHost_Empty(t *testing.T) {
	host := NewStaticPaneHost()
	if got := host.ActivePaneIDs(); len(got) != 0 {
		t.Errorf("ActivePaneIDs() = %v, want none", got)
	}
	if focused := host.FocusedPaneID(); focused != "" {
		t.Errorf("FocusedPaneID() = %q, want empty", focused)
	}
}

func TestStaticPaneHost_ActivePaneIDsCopies(t *testing.T) {
	host := NewStaticPaneHost("a", "b")
	ids := host.ActivePaneIDs()
	ids[0] = "mutated"

	if got := host.ActivePaneIDs()[0]; got != "a" {
		t.Errorf("ActivePaneIDs()[0] = %q after caller mutation, want %q", got, "a")
	}
}

func TestStaticPaneHost_SetFocus(t *testing.T) {
	host := NewStaticPaneHost("a", "b", "c")

	host.SetFocus("b")
	if focused := host.FocusedPaneID(); focused != "b" {
		t.Fatalf("FocusedPaneID() = %q, want %q", focused, "b")
	}

	host.SetFocus("ghost")
	if focused := host.FocusedPaneID(); focused != "b" {
		t.Errorf("FocusedPaneID() = %q after focusing unknown pane, want %q", focused, "b")
	}
}

func TestStaticPaneHost_AddPane(t *testing.T) {
	host := NewStaticPaneHost("a")

	host.AddPane("b")
	got := host.ActivePaneIDs()
	if len(got) != 2 || got[1] != "b" {
		t.Fatalf("ActivePaneIDs() = %v after AddPane, want [a b]", got)
	}

	host.AddPane("b")
	if got := host.ActivePaneIDs(); len(got) != 2 {
		t.Errorf("ActivePaneIDs() = %v after duplicate AddPane, want [a b]", got)
	}

	host.AddPane("")
	if got := host.ActivePaneIDs(); len(got) != 2 {
		t.Errorf("ActivePaneIDs() = %v after empty AddPane, want [a b]", got)
	}
}

func TestStaticPaneHost_RemovePane(t *testing.T) {
	host := NewStaticPaneHost("a", "b", "c")

	host.RemovePane("b")
	got := host.ActivePaneIDs()
	want := []string{"a", "c"}
	if len(got) != len(want) {
		t.Fatalf("ActivePaneIDs() = %v after RemovePane, want %v", got, want)
	}
	for i, id := range want {
		if got[i] != id {
			t.Errorf("ActivePaneIDs()[%d] = %q, want %q", i, got[i], id)
		}
	}

	host.RemovePane("ghost")
	if got := host.ActivePaneIDs(); len(got) != 2 {
		t.Errorf("ActivePaneIDs() = %v after removing unknown pane, want %v", got, want)
	}
}

func TestStaticPaneHost_FocusFallsBackThroughHistory(t *testing.T) {
	host := NewStaticPaneHost("a", "b", "c")
	host.SetFocus("a")
	host.SetFocus("b")
	host.SetFocus("c")

	host.RemovePane("c")
	if focused := host.FocusedPaneID(); focused != "b" {
		t.Fatalf("FocusedPaneID() = %q after removing focused pane, want %q", focused, "b")
	}

	host.RemovePane("b")
	if focused := host.FocusedPaneID(); focused != "a" {
		t.Errorf("FocusedPaneID() = %q after removing fallback pane, want %q", focused, "a")
	}
}

func TestStaticPaneHost_RefocusMovesToEndOfHistory(t *testing.T) {
	host := NewStaticPaneHost("a", "b")
	host.SetFocus("a")
	host.SetFocus("b")
	host.SetFocus("a")

	host.RemovePane("a")
	if focused := host.FocusedPaneID(); focused != "b" {
		t.Errorf("FocusedPaneID() = %q, want %q", focused, "b")
	}
}

func TestStaticPaneHost_RemoveFocusedWithoutHistory(t *testing.T) {
	// Focus never set: removing the implicit first pane leaves the
	// survivor as the reported focus.
	host := NewStaticPaneHost("a", "b")
	host.RemovePane("a")
	if focused := host.FocusedPaneID(); focused != "b" {
		t.Errorf("FocusedPaneID() = %q, want %q", focused, "b")
	}

	// Single-entry history: removing it empties the history and falls
	// back to the first remaining pane.
	host = NewStaticPaneHost("a", "b")
	host.SetFocus("a")
	host.RemovePane("a")
	if focused := host.FocusedPaneID(); focused != "b" {
		t.Errorf("FocusedPaneID() = %q after draining history, want %q", focused, "b")
	}
}

func TestStaticPaneHost_SetPanesPrunesFocusHistory(t *testing.T) {
	host := NewStaticPaneHost("a", "b", "c")
	host.SetFocus("b")
	host.SetFocus("c")

	host.SetPanes([]string{"a", "b"})
	got := host.ActivePaneIDs()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("ActivePaneIDs() = %v after SetPanes, want [a b]", got)
	}
	if focused := host.FocusedPaneID(); focused != "b" {
		t.Errorf("FocusedPaneID() = %q after SetPanes dropped focus, want %q", focused, "b")
	}

	host.SetFocus("a")
	host.SetPanes([]string{"a", "d"})
	if focused := host.FocusedPaneID(); focused != "a" {
		t.Errorf("FocusedPaneID() = %q when focus survives SetPanes, want %q", focused, "a")
	}
}
