package model

import "testing"

func TestFrameAfter(t *testing.T) {
	f := Frame{Entries: []LogEntry{{ID: "a"}, {ID: "b"}, {ID: "c"}}}

	got := f.After("a")
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("expected [b c], got %v", got)
	}

	if got := f.After("c"); len(got) != 0 {
		t.Errorf("expected no entries after newest, got %v", got)
	}

	// Evicted ids mean everything in the frame is new to the caller.
	if got := f.After("gone"); len(got) != 3 {
		t.Errorf("expected all 3 entries for unknown id, got %d", len(got))
	}
	if got := f.After(""); len(got) != 3 {
		t.Errorf("expected all 3 entries for empty id, got %d", len(got))
	}
}

func TestFrameAIStatus(t *testing.T) {
	if s := (Frame{}).AIStatus(); s != "online" {
		t.Errorf("expected online, got %s", s)
	}
	if s := (Frame{Degraded: true}).AIStatus(); s != "offline-fallback" {
		t.Errorf("expected offline-fallback, got %s", s)
	}
}

func TestEntryLine(t *testing.T) {
	e := LogEntry{System: "NAV", Message: "Waypoint acquired."}
	if e.Line() != "[NAV] Waypoint acquired." {
		t.Errorf("unexpected line %q", e.Line())
	}
}
