package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/atikulmunna/fleetwatch/internal/model"
)

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	renderer := &JSONRenderer{enc: enc}

	entry := model.LogEntry{
		ID:        "a1",
		Timestamp: "12:00:01",
		Level:     model.LevelCrit,
		System:    "SYS",
		Message:   "Critical failure detected.",
	}

	if err := renderer.Render(entry); err != nil {
		t.Fatal(err)
	}

	// Parse the output JSON.
	var got model.LogEntry
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\nraw: %s", err, buf.String())
	}

	if got.Level != model.LevelCrit {
		t.Errorf("expected level CRIT, got %s", got.Level)
	}
	if got.Message != "Critical failure detected." {
		t.Errorf("expected message 'Critical failure detected.', got %q", got.Message)
	}
	if got.System != "SYS" {
		t.Errorf("expected system 'SYS', got %q", got.System)
	}
	if !strings.Contains(buf.String(), `"timestamp":"12:00:01"`) {
		t.Errorf("expected timestamp field, got %s", buf.String())
	}
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	renderer := &TextRenderer{w: &buf}

	entry := model.LogEntry{Timestamp: "08:15:00", Level: model.LevelInfo, System: "NAV", Message: "Waypoint acquired."}
	if err := renderer.Render(entry); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"08:15:00", "INFO", "[NAV]", "Waypoint acquired."} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got %q", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("expected trailing newline")
	}
}

func TestLevelFilter(t *testing.T) {
	filter, err := ParseLevelFilter("warn, CRIT")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		level model.Level
		want  bool
	}{
		{model.LevelInfo, false},
		{model.LevelWarn, true},
		{model.LevelCrit, true},
		{model.LevelSys, false},
	}
	for _, tt := range tests {
		if got := filter.Allows(model.LogEntry{Level: tt.level}); got != tt.want {
			t.Errorf("Allows(%s) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestLevelFilterEmpty(t *testing.T) {
	filter, err := ParseLevelFilter("")
	if err != nil {
		t.Fatal(err)
	}
	if !filter.Allows(model.LogEntry{Level: model.LevelSys}) {
		t.Error("expected empty filter to allow everything")
	}
}

func TestLevelFilterUnknown(t *testing.T) {
	if _, err := ParseLevelFilter("info,debug"); err == nil {
		t.Error("expected error for unknown level")
	}
}
