package model

import "fmt"

// Level is the inferred severity of a telemetry line.
type Level string

const (
	LevelInfo Level = "INFO"
	LevelWarn Level = "WARN"
	LevelCrit Level = "CRIT"
	LevelSys  Level = "SYS"
)

// LogEntry represents a single parsed telemetry line.
// Entries are never mutated after the scheduler stamps them.
type LogEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"` // display-formatted, e.g. 15:04:05
	Level     Level  `json:"level"`
	System    string `json:"system"`  // bracketed tag, UNK when absent
	Message   string `json:"message"` // text after the tag
}

// Line formats the entry back into "[SYSTEM] message" form.
func (e LogEntry) Line() string {
	return fmt.Sprintf("[%s] %s", e.System, e.Message)
}

// Batch is what a text source hands back for one fetch.
type Batch struct {
	Lines    []string
	Degraded bool // live source was not used successfully
}
