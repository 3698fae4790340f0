package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atikulmunna/fleetwatch/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// Renderer writes LogEntry values to an output stream.
type Renderer interface {
	Render(entry model.LogEntry) error
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleInfo = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))             // green
	styleWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))            // yellow
	styleCrit = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red bold
	styleSys  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("24")).
			Bold(true) // white on blue
	styleSystem = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true) // cyan
	styleTime   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// TextRenderer prints entries to the terminal with severity-based colors.
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer returns a Renderer that writes colorized text to stdout.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{w: os.Stdout}
}

func (r *TextRenderer) Render(entry model.LogEntry) error {
	_, err := fmt.Fprintln(r.w, FormatLine(entry))
	return err
}

// FormatLine renders an entry as "15:04:05 LEVEL [SYSTEM] message".
func FormatLine(entry model.LogEntry) string {
	return fmt.Sprintf("%s %s %s %s",
		styleTime.Render(entry.Timestamp),
		LevelTag(entry.Level),
		styleSystem.Render("["+entry.System+"]"),
		entry.Message)
}

// LevelTag returns the padded, colored level label.
func LevelTag(level model.Level) string {
	return LevelStyle(level).Render(fmt.Sprintf("%-4s", level))
}

// LevelStyle returns the lipgloss style used for a level.
func LevelStyle(level model.Level) lipgloss.Style {
	switch level {
	case model.LevelWarn:
		return styleWarn
	case model.LevelCrit:
		return styleCrit
	case model.LevelSys:
		return styleSys
	default:
		return styleInfo
	}
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each entry as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to stdout.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(os.Stdout)}
}

func (r *JSONRenderer) Render(entry model.LogEntry) error {
	return r.enc.Encode(entry)
}

// ---------------------------------------------------------------------------
// Level filter
// ---------------------------------------------------------------------------

// LevelFilter reports whether an entry passes a comma-separated level list.
// An empty filter passes everything.
type LevelFilter map[model.Level]bool

// ParseLevelFilter builds a filter from input like "warn,crit".
func ParseLevelFilter(list string) (LevelFilter, error) {
	filter := make(LevelFilter)
	if strings.TrimSpace(list) == "" {
		return filter, nil
	}
	for _, l := range strings.Split(list, ",") {
		level := model.Level(strings.ToUpper(strings.TrimSpace(l)))
		switch level {
		case model.LevelInfo, model.LevelWarn, model.LevelCrit, model.LevelSys:
			filter[level] = true
		case "":
		default:
			return nil, fmt.Errorf("unknown level %q (want info, warn, crit, sys)", l)
		}
	}
	return filter, nil
}

// Allows returns true if the entry passes the filter.
func (f LevelFilter) Allows(entry model.LogEntry) bool {
	if len(f) == 0 {
		return true
	}
	return f[entry.Level]
}
