package parser

import (
	"regexp"
	"strings"

	"github.com/atikulmunna/fleetwatch/internal/model"
)

// UnknownSystem is the tag given to lines without a bracketed prefix.
const UnknownSystem = "UNK"

// Parser converts a raw telemetry line into a structured LogEntry.
// ID and Timestamp are left for the caller to stamp.
type Parser interface {
	Parse(raw string) model.LogEntry
}

// TagParser handles "[TAG] message" lines.
// TAG may contain uppercase letters, digits, underscores and spaces.
type TagParser struct {
	re *regexp.Regexp
}

func NewTagParser() *TagParser {
	return &TagParser{
		re: regexp.MustCompile(`^\[([A-Z0-9_ ]+)\]\s*((?s:.*))$`),
	}
}

func (p *TagParser) Parse(raw string) model.LogEntry {
	matches := p.re.FindStringSubmatch(raw)
	if matches == nil {
		return model.LogEntry{
			Level:   model.LevelInfo,
			System:  UnknownSystem,
			Message: raw,
		}
	}

	system, message := matches[1], matches[2]
	return model.LogEntry{
		Level:   inferLevel(system, message),
		System:  system,
		Message: message,
	}
}

// Keyword groups are checked in order; the first hit wins.
var (
	critKeywords = []string{"critical", "fail", "error"}
	warnKeywords = []string{"warning", "detect"}
)

// inferLevel detects severity from keywords in the message.
func inferLevel(system, message string) model.Level {
	lower := strings.ToLower(message)

	switch {
	case containsAny(lower, critKeywords):
		return model.LevelCrit
	case containsAny(lower, warnKeywords):
		return model.LevelWarn
	case system == "SYS":
		return model.LevelSys
	default:
		return model.LevelInfo
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
