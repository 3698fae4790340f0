package textsource

import (
	"fmt"
	"strings"
)

const (
	exampleCount = 5
	contextLimit = 10
)

const systemInstruction = `You are the telemetry core of a deep-space freight fleet.
You emit terse machine log lines for the bridge dashboard.
Rules:
- Every line is formatted as "[TAG] message".
- TAG is one short uppercase word such as NAV, ENG, SYS, COMMS, SENSOR, HULL, CARGO, POWER; underscores allowed.
- Messages are one sentence, technical, and under 90 characters.
- Mix routine status with the occasional warning, detection or critical failure.
- Never repeat a line you have been shown.
- Respond with a JSON array of strings and nothing else.`

// buildPrompt assembles the user turn: examples, recent context and the
// request for count new lines.
func buildPrompt(examples, recent []string, count int) string {
	if len(recent) > contextLimit {
		recent = recent[len(recent)-contextLimit:]
	}

	var b strings.Builder
	b.WriteString("Example log lines:\n")
	for _, line := range examples {
		fmt.Fprintf(&b, "%s\n", line)
	}

	if len(recent) > 0 {
		b.WriteString("\nMost recent lines on the dashboard:\n")
		for _, line := range recent {
			fmt.Fprintf(&b, "%s\n", line)
		}
	}

	fmt.Fprintf(&b, "\nGenerate exactly %d new unique log line", count)
	if count != 1 {
		b.WriteString("s")
	}
	b.WriteString(` formatted as "[TAG] message". Return them as a JSON array of strings.`)
	return b.String()
}
