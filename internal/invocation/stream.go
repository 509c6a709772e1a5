package invocation

import (
	"encoding/json"
	"os"
	"strings"
)

// streamEvent is the slice of a stream-json line extraction cares about.
// All other fields and event types are opaque and stay in the sink verbatim.
type streamEvent struct {
	Type   string `json:"type"`
	Result string `json:"result"`
}

// Extract recovers the terminal result from captured stream content. It
// scans lines from the end toward the start, skipping blanks, lines not
// opening a JSON object, and lines that fail to parse, and returns the
// payload of the first "result" event found. When several result events
// exist the one closest to the end of the stream wins. Returns "" when
// no result event is present.
func Extract(content []byte) string {
	lines := strings.Split(string(content), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var event streamEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}
		if event.Type == "result" {
			return event.Result
		}
	}
	return ""
}

// ExtractFile runs Extract over a sink file. Unreadable files yield "",
// mirroring the no-result case: the caller's stderr fallback takes over.
func ExtractFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return Extract(data)
}
