package invocation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// EventKind classifies a stream line for display surfaces (the live tail
// and `rex logs`). Extraction never uses this path: it stays strict.
type EventKind string

const (
	EventSystem     EventKind = "system"
	EventAssistant  EventKind = "assistant"
	EventToolUse    EventKind = "tool_use"
	EventToolResult EventKind = "tool_result"
	EventResult     EventKind = "result"
	EventOpaque     EventKind = "opaque"
)

// EventSummary is a one-line human rendering of a stream event.
type EventSummary struct {
	Kind EventKind
	Text string
}

const summaryMaxRunes = 160

// SummarizeLine classifies one line of sink content. Framing markers and
// blank lines report ok == false. A truncated final line (the sink may be
// mid-append while tailing) goes through jsonrepair before being given up
// on as opaque.
func SummarizeLine(line string) (EventSummary, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || !strings.HasPrefix(trimmed, "{") {
		return EventSummary{}, false
	}

	var event map[string]any
	if err := json.Unmarshal([]byte(trimmed), &event); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(trimmed)
		if repairErr != nil || json.Unmarshal([]byte(repaired), &event) != nil {
			return EventSummary{Kind: EventOpaque, Text: truncateLine(trimmed)}, true
		}
	}

	kind, _ := event["type"].(string)
	switch kind {
	case "system":
		subtype, _ := event["subtype"].(string)
		if subtype == "" {
			subtype = "event"
		}
		return EventSummary{Kind: EventSystem, Text: "system: " + subtype}, true
	case "assistant", "user":
		if summary, ok := summarizeMessage(event); ok {
			return summary, true
		}
		return EventSummary{Kind: EventAssistant, Text: kind + " message"}, true
	case "result":
		payload, _ := event["result"].(string)
		return EventSummary{Kind: EventResult, Text: truncateLine(payload)}, true
	case "":
		return EventSummary{Kind: EventOpaque, Text: truncateLine(trimmed)}, true
	default:
		return EventSummary{Kind: EventOpaque, Text: kind + " event"}, true
	}
}

// summarizeMessage digs the first interesting content block out of an
// assistant or user message event.
func summarizeMessage(event map[string]any) (EventSummary, bool) {
	message, _ := event["message"].(map[string]any)
	content, _ := message["content"].([]any)
	for _, raw := range content {
		block, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch block["type"] {
		case "tool_use":
			name, _ := block["name"].(string)
			return EventSummary{Kind: EventToolUse, Text: fmt.Sprintf("tool_use: %s", name)}, true
		case "tool_result":
			return EventSummary{Kind: EventToolResult, Text: "tool_result"}, true
		case "text":
			text, _ := block["text"].(string)
			if strings.TrimSpace(text) == "" {
				continue
			}
			return EventSummary{Kind: EventAssistant, Text: truncateLine(text)}, true
		}
	}
	return EventSummary{}, false
}

func truncateLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	runes := []rune(text)
	if len(runes) <= summaryMaxRunes {
		return text
	}
	return string(runes[:summaryMaxRunes]) + "…"
}
