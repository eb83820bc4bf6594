package relay

import (
	"encoding/json"
	"fmt"

	"github.com/okonst/widgetbridge/internal/model/copilot"
)

const (
	maxToolInputChars  = 300
	maxToolOutputChars = 500
	maxResultChars     = 500
)

// DecodeLine turns one line of the CLI's stream-json stdout into outbound
// chat events. Lines that are not JSON objects are forwarded verbatim as a
// text chunk, so the caller never loses output.
func DecodeLine(line []byte) []copilot.Event {
	var event map[string]any
	if err := json.Unmarshal(line, &event); err != nil {
		return []copilot.Event{copilot.MessageChunk(string(line))}
	}
	return mapEvent(event)
}

// mapEvent routes a decoded stream-json object by its top-level type.
// Unknown types produce nothing.
func mapEvent(event map[string]any) []copilot.Event {
	switch stringField(event, "type") {
	case "system":
		return mapSystem(event)
	case "stream_event":
		return mapStreamEvent(event)
	case "assistant":
		return mapAssistant(event)
	case "user":
		return mapUser(event)
	case "result":
		return mapResult(event)
	}
	return nil
}

func mapSystem(event map[string]any) []copilot.Event {
	if stringField(event, "subtype") != "init" {
		return nil
	}
	return []copilot.Event{copilot.ReasoningStep(copilot.StatusInfo,
		"Agent session initialized",
		map[string]any{"session_id": stringField(event, "session_id")},
	)}
}

func mapStreamEvent(event map[string]any) []copilot.Event {
	inner, _ := event["event"].(map[string]any)
	if stringField(inner, "type") != "content_block_delta" {
		return nil
	}

	delta, _ := inner["delta"].(map[string]any)
	if stringField(delta, "type") != "text_delta" {
		return nil
	}

	if text := stringField(delta, "text"); text != "" {
		return []copilot.Event{copilot.MessageChunk(text)}
	}
	return nil
}

func mapAssistant(event map[string]any) []copilot.Event {
	message, _ := event["message"].(map[string]any)
	blocks, _ := message["content"].([]any)

	var out []copilot.Event
	for _, raw := range blocks {
		block, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		switch stringField(block, "type") {
		case "tool_use":
			name := stringField(block, "name")
			if name == "" {
				name = "unknown"
			}
			details := map[string]any{"tool": name}
			if input, ok := block["input"].(map[string]any); ok && len(input) > 0 {
				if data, err := json.Marshal(input); err == nil {
					details["input"] = truncate(string(data), maxToolInputChars)
				}
			}
			out = append(out, copilot.ReasoningStep(copilot.StatusInfo,
				fmt.Sprintf("Executing: %s", name), details))
		case "text":
			if text := stringField(block, "text"); text != "" {
				out = append(out, copilot.MessageChunk(text))
			}
		}
	}
	return out
}

func mapUser(event map[string]any) []copilot.Event {
	blocks, _ := event["content"].([]any)

	var out []copilot.Event
	for _, raw := range blocks {
		block, ok := raw.(map[string]any)
		if !ok || stringField(block, "type") != "tool_result" {
			continue
		}

		isError, _ := block["is_error"].(bool)

		var display string
		switch content := block["content"].(type) {
		case string:
			display = content
		default:
			display = fmt.Sprintf("%v", content)
		}
		display = truncate(display, maxToolOutputChars)

		kind, message := copilot.StatusInfo, "Tool completed"
		if isError {
			kind, message = copilot.StatusError, "Tool failed"
		}
		out = append(out, copilot.ReasoningStep(kind, message,
			map[string]any{"output": display}))
	}
	return out
}

func mapResult(event map[string]any) []copilot.Event {
	resultText := stringField(event, "result")
	isError, _ := event["is_error"].(bool)

	if !isError {
		if resultText == "" {
			return nil
		}
		return []copilot.Event{copilot.MessageChunk(resultText)}
	}

	errText := resultText
	if errText == "" {
		errText = "Unknown error"
	}
	out := []copilot.Event{copilot.ReasoningStep(copilot.StatusError,
		"Execution failed",
		map[string]any{"error": truncate(errText, maxResultChars)},
	)}
	if resultText != "" {
		out = append(out, copilot.MessageChunk(fmt.Sprintf("\n\n**Error:**\n%s", resultText)))
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
