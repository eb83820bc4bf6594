// Package request normalizes copilot query payloads into the internal
// RequestContext the prompt builder and relay work with.
package request

import (
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/okonst/widgetbridge/internal/model/copilot"
)

// Parse flattens a QueryRequest into a RequestContext: latest human
// message, history, widget metadata and tool results.
func Parse(req *copilot.QueryRequest) *copilot.RequestContext {
	ctx := &copilot.RequestContext{
		History:          make([]copilot.HistoryEntry, 0, len(req.Messages)),
		PrimaryWidgets:   []copilot.Widget{},
		SecondaryWidgets: []copilot.Widget{},
		ToolResults:      []copilot.ToolResult{},
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case copilot.RoleHuman:
			ctx.UserMessage = msg.Content
			ctx.History = append(ctx.History, copilot.HistoryEntry{Role: msg.Role, Content: msg.Content})
		case copilot.RoleAI:
			ctx.History = append(ctx.History, copilot.HistoryEntry{Role: msg.Role, Content: msg.Content})
		case copilot.RoleTool:
			ctx.History = append(ctx.History, copilot.HistoryEntry{Role: msg.Role, Function: msg.Function})
			ctx.ToolResults = append(ctx.ToolResults, toolResult(msg))
		}
	}

	// The agent only runs when the conversation is waiting on it.
	if n := len(req.Messages); n > 0 {
		ctx.ShouldExecute = req.Messages[n-1].Role == copilot.RoleHuman
	}

	if req.Widgets != nil {
		ctx.PrimaryWidgets = append(ctx.PrimaryWidgets, req.Widgets.Primary...)
		ctx.SecondaryWidgets = append(ctx.SecondaryWidgets, req.Widgets.Secondary...)
	}

	return ctx
}

// toolResult decodes a tool turn's data. String payloads that contain
// JSON are decoded; anything else is kept as-is with the raw text
// preserved for the debug dump.
func toolResult(msg copilot.RequestMessage) copilot.ToolResult {
	result := copilot.ToolResult{
		Function:       msg.Function,
		InputArguments: msg.InputArguments,
		ExtraState:     msg.ExtraState,
	}
	if result.Function == "" {
		result.Function = "unknown"
	}
	if result.InputArguments == nil {
		result.InputArguments = map[string]any{}
	}

	if len(msg.Data) == 0 {
		return result
	}

	result.Raw = string(msg.Data)

	var decoded any
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		result.Data = string(msg.Data)
		return result
	}

	// A JSON string may itself wrap a JSON document.
	if s, ok := decoded.(string); ok {
		result.Raw = s
		var inner any
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			result.Data = inner
		} else {
			result.Data = s
		}
		return result
	}

	result.Data = decoded
	return result
}

// ConversationKey derives a stable conversation identifier from the first
// message, since the dashboard does not send explicit conversation ids.
// Returns the empty string when there is nothing to key on.
func ConversationKey(req *copilot.QueryRequest) string {
	if len(req.Messages) == 0 {
		return ""
	}

	first := req.Messages[0]
	content := first.Content
	if content == "" && len(first.Data) > 0 {
		content = string(first.Data)
	}
	if content == "" {
		return ""
	}

	h := fnv.New64a()
	h.Write([]byte(content))
	return fmt.Sprintf("%016x", h.Sum64())
}
