package copilot

import "encoding/json"

// Message roles used by the copilot query payload.
const (
	RoleHuman = "human"
	RoleAI    = "ai"
	RoleTool  = "tool"
)

// QueryRequest is the chat payload posted by the dashboard copilot.
type QueryRequest struct {
	Messages []RequestMessage `json:"messages"`
	Widgets  *WidgetSelection `json:"widgets,omitempty"`
}

// RequestMessage is a single conversation turn. Tool turns carry the
// function name and retrieved data instead of plain content.
type RequestMessage struct {
	Role           string          `json:"role"`
	Content        string          `json:"content,omitempty"`
	Function       string          `json:"function,omitempty"`
	InputArguments map[string]any  `json:"input_arguments,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
	ExtraState     map[string]any  `json:"extra_state,omitempty"`
}

// WidgetSelection splits the widgets the user attached to the query into
// the explicitly selected ones and the rest of the dashboard.
type WidgetSelection struct {
	Primary   []Widget `json:"primary,omitempty"`
	Secondary []Widget `json:"secondary,omitempty"`
}

// Widget is the dashboard's description of one selected widget.
type Widget struct {
	UUID        string        `json:"uuid"`
	WidgetID    string        `json:"widget_id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Origin      string        `json:"origin,omitempty"`
	Params      []WidgetParam `json:"params,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// WidgetParam is a widget parameter with its currently selected value.
type WidgetParam struct {
	Name         string `json:"name"`
	CurrentValue any    `json:"current_value,omitempty"`
}
