package copilot

// RequestContext is the normalized view of a QueryRequest that the rest of
// the service works with, independent of payload variations.
type RequestContext struct {
	// Latest human message content.
	UserMessage string `json:"user_message"`

	// Conversation history in arrival order.
	History []HistoryEntry `json:"history"`

	// Widgets the user explicitly selected.
	PrimaryWidgets []Widget `json:"primary_widgets"`

	// Additional dashboard widgets supplied for context.
	SecondaryWidgets []Widget `json:"secondary_widgets"`

	// Data retrieved from widgets in prior turns.
	ToolResults []ToolResult `json:"tool_results"`

	// Whether the last message is from a human, i.e. whether the agent
	// should run at all.
	ShouldExecute bool `json:"should_execute"`
}

// HistoryEntry is one prior conversation turn kept for the debug dump.
type HistoryEntry struct {
	Role     string `json:"role"`
	Content  string `json:"content,omitempty"`
	Function string `json:"function,omitempty"`
}

// ToolResult is normalized widget data from a tool turn. Data holds the
// decoded value when the payload was valid JSON, Raw always preserves the
// original text.
type ToolResult struct {
	Function       string         `json:"function"`
	InputArguments map[string]any `json:"input_arguments"`
	Data           any            `json:"data,omitempty"`
	Raw            string         `json:"-"`
	ExtraState     map[string]any `json:"extra_state,omitempty"`
}

// HasWidgetContext reports whether any widget metadata is attached.
func (c *RequestContext) HasWidgetContext() bool {
	return len(c.PrimaryWidgets) > 0 || len(c.SecondaryWidgets) > 0
}

// HasToolResults reports whether any widget data is attached.
func (c *RequestContext) HasToolResults() bool {
	return len(c.ToolResults) > 0
}
