package copilot

// Outbound SSE event names understood by the dashboard copilot.
const (
	EventMessageChunk = "copilotMessageChunk"
	EventStatusUpdate = "copilotStatusUpdate"
)

// Status severities for reasoning-step events.
const (
	StatusInfo    = "INFO"
	StatusWarning = "WARNING"
	StatusError   = "ERROR"
)

// Event is one outbound chat-protocol event. Every event is either a
// free-text chunk or a structured status message.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ChunkData is the payload of a chunk event.
type ChunkData struct {
	Delta string `json:"delta"`
}

// StatusData is the payload of a status event.
type StatusData struct {
	EventType string         `json:"eventType"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// MessageChunk wraps free text as a chunk event.
func MessageChunk(text string) Event {
	return Event{Event: EventMessageChunk, Data: ChunkData{Delta: text}}
}

// ReasoningStep wraps a structured status message. kind is one of the
// Status* severities.
func ReasoningStep(kind, message string, details map[string]any) Event {
	return Event{
		Event: EventStatusUpdate,
		Data:  StatusData{EventType: kind, Message: message, Details: details},
	}
}
