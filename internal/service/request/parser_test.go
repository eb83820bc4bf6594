package request

import (
	"encoding/json"
	"testing"

	"github.com/okonst/widgetbridge/internal/model/copilot"
)

func TestParseSingleHumanMessage(t *testing.T) {
	req := &copilot.QueryRequest{Messages: []copilot.RequestMessage{
		{Role: copilot.RoleHuman, Content: "build a crypto dashboard"},
	}}

	ctx := Parse(req)

	if ctx.UserMessage != "build a crypto dashboard" {
		t.Fatalf("unexpected user message: %q", ctx.UserMessage)
	}
	if !ctx.ShouldExecute {
		t.Fatal("expected ShouldExecute for trailing human message")
	}
	if len(ctx.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(ctx.History))
	}
}

func TestParseLastMessageNotHuman(t *testing.T) {
	req := &copilot.QueryRequest{Messages: []copilot.RequestMessage{
		{Role: copilot.RoleHuman, Content: "show me AAPL"},
		{Role: copilot.RoleAI, Content: "Here is the data."},
	}}

	ctx := Parse(req)

	if ctx.ShouldExecute {
		t.Fatal("expected ShouldExecute false when AI spoke last")
	}
	if ctx.UserMessage != "show me AAPL" {
		t.Fatalf("unexpected user message: %q", ctx.UserMessage)
	}
}

func TestParseEmptyRequest(t *testing.T) {
	ctx := Parse(&copilot.QueryRequest{})

	if ctx.ShouldExecute {
		t.Fatal("expected ShouldExecute false for empty request")
	}
	if ctx.UserMessage != "" {
		t.Fatalf("unexpected user message: %q", ctx.UserMessage)
	}
	if ctx.PrimaryWidgets == nil || ctx.ToolResults == nil {
		t.Fatal("expected non-nil slices")
	}
}

func TestParseLatestHumanMessageWins(t *testing.T) {
	req := &copilot.QueryRequest{Messages: []copilot.RequestMessage{
		{Role: copilot.RoleHuman, Content: "first"},
		{Role: copilot.RoleAI, Content: "reply"},
		{Role: copilot.RoleHuman, Content: "second"},
	}}

	ctx := Parse(req)

	if ctx.UserMessage != "second" {
		t.Fatalf("expected latest human message, got %q", ctx.UserMessage)
	}
	if len(ctx.History) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(ctx.History))
	}
}

func TestParseToolResultJSONData(t *testing.T) {
	req := &copilot.QueryRequest{Messages: []copilot.RequestMessage{
		{Role: copilot.RoleTool, Function: "get_widget_data",
			Data: json.RawMessage(`{"rows":[1,2]}`)},
		{Role: copilot.RoleHuman, Content: "use that data"},
	}}

	ctx := Parse(req)

	if len(ctx.ToolResults) != 1 {
		t.Fatalf("expected 1 tool result, got %d", len(ctx.ToolResults))
	}
	tr := ctx.ToolResults[0]
	if tr.Function != "get_widget_data" {
		t.Fatalf("unexpected function: %q", tr.Function)
	}
	decoded, ok := tr.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected decoded map, got %T", tr.Data)
	}
	if _, ok := decoded["rows"]; !ok {
		t.Fatal("expected rows key in decoded data")
	}
}

func TestParseToolResultStringWrappedJSON(t *testing.T) {
	req := &copilot.QueryRequest{Messages: []copilot.RequestMessage{
		{Role: copilot.RoleTool, Function: "get_widget_data",
			Data: json.RawMessage(`"{\"price\": 150}"`)},
	}}

	ctx := Parse(req)

	decoded, ok := ctx.ToolResults[0].Data.(map[string]any)
	if !ok {
		t.Fatalf("expected unwrapped map, got %T", ctx.ToolResults[0].Data)
	}
	if decoded["price"] != 150.0 {
		t.Fatalf("unexpected price: %v", decoded["price"])
	}
}

func TestParseToolResultPlainText(t *testing.T) {
	req := &copilot.QueryRequest{Messages: []copilot.RequestMessage{
		{Role: copilot.RoleTool, Data: json.RawMessage(`not json at all`)},
	}}

	ctx := Parse(req)

	tr := ctx.ToolResults[0]
	if tr.Function != "unknown" {
		t.Fatalf("expected unknown function, got %q", tr.Function)
	}
	if tr.Data != "not json at all" {
		t.Fatalf("expected raw text data, got %v", tr.Data)
	}
}

func TestParseWidgetSelection(t *testing.T) {
	req := &copilot.QueryRequest{
		Messages: []copilot.RequestMessage{{Role: copilot.RoleHuman, Content: "hi"}},
		Widgets: &copilot.WidgetSelection{
			Primary:   []copilot.Widget{{WidgetID: "stock_table", Name: "Stock Table"}},
			Secondary: []copilot.Widget{{WidgetID: "price_chart"}},
		},
	}

	ctx := Parse(req)

	if len(ctx.PrimaryWidgets) != 1 || ctx.PrimaryWidgets[0].WidgetID != "stock_table" {
		t.Fatalf("unexpected primary widgets: %v", ctx.PrimaryWidgets)
	}
	if len(ctx.SecondaryWidgets) != 1 {
		t.Fatalf("unexpected secondary widgets: %v", ctx.SecondaryWidgets)
	}
	if !ctx.HasWidgetContext() {
		t.Fatal("expected HasWidgetContext")
	}
}

func TestConversationKeyStable(t *testing.T) {
	req := &copilot.QueryRequest{Messages: []copilot.RequestMessage{
		{Role: copilot.RoleHuman, Content: "build an app"},
	}}

	first := ConversationKey(req)
	second := ConversationKey(req)

	if first == "" {
		t.Fatal("expected non-empty key")
	}
	if len(first) != 16 {
		t.Fatalf("expected 16-char key, got %q", first)
	}
	if first != second {
		t.Fatalf("key not stable: %q vs %q", first, second)
	}
}

func TestConversationKeyDistinct(t *testing.T) {
	a := ConversationKey(&copilot.QueryRequest{Messages: []copilot.RequestMessage{
		{Role: copilot.RoleHuman, Content: "build an app"},
	}})
	b := ConversationKey(&copilot.QueryRequest{Messages: []copilot.RequestMessage{
		{Role: copilot.RoleHuman, Content: "build another app"},
	}})

	if a == b {
		t.Fatalf("expected distinct keys, both %q", a)
	}
}

func TestConversationKeyEmpty(t *testing.T) {
	if key := ConversationKey(&copilot.QueryRequest{}); key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
	if key := ConversationKey(&copilot.QueryRequest{Messages: []copilot.RequestMessage{
		{Role: copilot.RoleHuman},
	}}); key != "" {
		t.Fatalf("expected empty key for contentless message, got %q", key)
	}
}

func TestConversationKeyFallsBackToData(t *testing.T) {
	req := &copilot.QueryRequest{Messages: []copilot.RequestMessage{
		{Role: copilot.RoleTool, Data: json.RawMessage(`{"x":1}`)},
	}}

	if key := ConversationKey(req); key == "" {
		t.Fatal("expected key derived from data payload")
	}
}
