package prompt

import (
	"strings"
	"testing"

	"github.com/okonst/widgetbridge/internal/model/copilot"
)

func TestFirstTurnIncludesSystemPrompt(t *testing.T) {
	b := &Builder{}
	got := b.FirstTurn(&copilot.RequestContext{UserMessage: "build a dashboard"})

	if !strings.Contains(got, "Dashboard App Builder Agent") {
		t.Fatal("expected system prompt in first turn")
	}
	if !strings.Contains(got, "### User Request\n\nbuild a dashboard") {
		t.Fatalf("expected user request section, got:\n%s", got)
	}
}

func TestContinuationOmitsSystemPrompt(t *testing.T) {
	b := &Builder{}
	got := b.Continuation(&copilot.RequestContext{UserMessage: "add a chart"})

	if strings.Contains(got, "Dashboard App Builder Agent") {
		t.Fatal("continuation must not repeat the system prompt")
	}
	if !strings.Contains(got, "add a chart") {
		t.Fatalf("expected user message, got:\n%s", got)
	}
}

func TestWorkingDirectoryAndInstructions(t *testing.T) {
	b := &Builder{
		WorkingDirectory:   "/srv/workspace",
		CustomInstructions: "Use port 6900.",
	}
	got := b.FirstTurn(&copilot.RequestContext{UserMessage: "go"})

	if !strings.Contains(got, "**Working Directory:** `/srv/workspace`") {
		t.Fatalf("expected working directory line, got:\n%s", got)
	}
	if !strings.Contains(got, "### Additional Instructions\n\nUse port 6900.") {
		t.Fatalf("expected custom instructions section, got:\n%s", got)
	}
}

func TestWidgetSection(t *testing.T) {
	ctx := &copilot.RequestContext{
		UserMessage: "use my table",
		PrimaryWidgets: []copilot.Widget{{
			WidgetID:    "stock_table",
			Name:        "Stock Table",
			Description: "Demo equity table",
			Params: []copilot.WidgetParam{
				{Name: "symbol", CurrentValue: "AAPL"},
				{Name: "limit"},
			},
		}},
	}

	got := (&Builder{}).FirstTurn(ctx)

	if !strings.Contains(got, "### Widget Context (from the dashboard)") {
		t.Fatal("expected widget section header")
	}
	if !strings.Contains(got, "**Stock Table** (`stock_table`)") {
		t.Fatalf("expected widget heading, got:\n%s", got)
	}
	if !strings.Contains(got, "- symbol: `AAPL`") {
		t.Fatalf("expected parameter line, got:\n%s", got)
	}
	if !strings.Contains(got, "- limit: `N/A`") {
		t.Fatalf("expected N/A for missing value, got:\n%s", got)
	}
}

func TestDataSectionWithTruncation(t *testing.T) {
	ctx := &copilot.RequestContext{
		UserMessage: "summarize",
		ToolResults: []copilot.ToolResult{{
			Function: "get_widget_data",
			Data:     map[string]any{"blob": strings.Repeat("z", 3000)},
		}},
	}

	got := (&Builder{}).FirstTurn(ctx)

	if !strings.Contains(got, "### Data Context (from widget data)") {
		t.Fatal("expected data section header")
	}
	if !strings.Contains(got, "**Function:** `get_widget_data`") {
		t.Fatalf("expected function line, got:\n%s", got)
	}
	if !strings.Contains(got, "... (truncated)") {
		t.Fatal("expected oversized data to be truncated")
	}
}

func TestDataSectionSkipsNilData(t *testing.T) {
	ctx := &copilot.RequestContext{
		UserMessage: "go",
		ToolResults: []copilot.ToolResult{{Function: "empty_call"}},
	}

	got := (&Builder{}).FirstTurn(ctx)

	if !strings.Contains(got, "**Function:** `empty_call`") {
		t.Fatal("expected function line even without data")
	}
	if strings.Contains(got, "```json") {
		t.Fatal("expected no code block for nil data")
	}
}

func TestEmptyContextSectionsOmitted(t *testing.T) {
	got := (&Builder{}).Continuation(&copilot.RequestContext{UserMessage: "hi"})

	if strings.Contains(got, "Widget Context") {
		t.Fatal("unexpected widget section")
	}
	if strings.Contains(got, "Data Context") {
		t.Fatal("unexpected data section")
	}
}
