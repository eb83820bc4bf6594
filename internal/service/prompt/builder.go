// Package prompt assembles the text prompt handed to the CLI agent from
// the normalized request context.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/okonst/widgetbridge/internal/model/copilot"
)

const (
	// maxToolDataChars caps embedded widget data so a large table cannot
	// blow up the command line.
	maxToolDataChars = 2000
)

// systemPrompt is the first-turn instruction block. It scopes the agent to
// building dashboard backend apps against the reference patterns checked
// into the target repo.
const systemPrompt = `## Dashboard App Builder Agent

You are an expert at building dashboard backend applications. Your task is
to create production-ready backend apps that integrate with the dashboard
workspace.

### Key Guidelines

1. Follow the reference-backend patterns in the target repo for project
   structure, CORS setup, widget endpoint patterns and the apps.json /
   widgets.json schemas.
2. Use the local .claude skill if available for detailed guidance on app
   structure.
3. Schema requirements: apps.json must be an array of app objects;
   widgets.json must be an object keyed by widget id.
4. Create apps under apps/<app-name>_YYYYMMDD_HHMM/ and include the backend
   entrypoint, widgets.json, apps.json, dependency manifest and a
   CONVERSATION.md build log.
5. If validation or startup fails, fix the errors and re-run before
   reporting back. Only report to the user once everything works.

### Response Format

Briefly acknowledge the requirements, create the app files, validate, then
summarize what was built and where it lives.`

// Builder renders prompts for CLI agent invocations.
type Builder struct {
	// WorkingDirectory, when set, is surfaced to the agent so generated
	// paths land in the right workspace.
	WorkingDirectory string

	// CustomInstructions are appended after the system block when present.
	CustomInstructions string
}

// FirstTurn builds the full prompt for a new session, including the
// system instructions.
func (b *Builder) FirstTurn(ctx *copilot.RequestContext) string {
	return b.build(ctx, true)
}

// Continuation builds the prompt for a continued session: just the new
// user message plus any new context, the CLI replays its own history.
func (b *Builder) Continuation(ctx *copilot.RequestContext) string {
	return b.build(ctx, false)
}

func (b *Builder) build(ctx *copilot.RequestContext, includeSystem bool) string {
	var parts []string

	if includeSystem {
		parts = append(parts, systemPrompt)
	}

	if b.WorkingDirectory != "" {
		parts = append(parts, fmt.Sprintf("**Working Directory:** `%s`\n", b.WorkingDirectory))
	}

	if b.CustomInstructions != "" {
		parts = append(parts, fmt.Sprintf("### Additional Instructions\n\n%s\n", b.CustomInstructions))
	}

	if len(ctx.PrimaryWidgets) > 0 {
		parts = append(parts, widgetSection(ctx.PrimaryWidgets))
	}

	if len(ctx.ToolResults) > 0 {
		parts = append(parts, dataSection(ctx.ToolResults))
	}

	parts = append(parts, "### User Request\n", ctx.UserMessage)

	return strings.Join(parts, "\n")
}

func widgetSection(widgets []copilot.Widget) string {
	var sb strings.Builder
	sb.WriteString("### Widget Context (from the dashboard)\n\n")
	sb.WriteString("The user has selected the following widgets for context:\n")

	for _, w := range widgets {
		fmt.Fprintf(&sb, "\n**%s** (`%s`)", w.Name, w.WidgetID)
		if w.Description != "" {
			sb.WriteString("\n" + w.Description)
		}
		if len(w.Params) > 0 {
			sb.WriteString("\nParameters:")
			for _, p := range w.Params {
				value := p.CurrentValue
				if value == nil {
					value = "N/A"
				}
				fmt.Fprintf(&sb, "\n- %s: `%v`", p.Name, value)
			}
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

func dataSection(results []copilot.ToolResult) string {
	var sb strings.Builder
	sb.WriteString("### Data Context (from widget data)\n\n")
	sb.WriteString("The following data was retrieved from the selected widgets:\n")

	for _, r := range results {
		fmt.Fprintf(&sb, "\n**Function:** `%s`", r.Function)
		if r.Data == nil {
			continue
		}

		data, err := json.MarshalIndent(r.Data, "", "  ")
		if err != nil {
			continue
		}
		text := string(data)
		if len(text) > maxToolDataChars {
			text = text[:maxToolDataChars] + "\n... (truncated)"
		}
		fmt.Fprintf(&sb, "\n```json\n%s\n```", text)
	}

	sb.WriteString("\n")
	return sb.String()
}
