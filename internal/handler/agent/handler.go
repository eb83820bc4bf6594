// Package agent exposes the copilot-facing endpoints: discovery, health,
// the SSE query stream and the session/process admin calls.
package agent

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okonst/widgetbridge/internal/config"
	"github.com/okonst/widgetbridge/internal/model/copilot"
	"github.com/okonst/widgetbridge/internal/service/prompt"
	"github.com/okonst/widgetbridge/internal/service/relay"
	"github.com/okonst/widgetbridge/internal/service/request"
	"github.com/okonst/widgetbridge/internal/service/session"
	"github.com/okonst/widgetbridge/pkg/utils"
)

// Handler wires the copilot endpoints to the session manager and the
// subprocess relay.
type Handler struct {
	cfg      config.AgentConfig
	sessions *session.Manager
	guard    *session.Guard
	runner   *relay.Runner
}

// New creates the agent handler.
func New(cfg config.AgentConfig, sessions *session.Manager, guard *session.Guard, runner *relay.Runner) *Handler {
	return &Handler{cfg: cfg, sessions: sessions, guard: guard, runner: runner}
}

// RegisterRoutes mounts the agent endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/agents.json", h.handleAgentsJSON)
	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/query", h.handleQuery)
		v1.Post("/terminate", h.handleTerminate)
		v1.Post("/clear-sessions", h.handleClearSessions)
		v1.Get("/sessions", h.handleListSessions)
	})
}

// handleHealth reports dependency status: healthy when both the CLI and
// the target repo are available, degraded with only the CLI, unhealthy
// otherwise.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	cliOK, cliMsg := relay.CheckInstalled(h.cfg.Binary)
	repoOK, repoMsg := h.cfg.CheckTargetRepo()

	status := "unhealthy"
	switch {
	case cliOK && repoOK:
		status = "healthy"
	case cliOK:
		status = "degraded"
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"service": "widgetbridge",
		"dependencies": map[string]any{
			"agent_cli":   map[string]any{"available": cliOK, "message": cliMsg},
			"target_repo": map[string]any{"available": repoOK, "message": repoMsg},
		},
	})
}

// handleAgentsJSON advertises the agent to the dashboard copilot.
func (h *Handler) handleAgentsJSON(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"widgetbridge": map[string]any{
			"name": "Widget Bridge Agent",
			"description": "Build custom dashboard backend apps using the local CLI agent " +
				"and workspace skills. Supports widget context for data-driven app generation.",
			"image":     "",
			"endpoints": map[string]string{"query": "/v1/query"},
			"features": map[string]bool{
				"streaming":               true,
				"widget-dashboard-select": true,
				"widget-dashboard-search": true,
			},
		},
	})
}

// handleQuery streams the agent's answer as SSE events.
func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	var payload copilot.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	utils.SetupSSEHeaders(w)
	send := func(ev copilot.Event) {
		utils.SendSSEChunk(w, flusher, ev)
	}

	// CLI missing is a terminal condition for the whole stream.
	if cliOK, cliMsg := relay.CheckInstalled(h.cfg.Binary); !cliOK {
		send(copilot.ReasoningStep(copilot.StatusError, "Agent CLI not installed",
			map[string]any{"error": cliMsg}))
		send(copilot.MessageChunk("The agent CLI is not installed. Install it and try again."))
		return
	}

	reqCtx := request.Parse(&payload)

	if !reqCtx.ShouldExecute {
		send(copilot.MessageChunk("Waiting for user input..."))
		return
	}
	if reqCtx.UserMessage == "" {
		send(copilot.MessageChunk("No message provided."))
		return
	}

	sess := h.sessions.GetOrCreate(request.ConversationKey(&payload))

	if _, err := h.sessions.PersistContext(sess, reqCtx); err != nil {
		log.Printf("[agent] failed to persist context for session=%s: %v", sess.ID, err)
	}

	log.Printf("[agent] query session=%s continued=%v widgets=%d tool_results=%d",
		sess.ID, sess.Continued, len(reqCtx.PrimaryWidgets), len(reqCtx.ToolResults))

	send(copilot.ReasoningStep(copilot.StatusInfo, "Session started", map[string]any{
		"session_id":   sess.ID,
		"is_continued": sess.Continued,
	}))

	if reqCtx.HasWidgetContext() {
		names := make([]string, 0, len(reqCtx.PrimaryWidgets))
		for _, wdg := range reqCtx.PrimaryWidgets {
			names = append(names, wdg.Name)
		}
		send(copilot.ReasoningStep(copilot.StatusInfo,
			fmt.Sprintf("Widget context: %s", strings.Join(names, ", ")),
			map[string]any{"widget_count": len(reqCtx.PrimaryWidgets)}))
	}

	if reqCtx.HasToolResults() {
		functions := make([]string, 0, len(reqCtx.ToolResults))
		for _, tr := range reqCtx.ToolResults {
			functions = append(functions, tr.Function)
		}
		send(copilot.ReasoningStep(copilot.StatusInfo,
			fmt.Sprintf("Tool results available: %d", len(reqCtx.ToolResults)),
			map[string]any{"functions": functions}))
	}

	workingDir, repoConfigured := h.cfg.ResolvedTargetRepo()
	if !repoConfigured {
		_, repoMsg := h.cfg.CheckTargetRepo()
		send(copilot.ReasoningStep(copilot.StatusWarning, "Target repo not configured",
			map[string]any{"info": repoMsg}))
		send(copilot.MessageChunk("**Note:** Target workspace repo is not configured. " +
			"The agent will run in the current directory. " +
			"Set `AGENT_TARGET_REPO` for full app building.\n\n"))
	}

	builder := &prompt.Builder{WorkingDirectory: workingDir}
	var text string
	if sess.Continued {
		text = builder.Continuation(reqCtx)
	} else {
		text = builder.FirstTurn(reqCtx)
	}

	for ev := range h.runner.Run(r.Context(), text, sess) {
		send(ev)
	}
}

// handleTerminate kills the currently running agent process, if any.
// Safe to call when nothing is running.
func (h *Handler) handleTerminate(w http.ResponseWriter, r *http.Request) {
	terminated := h.guard.Terminate()

	message := "No process running"
	if terminated {
		message = "Process terminated"
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"terminated": terminated,
		"message":    message,
	})
}

// handleClearSessions drops all session tracking data.
func (h *Handler) handleClearSessions(w http.ResponseWriter, r *http.Request) {
	count := h.sessions.ClearAll()
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"cleared": count,
		"message": fmt.Sprintf("Cleared %d sessions", count),
	})
}

// handleListSessions lists tracked sessions for debugging.
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessions.List()
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}
