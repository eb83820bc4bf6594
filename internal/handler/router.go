package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okonst/widgetbridge/internal/config"
	"github.com/okonst/widgetbridge/internal/handler/agent"
	"github.com/okonst/widgetbridge/internal/handler/livegrid"
	"github.com/okonst/widgetbridge/internal/handler/widgets"
	middlewarePkg "github.com/okonst/widgetbridge/internal/middleware"
	"github.com/okonst/widgetbridge/internal/model/widget"
	"github.com/okonst/widgetbridge/internal/service/market"
	"github.com/okonst/widgetbridge/internal/service/relay"
	"github.com/okonst/widgetbridge/internal/service/session"
	"github.com/okonst/widgetbridge/pkg/utils"
)

// Deps bundles the services the router exposes over HTTP.
type Deps struct {
	Config   *config.Config
	Sessions *session.Manager
	Guard    *session.Guard
	Runner   *relay.Runner
	Registry *widget.Registry
	Apps     *widget.AppsFile
	Feed     *market.Feed
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.Config.Server.AllowedOrigins))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"service": "widgetbridge",
			"info":    "dashboard widget backend with a CLI copilot bridge",
		})
	})

	agentHandler := agent.New(deps.Config.Agent, deps.Sessions, deps.Guard, deps.Runner)
	agentHandler.RegisterRoutes(r)

	widgetsHandler := widgets.New(deps.Registry, deps.Apps)
	widgetsHandler.RegisterRoutes(r)

	gridHandler := livegrid.New(deps.Feed, deps.Config.Grid.TickInterval)
	gridHandler.RegisterRoutes(r)

	return r
}
