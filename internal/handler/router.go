package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zlau-dev/h2ogpt-bridge/internal/entry"
	"github.com/zlau-dev/h2ogpt-bridge/internal/handler/configflow"
	"github.com/zlau-dev/h2ogpt-bridge/internal/handler/conversation"
	"github.com/zlau-dev/h2ogpt-bridge/internal/lifecycle"
	middlewarePkg "github.com/zlau-dev/h2ogpt-bridge/internal/middleware"
	"github.com/zlau-dev/h2ogpt-bridge/pkg/httpapi"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(entries entry.Store, manager *lifecycle.Manager) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	flowHandler := configflow.New(entries, manager)
	conversationHandler := conversation.New(manager)
	wsHandler := conversation.NewWebSocketHandler(conversationHandler)

	r.Route("/api", func(api chi.Router) {
		flowHandler.RegisterRoutes(api)
		conversationHandler.RegisterRoutes(api)
		wsHandler.RegisterWebSocketRoutes(api)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := entries.Ping(r.Context()); err != nil {
			httpapi.RespondError(w, http.StatusServiceUnavailable, "entry store unavailable")
			return
		}
		httpapi.RespondJSON(w, http.StatusOK, map[string]any{
			"status":        "ok",
			"active_agents": manager.ActiveCount(),
		})
	})

	return r
}
