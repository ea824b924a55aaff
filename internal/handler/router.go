package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	agentHandler "github.com/driveai/console/backend/internal/handler/agent"
	middlewarePkg "github.com/driveai/console/backend/internal/middleware"
	agentService "github.com/driveai/console/backend/internal/service/agent"
	"github.com/driveai/console/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the gateway services.
func NewRouter(client *agentService.Client) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	proxy := agentHandler.New(client)

	r.Route("/api", func(api chi.Router) {
		proxy.RegisterRoutes(api)

		api.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}
