package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/piskoqo/backend/internal/config"
	"github.com/piskoqo/backend/internal/handler/chat"
	middlewarePkg "github.com/piskoqo/backend/internal/middleware"
	"github.com/piskoqo/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. metrics may be nil.
func NewRouter(cfg config.ServerConfig, chatSvc chat.Service, metrics http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.AllowedOrigin))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	chatHandler := chat.New(chatSvc)
	wsHandler := chat.NewWebSocketHandler(chatSvc, cfg.AllowedOrigin)

	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimitRPS > 0 {
			api.Use(middlewarePkg.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware)
		}

		chatHandler.RegisterRoutes(api)
		wsHandler.RegisterWebSocketRoutes(api)
	})

	return r
}
