package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "hooklink/internal/api/context"
	"hooklink/internal/api/handlers"
	"hooklink/internal/api/middleware"
	"hooklink/internal/pkg/metrics"
)

type Dependencies struct {
	DefinitionHandler *handlers.DefinitionHandler
	LinkHandler       *handlers.LinkHandler
	SecretHandler     *handlers.SecretHandler
	EventHandler      *handlers.EventHandler
	HealthHandler     *handlers.HealthHandler
	AuthMiddleware    *middleware.AuthMiddleware
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	// Public inbound entry point: untrusted third-party callbacks.
	router.POST("/hooks/:provider_id/:event_id",
		chain(deps.EventHandler.Handle, middleware.RateLimit("inbound")))

	authMid := deps.AuthMiddleware

	// Definition management
	router.POST("/api/v1/definitions",
		chain(deps.DefinitionHandler.Create, authMid.Handle, middleware.RateLimit("api_write")))
	router.GET("/api/v1/definitions",
		chain(deps.DefinitionHandler.List, authMid.Handle, middleware.RateLimit("api_read")))
	// Static "search" would clash with the :definition_id wildcard, so fuzzy
	// search lives under /search.
	router.GET("/api/v1/search/definitions",
		chain(deps.DefinitionHandler.Search, authMid.Handle, middleware.RateLimit("api_read")))
	router.GET("/api/v1/definitions/:definition_id",
		chain(deps.DefinitionHandler.Get, authMid.Handle, middleware.RateLimit("api_read")))
	router.DELETE("/api/v1/definitions/:definition_id",
		chain(deps.DefinitionHandler.Delete, authMid.Handle, middleware.RateLimit("api_write")))

	// User links and activation
	router.POST("/api/v1/definitions/:definition_id/links",
		chain(deps.LinkHandler.AttachUser, authMid.Handle, middleware.RateLimit("api_write")))
	router.POST("/api/v1/definitions/:definition_id/links/evaluate",
		chain(deps.LinkHandler.Evaluate, authMid.Handle, middleware.RateLimit("api_write")))

	// Agent links
	router.POST("/api/v1/definitions/:definition_id/agents",
		chain(deps.LinkHandler.AttachAgent, authMid.Handle, middleware.RateLimit("api_write")))

	// Provider secrets and confirmations
	router.PUT("/api/v1/secrets",
		chain(deps.SecretHandler.Put, authMid.Handle, middleware.RateLimit("api_write")))

	// Inbound audit log
	router.GET("/api/v1/events",
		chain(deps.EventHandler.List, authMid.Handle, middleware.RateLimit("api_read")))

	// Operational endpoints
	router.GET("/healthz", wrap(deps.HealthHandler.Check))
	router.Handler(http.MethodGet, "/metrics", metrics.Handler())

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
