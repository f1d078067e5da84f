package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"hooklink/internal/api"
	"hooklink/internal/api/handlers"
	"hooklink/internal/api/middleware"
	"hooklink/internal/engine/activation"
	"hooklink/internal/engine/definitions"
	"hooklink/internal/engine/dispatch"
	"hooklink/internal/engine/identity"
	"hooklink/internal/engine/resolution"
	"hooklink/internal/engine/search"
	"hooklink/internal/platform/auth"
	"hooklink/internal/platform/config"
	"hooklink/internal/platform/database"
	"hooklink/internal/platform/repositories"
	"hooklink/internal/platform/secrets"
	"hooklink/internal/pkg/logger"
	"hooklink/internal/workers"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)
	middleware.Configure(cfg.RateLimit)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Secret store
	encryptor, err := secrets.NewEncryptor(cfg.Secrets.MasterKey)
	if err != nil {
		log.Fatalf("Failed to init secret encryption: %v", err)
	}
	secretStore := secrets.NewSQLiteStore(db, encryptor)

	// Process-wide hashing key: loaded from the secret store, generated on
	// first boot. The server must not serve resolution without it.
	hashKey, err := identity.ProvisionKey(context.Background(), secretStore)
	if err != nil {
		log.Fatalf("Failed to provision hashing key: %v", err)
	}
	hasher, err := identity.NewHasher(hashKey)
	if err != nil {
		log.Fatalf("Failed to construct hasher: %v", err)
	}

	// Repositories
	definitionRepo := repositories.NewDefinitionRepository(db)
	userLinkRepo := repositories.NewUserLinkRepository(db)
	agentLinkRepo := repositories.NewAgentLinkRepository(db)
	eventRepo := repositories.NewEventRepository(db)

	// Engines
	matcher := definitions.NewMatcher(definitionRepo)
	machine := activation.NewMachine(userLinkRepo, secretStore, matcher, hasher, cfg.Domains.PublicBaseURL)
	resolver := resolution.NewResolver(matcher, userLinkRepo, agentLinkRepo, hasher)

	dispatcher := dispatch.NewDispatcher(cfg.Dispatch)
	dispatcher.Start()
	defer dispatcher.Stop()

	retention := workers.NewRetentionWorker(eventRepo, cfg.Retention.EventMaxAge, cfg.Retention.PruneInterval)
	retention.Start()
	defer retention.Stop()

	searchSvc := search.NewService(&search.HashEmbedder{}, search.NewMemoryIndex())
	if defs, err := definitionRepo.List(200, 0); err == nil {
		for _, def := range defs {
			searchSvc.IndexDefinition(context.Background(), def)
		}
	}

	// Services
	tokenSvc := auth.NewTokenService(cfg.JWT)

	// Handlers
	definitionHandler := handlers.NewDefinitionHandler(definitionRepo, matcher, searchSvc)
	linkHandler := handlers.NewLinkHandler(definitionRepo, userLinkRepo, agentLinkRepo, machine)
	secretHandler := handlers.NewSecretHandler(secretStore)
	eventHandler := handlers.NewEventHandler(resolver, eventRepo, dispatcher)
	healthHandler := handlers.NewHealthHandler(db)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenSvc)

	// Router
	deps := &api.Dependencies{
		DefinitionHandler: definitionHandler,
		LinkHandler:       linkHandler,
		SecretHandler:     secretHandler,
		EventHandler:      eventHandler,
		HealthHandler:     healthHandler,
		AuthMiddleware:    authMiddleware,
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Printf("Server starting on %s", addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
