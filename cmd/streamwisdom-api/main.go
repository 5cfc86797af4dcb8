// Package main is the entry point for the streamwisdom-api server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/streamwisdom/streamwisdom-api/internal/auth"
	"github.com/streamwisdom/streamwisdom-api/internal/config"
	"github.com/streamwisdom/streamwisdom-api/internal/contenttype"
	"github.com/streamwisdom/streamwisdom-api/internal/database"
	"github.com/streamwisdom/streamwisdom-api/internal/extractor"
	"github.com/streamwisdom/streamwisdom-api/internal/http/handlers"
	"github.com/streamwisdom/streamwisdom-api/internal/http/mw"
	"github.com/streamwisdom/streamwisdom-api/internal/llm"
	"github.com/streamwisdom/streamwisdom-api/internal/logging"
	"github.com/streamwisdom/streamwisdom-api/internal/prompt"
	"github.com/streamwisdom/streamwisdom-api/internal/repository"
	"github.com/streamwisdom/streamwisdom-api/internal/service"
	"github.com/streamwisdom/streamwisdom-api/internal/transform"
	"github.com/streamwisdom/streamwisdom-api/internal/validator"
	"github.com/streamwisdom/streamwisdom-api/internal/version"
)

func main() {
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting streamwisdom-api",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.Migrate(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repo := repository.NewSQLiteTransformationRepository(db)

	// Pipeline services
	checker := contenttype.NewChecker(cfg.ConfigDir, logger)
	prompts := prompt.NewLoader(cfg.PromptsDir, logger)
	mgr := llm.NewManager(cfg.ConfigDir, cfg.ModelTimeout, logger)
	extractSvc := extractor.NewService(extractor.Options{
		ExtractTimeout:  cfg.ExtractTimeout,
		PDFTimeout:      cfg.PDFTimeout,
		MaxPDFSize:      cfg.MaxPDFSize,
		CacheTTL:        cfg.CacheTTL,
		AllowPrivateIPs: cfg.AllowPrivateIPs,
		Logger:          logger,
	})
	contentValidator := validator.New(mgr, prompts, cfg.ConfigDir, logger)
	transformSvc := transform.NewService(checker, extractSvc, contentValidator, mgr, prompts, repo, logger)

	admin := auth.NewAdmin(cfg.AdminPassword, cfg.JWTSecret, cfg.SessionExpiry)
	cleanupSvc := service.NewCleanupService(repo, cfg.CleanupMaxAge, cfg.CleanupInterval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.CleanupEnabled {
		go cleanupSvc.Run(ctx)
	} else {
		logger.Info("history cleanup disabled")
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(mw.Timeout(mw.TimeoutConfig{
		Default:  30 * time.Second,
		Extended: 120 * time.Second,
		// Extraction plus model generation runs well past the default
		ExtendedPatterns: []string{"/transform"},
		// SSE streams have no deadline; lifetime is managed by client disconnect
		SkipPatterns: []string{"/transform-stream"},
	}))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "Cache-Control"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Use(middleware.RequestSize(1 * 1024 * 1024))
	router.Use(httprate.LimitByIP(100, time.Minute))
	router.Use(middleware.Throttle(100))

	humaConfig := huma.DefaultConfig("StreamWisdom API", v.Version)
	humaConfig.Info.Description = "Turns web articles and PDFs into spoken-style Chinese study scripts via LLM transformation."
	humaConfig.Servers = []*huma.Server{
		{URL: cfg.BaseURL, Description: "API Server"},
	}
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:        "http",
			Scheme:      "bearer",
			Description: "Admin session token from /api/admin/login.",
		},
	}
	api := humachi.New(router, humaConfig)

	// Admin routes share docs with the main API; their huma instances stay
	// hidden to avoid duplicate spec endpoints.
	hiddenConfig := huma.DefaultConfig("StreamWisdom API", v.Version)
	hiddenConfig.DocsPath = ""
	hiddenConfig.OpenAPIPath = ""
	hiddenConfig.SchemasPath = ""

	transformHandler := handlers.NewTransformHandler(transformSvc, cfg.BaseURL, logger)
	historyHandler := handlers.NewHistoryHandler(repo, logger)
	modelsHandler := handlers.NewModelsHandler(mgr)
	checkURLHandler := handlers.NewCheckURLHandler(checker)
	adminHandler := handlers.NewAdminHandler(admin, mgr, checker, cleanupSvc, repo, logger)

	// Public API
	huma.Get(api, "/api/health", handlers.HealthCheck)
	huma.Post(api, "/api/transform", transformHandler.Transform)
	huma.Get(api, "/api/models", modelsHandler.ModelStatus)
	huma.Get(api, "/api/check-url", checkURLHandler.CheckURL)
	huma.Get(api, "/api/transformations", historyHandler.ListTransformations)
	huma.Get(api, "/api/transformations/{uuid}", historyHandler.GetTransformation)
	huma.Delete(api, "/api/transformations/{uuid}", historyHandler.DeleteTransformation)

	// SSE endpoint registered raw: huma buffers response bodies
	router.Post("/api/transform-stream", transformHandler.StreamTransform)

	// Admin login and availability (public)
	huma.Post(api, "/api/admin/login", adminHandler.Login)
	huma.Get(api, "/api/admin/status", adminHandler.Status)

	// Protected admin surface
	router.Group(func(r chi.Router) {
		r.Use(mw.AdminAuth(admin))

		adminAPI := humachi.New(r, hiddenConfig)
		huma.Get(adminAPI, "/api/admin/models", adminHandler.GetModelConfig)
		huma.Put(adminAPI, "/api/admin/models", adminHandler.PutModelConfig)
		huma.Get(adminAPI, "/api/admin/content-types", adminHandler.GetContentPolicy)
		huma.Put(adminAPI, "/api/admin/content-types", adminHandler.PutContentPolicy)
		huma.Post(adminAPI, "/api/admin/cleanup", adminHandler.RunCleanup)
		huma.Get(adminAPI, "/api/admin/stats", adminHandler.CompressionStats)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.Port, "base_url", cfg.BaseURL, "admin_enabled", admin.Enabled())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
