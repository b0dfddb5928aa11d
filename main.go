package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	database "github.com/gestionusuarios/gestion-usuarios/app/db"
	appLogger "github.com/gestionusuarios/gestion-usuarios/app/logger"
	"github.com/gestionusuarios/gestion-usuarios/app/observability/metrics"
	"github.com/gestionusuarios/gestion-usuarios/app/tracer"
	"github.com/gestionusuarios/gestion-usuarios/config"
	"github.com/gestionusuarios/gestion-usuarios/internal/api/auth"
	"github.com/gestionusuarios/gestion-usuarios/internal/api/perfil"
	"github.com/gestionusuarios/gestion-usuarios/internal/api/usuario"
	apiRouter "github.com/gestionusuarios/gestion-usuarios/internal/router"
)

// @title           Gestión de Usuarios API
// @version         1.0
// @description     API para la gestión de usuarios y perfiles del sistema
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Use standard log until slog is configured, in case godotenv fails
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	metricsHandler := tracer.InitMetrics()
	appMetrics := metrics.InitAppMetrics()

	// --- Database ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}
	if err = database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}
	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Dependency wiring ---
	tokenService := auth.NewTokenService(cfg.JWT, logger)
	credentialStore := auth.NewPostgresCredentialStore(pool, logger)
	authService := auth.NewAuthService(credentialStore, tokenService, logger)
	authHandler := auth.NewAuthHandler(authService, appMetrics, logger)

	perfilRepo := perfil.NewPostgresPerfilRepo(pool, logger)
	perfilService := perfil.NewPerfilService(perfilRepo, logger)
	perfilHandler := perfil.NewPerfilHandler(perfilService, logger)

	usuarioRepo := usuario.NewPostgresUsuarioRepo(pool, logger)
	usuarioService := usuario.NewUsuarioService(usuarioRepo, perfilRepo, logger)
	usuarioHandler := usuario.NewUsuarioHandler(usuarioService, logger)

	mainRouter := apiRouter.SetupRouter(&apiRouter.Config{
		AuthHandler:            authHandler,
		UsuarioHandler:         usuarioHandler,
		PerfilHandler:          perfilHandler,
		AuthenticateMiddleware: auth.Authenticate(logger, tokenService, authService),
		RequireAuthMiddleware:  auth.RequireAuth(logger),
	})

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appLogger.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(cfg.Server.Timeout))
	router.Use(middleware.Compress(5, "application/json"))
	router.Mount("/", mainRouter)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	metricsSrv := tracer.MetricsServer(cfg.Handlers.Prometheus.Port, metricsHandler)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting metrics server", slog.String("address", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()

		logger.Info("Shutdown signal received, starting graceful shutdown...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
		}
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server graceful shutdown failed", slog.Any("error", err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" {
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
