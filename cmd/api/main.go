package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/launchboxhq/launchbox/internal/auth"
	"github.com/launchboxhq/launchbox/internal/background"
	"github.com/launchboxhq/launchbox/internal/config"
	"github.com/launchboxhq/launchbox/internal/database"
	"github.com/launchboxhq/launchbox/internal/handlers"
	middlewareCustom "github.com/launchboxhq/launchbox/internal/middleware"
	"github.com/launchboxhq/launchbox/internal/repositories"
	"github.com/launchboxhq/launchbox/internal/routes"
	"github.com/launchboxhq/launchbox/internal/services"
	pkghttp "github.com/launchboxhq/launchbox/pkg/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	tokenRepo := repositories.NewBearerTokenRepository(db)
	codeRepo := repositories.NewOneTimeCodeRepository(db)

	// Initialize credential primitives
	signer := auth.NewTokenSigner(cfg.Auth.SigningSecret, cfg.Auth.ClockSkewLeeway)
	otpManager := auth.NewOTPManager(cfg.Auth.ClockSkewLeeway)

	// AWS SES code delivery, optional
	var emailSender services.EmailSender
	if cfg.Email.Enabled {
		sesSender, err := services.NewAWSSESEmailSender(
			cfg.Email.Region,
			cfg.Email.FromAddress,
			cfg.Email.BaseURL,
			logger,
		)
		if err != nil {
			logger.Error("failed to initialize email sender", slog.Any("error", err))
			os.Exit(1)
		}
		emailSender = sesSender
	} else {
		logger.Info("email delivery disabled, codes will not be sent")
	}

	// Initialize services
	tokenService := services.NewTokenService(tokenRepo, signer, cfg.Auth.BearerTokenTTL, logger)
	codeService := services.NewCodeService(codeRepo, otpManager, emailSender, cfg.Auth.OTPTTL, logger)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(tokenService, codeService, logger, cfg.Auth.CleanupInterval)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	tokenHandler := handlers.NewTokenHandler(tokenService, logger)
	codeHandler := handlers.NewCodeHandler(codeService, ipConfig, logger)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, tokenHandler, codeHandler, signer, tokenRepo, cfg.Auth.AdminKeyHash, logger)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		cleanupManager.Start(gCtx)
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutdown signal received")

		cleanupManager.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
