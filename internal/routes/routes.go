package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/launchboxhq/launchbox/internal/auth"
	"github.com/launchboxhq/launchbox/internal/handlers"
	"github.com/launchboxhq/launchbox/internal/middleware"
	"github.com/launchboxhq/launchbox/internal/repositories"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	tokenHandler *handlers.TokenHandler,
	codeHandler *handlers.CodeHandler,
	signer *auth.TokenSigner,
	tokenRepo repositories.BearerTokenRepository,
	adminKeyHash string,
	logger *slog.Logger,
) {
	// Rate limiting config for credential endpoints
	rateLimitConfig := middleware.DefaultCredentialRateLimit()

	// Public routes
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/v1/codes", codeHandler.Request)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/v1/codes/validate", codeHandler.Validate)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Get("/v1/codes/confirm", codeHandler.Confirm)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Get("/v1/tokens/verify", tokenHandler.Verify)

	// Bearer-authenticated routes
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireBearerToken(signer, tokenRepo, logger))

		r.Get("/v1/tokens/whoami", tokenHandler.WhoAmI)
	})

	// Admin-only routes
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminKey(adminKeyHash, logger))

		r.Post("/v1/tokens", tokenHandler.Issue)
		r.Delete("/v1/tokens/{shortID}", tokenHandler.Revoke)
		r.Delete("/v1/tokens/owners/{kind}/{id}", tokenHandler.RevokeAll)
		r.Post("/v1/tokens/cleanup", tokenHandler.Cleanup)
		r.Post("/v1/codes/cleanup", codeHandler.Cleanup)
	})
}
