package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/haliqo/haliqo-api/internal/auth"
	"github.com/haliqo/haliqo-api/internal/config"
	"github.com/haliqo/haliqo-api/internal/http/handler"
	"github.com/haliqo/haliqo-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/haliqo/haliqo-api/docs" // Import generated swagger docs
)

// Handlers groups every HTTP handler mounted by the router
type Handlers struct {
	Health         *handler.HealthHandler
	Auth           *handler.AuthHandler
	Notification   *handler.NotificationHandler
	Pricing        *handler.PricingHandler
	Registration   *handler.RegistrationHandler
	Billing        *handler.BillingHandler
	Webhook        *handler.WebhookHandler
	OTP            *handler.OTPHandler
	Email          *handler.EmailHandler
	FollowUp       *handler.FollowUpHandler
	CompanyProfile *handler.CompanyProfileHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	handlers       Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		handlers:       handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()
	h := rt.handlers

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP) // Apply IP-based rate limiting globally
	if rt.cfg.Server.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(time.Duration(rt.cfg.Server.RequestTimeout) * time.Second))
	}

	// Health checks (liveness and readiness)
	r.Get("/health", h.Health.Live)
	r.Get("/health/db", h.Health.Database)
	r.Get("/health/ready", h.Health.Ready)

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// Billing provider callbacks authenticate through their signature
	r.Post("/webhooks/stripe", h.Webhook.Stripe)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes (no auth required)
		r.Get("/pricing", h.Pricing.Get)
		r.Post("/registration/validate", h.Registration.ValidateStep)

		r.Group(func(r chi.Router) {
			r.Use(rt.rateLimiter.LimitSensitive)
			r.Post("/registration/submit", h.Registration.Submit)
			r.Post("/otp/generate", h.OTP.Generate)
			r.Post("/otp/verify", h.OTP.Verify)
		})

		// Internal callers use the API key, the web client its user token
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.rateLimiter.LimitByUser)
			r.Post("/emails/send", h.Email.Send)
		})

		// Protected routes (end users only)
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.authMiddleware.RequireUser)
			r.Use(rt.rateLimiter.LimitByUser)

			// Account
			r.Get("/auth/me", h.Auth.Me)
			r.Get("/auth/permissions", h.Auth.Permissions)
			r.Get("/notifications", h.Notification.List)

			// Registration
			r.Put("/registration/progress", h.Registration.SaveProgress)
			r.Get("/registration/status", h.Registration.Status)

			// Billing
			r.Route("/billing", func(r chi.Router) {
				r.Get("/subscription", h.Billing.GetSubscription)
				r.Post("/checkout", h.Billing.CreateCheckout)
				r.Post("/portal", h.Billing.CreatePortal)
				r.Post("/cancel", h.Billing.Cancel)
				r.Post("/reactivate", h.Billing.Reactivate)
				r.Post("/change-plan", h.Billing.ChangePlan)
				r.Post("/complete", h.Billing.Complete)
			})

			// Follow-ups
			r.Route("/follow-ups", func(r chi.Router) {
				r.Get("/invoices", h.FollowUp.ListInvoices)
				r.Get("/quotes", h.FollowUp.ListQuotes)
			})

			// Company profile
			r.Route("/company-profile", func(r chi.Router) {
				r.Get("/", h.CompanyProfile.Get)
				r.Put("/logo", h.CompanyProfile.UploadLogo)
			})
		})
	})

	return r
}
