package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haliqo/haliqo-api/docs"
	"github.com/haliqo/haliqo-api/internal/auth"
	"github.com/haliqo/haliqo-api/internal/billing"
	"github.com/haliqo/haliqo-api/internal/config"
	"github.com/haliqo/haliqo-api/internal/database"
	"github.com/haliqo/haliqo-api/internal/email"
	"github.com/haliqo/haliqo-api/internal/http/handler"
	"github.com/haliqo/haliqo-api/internal/http/middleware"
	"github.com/haliqo/haliqo-api/internal/http/router"
	"github.com/haliqo/haliqo-api/internal/identity"
	"github.com/haliqo/haliqo-api/internal/jobs"
	"github.com/haliqo/haliqo-api/internal/logger"
	"github.com/haliqo/haliqo-api/internal/repository"
	"github.com/haliqo/haliqo-api/internal/service"
	"github.com/haliqo/haliqo-api/internal/session"
	"github.com/haliqo/haliqo-api/internal/storage"
	"go.uber.org/zap"
)

// @title Haliqo API
// @version 1.0
// @description Registration, subscription billing and follow-up API for the Haliqo artisan platform
// @termsOfService https://haliqo.com/cgu

// @contact.name Haliqo Support
// @contact.email support@haliqo.com

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Supabase access token (Bearer)

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for internal callers

// jobTimeout bounds a single background job run
const jobTimeout = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	switch basicCfg.App.Environment {
	case "staging":
		docs.SwaggerInfo.Host = "api.staging.haliqo.com"
	case "production":
		docs.SwaggerInfo.Host = "api.haliqo.com"
	default:
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Registration session store
	healthChecks := map[string]handler.HealthCheck{}
	var sessions session.Store
	switch cfg.Session.Mode {
	case "redis":
		client, err := session.NewRedisClient(ctx, cfg.Session.RedisAddr, cfg.Session.RedisPassword, cfg.Session.RedisDB)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		redisStore := session.NewRedisStore(client, cfg.Session.TTLDuration())
		healthChecks["redis"] = redisStore.Ping
		sessions = redisStore
	default:
		sessions = session.NewMemoryStore(cfg.Session.TTLDuration())
	}
	log.Info("Session store initialized", zap.String("mode", cfg.Session.Mode))

	// Outbound integrations
	identityProvider := identity.NewSupabaseClient(identity.SupabaseConfig{
		URL:            cfg.Supabase.URL,
		AnonKey:        cfg.Supabase.AnonKey,
		ServiceRoleKey: cfg.Supabase.ServiceRoleKey,
		Timeout:        cfg.Supabase.TimeoutDuration(),
	}, log)
	gateway := billing.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, log)

	var sender email.Sender
	if cfg.Email.Mode == "smtp" {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:      cfg.Email.SMTPHost,
			Port:      cfg.Email.SMTPPort,
			Username:  cfg.Email.Username,
			APIKey:    cfg.Email.APIKey,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
		})
	} else {
		sender = email.NewLogSender(log)
	}
	sender = email.NewBreakerSender(sender, cfg.Email.BreakerMaxFailures, cfg.Email.BreakerTimeoutDuration(), log)
	log.Info("Email sender initialized", zap.String("mode", cfg.Email.Mode))

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	userProfileRepo := repository.NewUserProfileRepository(db)
	companyRepo := repository.NewCompanyProfileRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	paymentRepo := repository.NewPaymentRecordRepository(db)
	settingRepo := repository.NewAppSettingRepository(db)
	templateRepo := repository.NewEmailTemplateRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	followUpRepo := repository.NewFollowUpRepository(db)

	// Initialize services
	pricingService := service.NewPricingService(settingRepo, time.Duration(cfg.Pricing.CacheTTL)*time.Second, log)
	notificationService := service.NewNotificationService(
		userRepo, templateRepo, notificationRepo, pricingService, sender,
		service.NotificationSettings{AppURL: cfg.App.PublicURL, SupportEmail: cfg.App.SupportEmail},
		log,
	)
	checkoutService := service.NewCheckoutService(gateway, userRepo, subRepo, pricingService, notificationService, &cfg.Stripe, log)
	registrationService := service.NewRegistrationService(userRepo, companyRepo, pricingService, checkoutService, identityProvider, sessions, log)
	completionService := service.NewCompletionService(gateway, userRepo, userProfileRepo, companyRepo, subRepo, paymentRepo, notificationService, sessions, log)
	webhookService := service.NewBillingWebhookService(gateway, completionService, userRepo, subRepo, log)
	otpService := service.NewOTPService(otpRepo, userRepo, notificationService, identityProvider, sessions, log)
	followUpService := service.NewFollowUpService(followUpRepo, log)
	companyProfileService := service.NewCompanyProfileService(companyRepo, fileStorage, log)
	trialReminderService := service.NewTrialReminderService(subRepo, notificationService, log)
	accountService := service.NewAccountService(userRepo, userProfileRepo, notificationRepo, log)

	// Initialize middleware
	authMiddleware := auth.NewMiddleware(cfg.Supabase.JWTSecret, cfg.ApiKey.Value, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	handlers := router.Handlers{
		Health:         handler.NewHealthHandler(db, healthChecks, log),
		Auth:           handler.NewAuthHandler(accountService, log),
		Notification:   handler.NewNotificationHandler(accountService, log),
		Pricing:        handler.NewPricingHandler(pricingService, log),
		Registration:   handler.NewRegistrationHandler(registrationService, log),
		Billing:        handler.NewBillingHandler(checkoutService, completionService, log),
		Webhook:        handler.NewWebhookHandler(webhookService, log),
		OTP:            handler.NewOTPHandler(otpService, log),
		Email:          handler.NewEmailHandler(notificationService, log),
		FollowUp:       handler.NewFollowUpHandler(followUpService, log),
		CompanyProfile: handler.NewCompanyProfileHandler(companyProfileService, cfg.Storage.MaxUploadSizeMB, log),
	}

	rt := router.NewRouter(cfg, log, authMiddleware, rateLimiter, handlers)

	// Initialize and start scheduler for background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterTrialReminderJob(
			scheduler,
			trialReminderService,
			cfg.Jobs.TrialReminderDays,
			log,
			cfg.Jobs.TrialReminderSchedule,
			jobTimeout,
		); err != nil {
			return fmt.Errorf("failed to register trial reminder job: %w", err)
		}
		if err := jobs.RegisterOTPCleanupJob(scheduler, otpService, log, cfg.Jobs.OTPCleanupSchedule, jobTimeout); err != nil {
			return fmt.Errorf("failed to register otp cleanup job: %w", err)
		}
		scheduler.Start()
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
