package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/haliqo/haliqo-api/internal/secrets"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Supabase  SupabaseConfig
	Stripe    StripeConfig
	Email     EmailConfig
	Session   SessionConfig
	ApiKey    ApiKeyConfig
	Storage   StorageConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
	Pricing   PricingConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
	// PublicURL is the browser-facing URL of the web app, used in emails and redirects
	PublicURL    string
	SupportEmail string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// SupabaseConfig holds the identity provider settings
type SupabaseConfig struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
	// JWTSecret verifies access tokens issued to signed-in users (HS256)
	JWTSecret string
	// Timeout is the HTTP timeout for admin calls (seconds)
	Timeout int
}

// StripeConfig holds billing provider settings
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// Price IDs per plan and billing interval
	PriceStarterMonthly string
	PriceStarterYearly  string
	PriceProMonthly     string
	PriceProYearly      string
	TrialDays           int64
	// SuccessURL receives ?session_id={CHECKOUT_SESSION_ID}
	SuccessURL      string
	CancelURL       string
	PortalReturnURL string
}

// EmailConfig holds outgoing mail settings
type EmailConfig struct {
	// Mode is "smtp" or "log" (log only, for development)
	Mode      string
	SMTPHost  string
	SMTPPort  int
	Username  string
	APIKey    string
	FromEmail string
	FromName  string
	// Circuit breaker: consecutive failures before opening, and open duration (seconds)
	BreakerMaxFailures uint32
	BreakerTimeout     int
}

// SessionConfig holds the registration session store settings
type SessionConfig struct {
	// Mode is "memory" or "redis"
	Mode          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// TTL is the lifetime of a registration session entry (seconds)
	TTL int
}

type ApiKeyConfig struct {
	SecretName string
	Value      string // Loaded from secrets or environment
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
	MaxUploadSizeMB       int64
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	XSSProtection         string
	ReferrerPolicy        string
	PermissionsPolicy     string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute is the default rate limit for unauthenticated requests (per IP)
	RequestsPerMinute int
	// RequestsPerMinuteAuth is the rate limit for authenticated requests (per user)
	RequestsPerMinuteAuth int
	// RequestsPerMinuteSensitive applies to OTP and registration submit endpoints (per IP)
	RequestsPerMinuteSensitive int
	BurstSize                  int
	WhitelistIPs               []string
	WhitelistPaths             []string
}

// JobsConfig holds cron expressions (with seconds) for background jobs
type JobsConfig struct {
	Enabled               bool
	TrialReminderSchedule string
	TrialReminderDays     int
	OTPCleanupSchedule    string
}

// PricingConfig controls the plan catalog cache
type PricingConfig struct {
	CacheTTL int // seconds
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// TTLDuration returns the session entry lifetime
func (s *SessionConfig) TTLDuration() time.Duration {
	return time.Duration(s.TTL) * time.Second
}

// BreakerTimeoutDuration returns how long the mail breaker stays open
func (e *EmailConfig) BreakerTimeoutDuration() time.Duration {
	return time.Duration(e.BreakerTimeout) * time.Second
}

// TimeoutDuration returns the identity provider HTTP timeout
func (s *SupabaseConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// PriceID returns the configured Stripe price for a plan and billing cycle,
// or an empty string when none is configured.
func (s *StripeConfig) PriceID(planType, billingCycle string) string {
	switch planType + "_" + billingCycle {
	case "starter_monthly":
		return s.PriceStarterMonthly
	case "starter_yearly":
		return s.PriceStarterYearly
	case "pro_monthly":
		return s.PriceProMonthly
	case "pro_yearly":
		return s.PriceProYearly
	default:
		return ""
	}
}

// Load loads configuration from file and environment variables
// This is a basic load that doesn't fetch secrets from vault
// Use LoadWithSecrets for full secret resolution
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.ApiKey.Value == "" {
		cfg.ApiKey.Value = v.GetString("ADMIN_API_KEY")
	}

	// Provider credentials commonly come from plain env vars in development
	if cfg.Stripe.SecretKey == "" {
		cfg.Stripe.SecretKey = v.GetString("STRIPE_SECRET_KEY")
	}
	if cfg.Stripe.WebhookSecret == "" {
		cfg.Stripe.WebhookSecret = v.GetString("STRIPE_WEBHOOK_SECRET")
	}
	if cfg.Supabase.URL == "" {
		cfg.Supabase.URL = v.GetString("SUPABASE_URL")
	}
	if cfg.Supabase.ServiceRoleKey == "" {
		cfg.Supabase.ServiceRoleKey = v.GetString("SUPABASE_SERVICE_ROLE_KEY")
	}
	if cfg.Supabase.JWTSecret == "" {
		cfg.Supabase.JWTSecret = v.GetString("SUPABASE_JWT_SECRET")
	}
	if cfg.Email.APIKey == "" {
		cfg.Email.APIKey = v.GetString("EMAIL_API_KEY")
	}

	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source
// In development (or when secrets.source = "environment"), secrets come from env vars
// In staging/production, secrets come from Azure Key Vault
//
// Key Vault is used when BOTH conditions are met:
// 1. USE_AZURE_KEY_VAULT environment variable is set to "true"
// 2. Environment is "staging" or "production"
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if !useKeyVault {
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	logger.Info("Azure Key Vault enabled for secrets",
		zap.String("environment", cfg.App.Environment),
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider (USE_AZURE_KEY_VAULT=true requires valid vault): %w", err)
	}

	if !provider.IsVaultEnabled() {
		return nil, fmt.Errorf("vault provider not enabled despite USE_AZURE_KEY_VAULT=true")
	}

	logger.Info("Loading secrets from Azure Key Vault")

	resolve := func(target *string, secretName, envVar string) {
		value, err := provider.GetSecretOrEnv(ctx, secretName, envVar)
		if err != nil {
			logger.Warn("Secret not resolved", zap.String("secret", secretName), zap.Error(err))
			return
		}
		if value != "" {
			*target = value
		}
	}

	resolve(&cfg.Database.Host, "POSTGRES-MAIN-HOST", "DATABASE_HOST")
	resolve(&cfg.Database.User, "POSTGRES-MAIN-USER", "DATABASE_USER")
	resolve(&cfg.Database.Password, "POSTGRES-MAIN-PASSWORD", "DATABASE_PASSWORD")
	if defaultDB := os.Getenv("DEFAULT_DATABASE"); defaultDB != "" {
		cfg.Database.Name = defaultDB
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}

	resolve(&cfg.Stripe.SecretKey, "stripe-secret-key", "STRIPE_SECRET_KEY")
	resolve(&cfg.Stripe.WebhookSecret, "stripe-webhook-secret", "STRIPE_WEBHOOK_SECRET")
	resolve(&cfg.Supabase.ServiceRoleKey, "supabase-service-role-key", "SUPABASE_SERVICE_ROLE_KEY")
	resolve(&cfg.Supabase.JWTSecret, "supabase-jwt-secret", "SUPABASE_JWT_SECRET")
	resolve(&cfg.Email.APIKey, "email-api-key", "EMAIL_API_KEY")
	resolve(&cfg.Session.RedisPassword, "redis-password", "SESSION_REDISPASSWORD")
	resolve(&cfg.ApiKey.Value, "admin-api-key", "ADMIN_API_KEY")
	resolve(&cfg.Storage.CloudConnectionString, "storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING")

	logger.Info("Secrets loaded from vault successfully")
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Haliqo API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.publicURL", "http://localhost:5173")
	v.SetDefault("app.supportEmail", "support@haliqo.com")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "haliqo")
	v.SetDefault("database.user", "haliqo_user")
	v.SetDefault("database.password", "haliqo_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	// Identity provider defaults
	v.SetDefault("supabase.timeout", 10)

	// Billing defaults
	v.SetDefault("stripe.trialDays", 14)
	v.SetDefault("stripe.successURL", "http://localhost:5173/registration/success")
	v.SetDefault("stripe.cancelURL", "http://localhost:5173/registration")
	v.SetDefault("stripe.portalReturnURL", "http://localhost:5173/settings/subscription")

	// Email defaults
	v.SetDefault("email.mode", "log")
	v.SetDefault("email.smtpPort", 587)
	v.SetDefault("email.fromEmail", "noreply@haliqo.com")
	v.SetDefault("email.fromName", "Haliqo")
	v.SetDefault("email.breakerMaxFailures", 5)
	v.SetDefault("email.breakerTimeout", 30)

	// Session store defaults
	v.SetDefault("session.mode", "memory")
	v.SetDefault("session.redisAddr", "localhost:6379")
	v.SetDefault("session.redisDB", 0)
	v.SetDefault("session.ttl", 86400) // 24 hours

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	// Storage defaults
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.maxUploadSizeMB", 5)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)

	// CORS defaults - restrictive by default
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults - secure by default
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.xssProtection", "1; mode=block")
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 120)
	v.SetDefault("rateLimit.requestsPerMinuteSensitive", 10)
	v.SetDefault("rateLimit.burstSize", 10)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready", "/webhooks/stripe"})

	// Job defaults (cron with seconds)
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.trialReminderSchedule", "0 0 8 * * *") // daily at 08:00
	v.SetDefault("jobs.trialReminderDays", 3)
	v.SetDefault("jobs.otpCleanupSchedule", "0 15 * * * *") // hourly

	// Pricing catalog cache
	v.SetDefault("pricing.cacheTTL", 300)
}
