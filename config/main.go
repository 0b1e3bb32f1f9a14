package config

import (
	"context"
	"time"

	"github.com/akeren/clariolane-waitlist/config/router"
	"github.com/akeren/clariolane-waitlist/internal/log"
	"github.com/akeren/clariolane-waitlist/internal/models"
	"github.com/akeren/clariolane-waitlist/pkg/constants"
	"github.com/akeren/clariolane-waitlist/pkg/mailer"
	"github.com/akeren/clariolane-waitlist/pkg/utils"
	"gorm.io/gorm"
)

type ApplicationConfig struct {
	DB              *gorm.DB
	RouterService   *router.RouterService
	Logger          *log.Logger
	Config          *AppConfig
	TracingShutdown func(context.Context) error
}

// NotificationConfig drives the welcome email. An empty ResendAPIKey disables sending.
type NotificationConfig struct {
	ResendAPIKey     string
	ResendURL        string
	From             string
	Subject          string
	SendTimeout      time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// ProvisioningConfig is only read by the schema provisioner.
type ProvisioningConfig struct {
	PrivilegedDatabaseURL string
	ServiceRoleKey        string
	Schema                string
	AnonRole              string
	ServiceRole           string
}

type AppConfig struct {
	RequestTimeout time.Duration
	Notification   NotificationConfig
	Provisioning   ProvisioningConfig
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		RequestTimeout: utils.GetEnvDurationOrDefault("REQUEST_TIMEOUT", constants.DefaultRequestTimeout),
		Notification: NotificationConfig{
			ResendAPIKey:     utils.GetEnvTrimmed("RESEND_API_KEY"),
			ResendURL:        utils.GetEnvTrimmedOrDefault("RESEND_API_URL", mailer.DefaultResendURL),
			From:             utils.GetEnvTrimmedOrDefault("WELCOME_EMAIL_FROM", constants.DefaultWelcomeFrom),
			Subject:          utils.GetEnvTrimmedOrDefault("WELCOME_EMAIL_SUBJECT", constants.DefaultWelcomeSubject),
			SendTimeout:      utils.GetEnvDurationOrDefault("NOTIFY_TIMEOUT", constants.DefaultNotifyTimeout),
			BreakerThreshold: utils.GetEnvPositiveIntOrDefault("NOTIFY_BREAKER_THRESHOLD", constants.DefaultNotifyBreakerThreshold),
			BreakerCooldown:  utils.GetEnvDurationOrDefault("NOTIFY_BREAKER_COOLDOWN", constants.DefaultNotifyBreakerCooldown),
		},
		Provisioning: NewProvisioningConfig(),
	}
}

func NewProvisioningConfig() ProvisioningConfig {
	return ProvisioningConfig{
		PrivilegedDatabaseURL: sanitizeEnv(utils.FirstEnvTrimmed("SUPABASE_DB_URL", "PRIVILEGED_DATABASE_URL")),
		ServiceRoleKey:        sanitizeEnv(utils.FirstEnvTrimmed("SUPABASE_SERVICE_ROLE_KEY", "SERVICE_ROLE_KEY")),
		Schema:                utils.GetEnvTrimmedOrDefault("DB_SCHEMA", "public"),
		AnonRole:              utils.GetEnvTrimmedOrDefault("ANON_ROLE", "anon"),
		ServiceRole:           utils.GetEnvTrimmedOrDefault("SERVICE_ROLE", "service_role"),
	}
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}

	if ac.DB != nil {
		CloseDatabase(ac.DB, ac.Logger)
	}

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	ac.Logger.Info("Application cleanup completed")
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		appEnv := GetAppEnv()
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	tracingShutdown, err := SetupTracing(logger)
	if err != nil {
		return nil, err
	}

	db, err := NewDatabase(logger, nil)
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := AutoMigrate(logger, db, models.ModelRegistry...); err != nil {
			return nil, err
		}
	}

	appConfig := NewAppConfig()

	if appConfig.Notification.ResendAPIKey == "" {
		logger.Warn("RESEND_API_KEY not set; welcome emails will be skipped")
	}

	routerService := router.CreateRouterService(logger, &router.RouterConfig{
		RequestTimeout: appConfig.RequestTimeout,
	})

	logger.Info("Application configuration loaded successfully")

	return &ApplicationConfig{
		DB:              db,
		RouterService:   routerService,
		Logger:          logger,
		Config:          appConfig,
		TracingShutdown: tracingShutdown,
	}, nil
}
