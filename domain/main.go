package domain

import (
	"github.com/akeren/clariolane-waitlist/config"
	"github.com/akeren/clariolane-waitlist/domain/monitoring"
	"github.com/akeren/clariolane-waitlist/domain/schema"
	"github.com/akeren/clariolane-waitlist/domain/waitlist"
	"github.com/akeren/clariolane-waitlist/pkg/mailer"
)

func SetupCoreDomain(appConfig *config.ApplicationConfig) {
	rs := appConfig.RouterService
	notification := appConfig.Config.Notification
	provisioning := appConfig.Config.Provisioning

	sender := mailer.NewResendMailer(mailer.ResendSettings{
		APIKey:   notification.ResendAPIKey,
		Endpoint: notification.ResendURL,
		Timeout:  notification.SendTimeout,
	}, nil)

	rs.MountController(monitoring.NewMonitoringControllerFactory(appConfig.DB, appConfig.Logger, sender).CreateController())

	waitlistFactory := waitlist.NewWaitlistServiceFactory(waitlist.Dependencies{
		DB:     appConfig.DB,
		Logger: appConfig.Logger,
		Sender: sender,
		Welcome: waitlist.WelcomeSettings{
			From:             notification.From,
			Subject:          notification.Subject,
			BreakerThreshold: notification.BreakerThreshold,
			BreakerCooldown:  notification.BreakerCooldown,
		},
		NotifyTimeout: notification.SendTimeout,
		Registerer:    rs.MetricsRegisterer(),
	})
	for _, controller := range waitlistFactory.CreateControllers() {
		rs.MountController(controller)
	}
	// Graceful shutdown drains welcome emails that are still in flight.
	rs.OnShutdown(waitlistFactory.CreateService().Wait)

	schemaFactory := schema.NewSchemaControllerFactory(appConfig.Logger, SchemaSettings(provisioning), provisioning.ServiceRoleKey)
	for _, controller := range schemaFactory.CreateControllers() {
		rs.MountController(controller)
	}
}

// SchemaSettings maps the provisioning configuration onto the provisioner's settings.
func SchemaSettings(cfg config.ProvisioningConfig) schema.Settings {
	return schema.Settings{
		DatabaseURL: cfg.PrivilegedDatabaseURL,
		Schema:      cfg.Schema,
		AnonRole:    cfg.AnonRole,
		ServiceRole: cfg.ServiceRole,
	}
}
