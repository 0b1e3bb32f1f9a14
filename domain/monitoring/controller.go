package monitoring

import (
	"context"
	"time"

	"github.com/akeren/clariolane-waitlist/config/router"
	"github.com/akeren/clariolane-waitlist/internal/log"
	"gorm.io/gorm"
)

const healthCheckTimeout = 2 * time.Second

// DeliveryStatus reports whether outbound email is configured.
type DeliveryStatus interface {
	Enabled() bool
}

type HealthStatus struct {
	Database      int `json:"database"`      // 1 = healthy, 0 = unhealthy
	Notifications int `json:"notifications"` // 1 = provider configured, 0 = welcome emails skipped
	Uptime        int `json:"uptime"`        // uptime in seconds
}

type MonitoringController struct {
	db        *gorm.DB
	logger    *log.Logger
	delivery  DeliveryStatus
	startTime time.Time
}

func NewMonitoringController(db *gorm.DB, logger *log.Logger, delivery DeliveryStatus) *router.RESTController {
	ctrl := &MonitoringController{
		db:        db,
		logger:    logger,
		delivery:  delivery,
		startTime: time.Now(),
	}

	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(routerService *router.RouterService, controller *router.RESTController) {
			routerService.AddGetHandler(controller, "health", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.healthCheck(routerService, c)
			})
		},
	)
}

func (ctrl *MonitoringController) healthCheck(
	routerService *router.RouterService,
	c *router.RequestContext,
) *router.ServiceResult {
	logger := routerService.GetLogger(c)
	logger.Debug("Health check endpoint called")

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	healthStatus := ctrl.performHealthChecks(ctx, logger)
	if healthStatus.Database == 0 {
		return router.ServiceUnavailableResult(healthStatus, "clariolane-waitlist is unhealthy")
	}

	return router.OKResult(healthStatus, "clariolane-waitlist health check completed")
}

func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	status := HealthStatus{
		Uptime: int(time.Since(ctrl.startTime).Seconds()),
	}

	checkDatabaseConnectivity(ctx, ctrl, &status, logger)
	checkNotificationDelivery(ctrl, &status, logger)

	return status
}

func checkNotificationDelivery(ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.delivery != nil && ctrl.delivery.Enabled() {
		status.Notifications = 1
		return
	}
	status.Notifications = 0
	logger.Debug("Email provider not configured, welcome emails are skipped")
}

func checkDatabaseConnectivity(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.checkDatabase(ctx) {
		status.Database = 1
		logger.Debug("Database health check passed")
	} else {
		status.Database = 0
		logger.Error("Database health check failed")
	}
}

func (ctrl *MonitoringController) checkDatabase(ctx context.Context) bool {
	if ctrl.db == nil {
		return false
	}

	sqlDB, err := ctrl.db.DB()
	if err != nil {
		return false
	}

	// Ping the database
	return sqlDB.PingContext(ctx) == nil
}
