package monitoring

import (
	"github.com/akeren/clariolane-waitlist/config/router"
	"github.com/akeren/clariolane-waitlist/internal/log"
	"gorm.io/gorm"
)

type MonitoringControllerFactory interface {
	CreateController() *router.RESTController
}

type DefaultMonitoringControllerFactory struct {
	db       *gorm.DB
	logger   *log.Logger
	delivery DeliveryStatus
}

func NewMonitoringControllerFactory(db *gorm.DB, logger *log.Logger, delivery DeliveryStatus) MonitoringControllerFactory {
	return &DefaultMonitoringControllerFactory{
		db:       db,
		logger:   logger,
		delivery: delivery,
	}
}

func (f *DefaultMonitoringControllerFactory) CreateController() *router.RESTController {
	return NewMonitoringController(f.db, f.logger, f.delivery)
}
