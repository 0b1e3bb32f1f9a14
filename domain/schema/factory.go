package schema

import (
	"github.com/akeren/clariolane-waitlist/config/router"
	"github.com/akeren/clariolane-waitlist/internal/log"
)

type SchemaControllerFactory interface {
	CreateProvisioner() Provisioner
	CreateControllers() []*router.RESTController
}

type DefaultSchemaControllerFactory struct {
	logger         *log.Logger
	settings       Settings
	serviceRoleKey string
}

func NewSchemaControllerFactory(logger *log.Logger, settings Settings, serviceRoleKey string) SchemaControllerFactory {
	return &DefaultSchemaControllerFactory{
		logger:         logger,
		settings:       settings,
		serviceRoleKey: serviceRoleKey,
	}
}

func (f *DefaultSchemaControllerFactory) CreateProvisioner() Provisioner {
	return NewProvisioner(f.logger, f.settings)
}

func (f *DefaultSchemaControllerFactory) CreateControllers() []*router.RESTController {
	provisioner := f.CreateProvisioner()
	return []*router.RESTController{
		NewSchemaController(provisioner, f.serviceRoleKey, f.logger),
		NewSchemaFunctionsController(provisioner, f.serviceRoleKey, f.logger),
	}
}
