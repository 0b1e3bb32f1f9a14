package waitlist

import (
	"sync"
	"time"

	"github.com/akeren/clariolane-waitlist/config/router"
	"github.com/akeren/clariolane-waitlist/internal/log"
	"github.com/akeren/clariolane-waitlist/pkg/mailer"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type Dependencies struct {
	DB            *gorm.DB
	Logger        *log.Logger
	Sender        mailer.Sender
	Welcome       WelcomeSettings
	NotifyTimeout time.Duration
	Registerer    prometheus.Registerer
}

type WaitlistServiceFactory interface {
	CreateService() WaitlistService
	CreateControllers() []*router.RESTController
}

// DefaultWaitlistServiceFactory builds a single service: every controller shares its
// in-flight welcome sends and its metrics.
type DefaultWaitlistServiceFactory struct {
	deps Dependencies

	once    sync.Once
	service WaitlistService
}

func NewWaitlistServiceFactory(deps Dependencies) WaitlistServiceFactory {
	return &DefaultWaitlistServiceFactory{deps: deps}
}

func (f *DefaultWaitlistServiceFactory) CreateService() WaitlistService {
	f.once.Do(func() {
		metrics := newWaitlistMetrics(f.deps.Registerer)
		repository := NewWaitlistRepository(f.deps.DB)
		notifier := NewWelcomeNotifier(f.deps.Logger, f.deps.Sender, f.deps.Welcome, metrics)
		f.service = NewWaitlistService(
			f.deps.Logger,
			repository,
			notifier,
			WithNotifyTimeout(f.deps.NotifyTimeout),
			withMetrics(metrics),
		)
	})
	return f.service
}

func (f *DefaultWaitlistServiceFactory) CreateControllers() []*router.RESTController {
	service := f.CreateService()
	return []*router.RESTController{
		NewWaitlistController(service),
		NewWaitlistFunctionsController(service),
	}
}
