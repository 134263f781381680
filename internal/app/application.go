package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mealdesk/mealdesk/internal/app/services/catalog"
	"github.com/mealdesk/mealdesk/internal/app/services/identity"
	orderssvc "github.com/mealdesk/mealdesk/internal/app/services/orders"
	settingssvc "github.com/mealdesk/mealdesk/internal/app/services/settings"
	"github.com/mealdesk/mealdesk/internal/app/storage"
	"github.com/mealdesk/mealdesk/internal/app/storage/memory"
	"github.com/mealdesk/mealdesk/internal/app/system"
	"github.com/mealdesk/mealdesk/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users    storage.UserStore
	Canteens storage.CanteenStore
	Meals    storage.MealStore
	Orders   storage.OrderStore
	Settings storage.SettingStore
}

// Options carries the non-store knobs the services need.
type Options struct {
	JWTSecret []byte
	TokenTTL  time.Duration
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Identity *identity.Service
	Catalog  *catalog.Service
	Orders   *orderssvc.Service
	Settings *settingssvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if len(opts.JWTSecret) == 0 {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Canteens == nil {
		stores.Canteens = mem
	}
	if stores.Meals == nil {
		stores.Meals = mem
	}
	if stores.Orders == nil {
		stores.Orders = mem
	}
	if stores.Settings == nil {
		stores.Settings = mem
	}

	manager := system.NewManager()

	identityService := identity.New(stores.Users, opts.JWTSecret, opts.TokenTTL, log)
	catalogService := catalog.New(stores.Canteens, stores.Meals, log)
	settingsService := settingssvc.New(stores.Settings, log)
	ordersService := orderssvc.New(stores.Meals, stores.Canteens, stores.Orders, settingsService, log)

	for _, name := range []string{"identity", "catalog", "orders", "settings"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager:  manager,
		log:      log,
		Identity: identityService,
		Catalog:  catalogService,
		Orders:   ordersService,
		Settings: settingsService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
