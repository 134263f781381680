// Package storage defines the persistence contracts consumed by the mealdesk
// services, plus the sentinel errors every implementation must return so the
// service layer can translate them into the outward error taxonomy.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mealdesk/mealdesk/internal/app/domain/canteen"
	"github.com/mealdesk/mealdesk/internal/app/domain/meal"
	"github.com/mealdesk/mealdesk/internal/app/domain/order"
	"github.com/mealdesk/mealdesk/internal/app/domain/setting"
	"github.com/mealdesk/mealdesk/internal/app/domain/user"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicate is returned when a uniqueness constraint is violated. For
	// orders this is the race-safe arbiter of the one-order-per-day rule: the
	// constraint fires even when two inserts pass their pre-checks
	// concurrently.
	ErrDuplicate = errors.New("storage: duplicate record")
)

// UserStore persists user accounts. Usernames are unique.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
}

// CanteenStore persists canteens. Names are unique.
type CanteenStore interface {
	CreateCanteen(ctx context.Context, c canteen.Canteen) (canteen.Canteen, error)
	UpdateCanteen(ctx context.Context, c canteen.Canteen) (canteen.Canteen, error)
	GetCanteen(ctx context.Context, id string) (canteen.Canteen, error)
	ListCanteens(ctx context.Context) ([]canteen.Canteen, error)
	DeleteCanteen(ctx context.Context, id string) error
}

// MealStore persists meals. ListMeals with an empty canteen id returns all
// meals.
type MealStore interface {
	CreateMeal(ctx context.Context, m meal.Meal) (meal.Meal, error)
	UpdateMeal(ctx context.Context, m meal.Meal) (meal.Meal, error)
	GetMeal(ctx context.Context, id string) (meal.Meal, error)
	ListMeals(ctx context.Context, canteenID string) ([]meal.Meal, error)
	DeleteMeal(ctx context.Context, id string) error
}

// OrderStore persists orders. CreateOrder must enforce the composite
// (user id, order date) uniqueness and report violations as ErrDuplicate.
// ListOrdersByUser returns most recent order date first.
type OrderStore interface {
	CreateOrder(ctx context.Context, o order.Order) (order.Order, error)
	UpdateOrder(ctx context.Context, o order.Order) (order.Order, error)
	GetOrder(ctx context.Context, id string) (order.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]order.Order, error)
	ListOrdersByDate(ctx context.Context, date time.Time) ([]order.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

// SettingStore persists key/value settings. PutSetting upserts.
type SettingStore interface {
	GetSetting(ctx context.Context, key string) (setting.Setting, error)
	PutSetting(ctx context.Context, s setting.Setting) (setting.Setting, error)
	ListSettings(ctx context.Context) ([]setting.Setting, error)
}
