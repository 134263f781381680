// Package memory is a thread-safe in-memory implementation of the storage
// interfaces. It is intended for tests and prototyping and deliberately keeps
// the implementation simple; the mutex gives it the same all-or-nothing
// semantics the relational store gets from its unique constraints.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mealdesk/mealdesk/internal/app/domain/canteen"
	"github.com/mealdesk/mealdesk/internal/app/domain/meal"
	"github.com/mealdesk/mealdesk/internal/app/domain/order"
	"github.com/mealdesk/mealdesk/internal/app/domain/setting"
	"github.com/mealdesk/mealdesk/internal/app/domain/user"
	"github.com/mealdesk/mealdesk/internal/app/storage"
)

// Store implements every storage interface in memory.
type Store struct {
	mu       sync.RWMutex
	users    map[string]user.User
	canteens map[string]canteen.Canteen
	meals    map[string]meal.Meal
	orders   map[string]order.Order
	settings map[string]setting.Setting
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.CanteenStore = (*Store)(nil)
var _ storage.MealStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.SettingStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:    make(map[string]user.User),
		canteens: make(map[string]canteen.Canteen),
		meals:    make(map[string]meal.Meal),
		orders:   make(map[string]order.Order),
		settings: make(map[string]setting.Setting),
	}
}

// --- UserStore ---------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return user.User{}, storage.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// --- CanteenStore ------------------------------------------------------------

func (s *Store) CreateCanteen(_ context.Context, c canteen.Canteen) (canteen.Canteen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.canteens {
		if strings.EqualFold(existing.Name, c.Name) {
			return canteen.Canteen{}, storage.ErrDuplicate
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()
	s.canteens[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCanteen(_ context.Context, c canteen.Canteen) (canteen.Canteen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.canteens[c.ID]
	if !ok {
		return canteen.Canteen{}, storage.ErrNotFound
	}
	for id, other := range s.canteens {
		if id != c.ID && strings.EqualFold(other.Name, c.Name) {
			return canteen.Canteen{}, storage.ErrDuplicate
		}
	}
	c.CreatedAt = existing.CreatedAt
	s.canteens[c.ID] = c
	return c, nil
}

func (s *Store) GetCanteen(_ context.Context, id string) (canteen.Canteen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.canteens[id]
	if !ok {
		return canteen.Canteen{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCanteens(_ context.Context) ([]canteen.Canteen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]canteen.Canteen, 0, len(s.canteens))
	for _, c := range s.canteens {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) DeleteCanteen(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.canteens[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.canteens, id)
	return nil
}

// --- MealStore ---------------------------------------------------------------

func (s *Store) CreateMeal(_ context.Context, m meal.Meal) (meal.Meal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()
	s.meals[m.ID] = m
	return m, nil
}

func (s *Store) UpdateMeal(_ context.Context, m meal.Meal) (meal.Meal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.meals[m.ID]
	if !ok {
		return meal.Meal{}, storage.ErrNotFound
	}
	m.CreatedAt = existing.CreatedAt
	s.meals[m.ID] = m
	return m, nil
}

func (s *Store) GetMeal(_ context.Context, id string) (meal.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.meals[id]
	if !ok {
		return meal.Meal{}, storage.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListMeals(_ context.Context, canteenID string) ([]meal.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]meal.Meal, 0, len(s.meals))
	for _, m := range s.meals {
		if canteenID == "" || m.CanteenID == canteenID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) DeleteMeal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meals[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.meals, id)
	return nil
}

// --- OrderStore --------------------------------------------------------------

func (s *Store) CreateOrder(_ context.Context, o order.Order) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := order.Day(o.OrderDate)
	for _, existing := range s.orders {
		if existing.UserID == o.UserID && existing.OrderDate.Equal(day) {
			return order.Order{}, storage.ErrDuplicate
		}
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.OrderDate = day
	o.CreatedAt = time.Now().UTC()
	s.orders[o.ID] = o
	return o, nil
}

func (s *Store) UpdateOrder(_ context.Context, o order.Order) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.orders[o.ID]
	if !ok {
		return order.Order{}, storage.ErrNotFound
	}
	// Snapshot fields and identity are immutable after creation.
	o.UserID = existing.UserID
	o.MealID = existing.MealID
	o.MealName = existing.MealName
	o.Price = existing.Price
	o.OrderDate = existing.OrderDate
	o.CreatedAt = existing.CreatedAt
	s.orders[o.ID] = o
	return o, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, storage.ErrNotFound
	}
	return o, nil
}

func (s *Store) ListOrdersByUser(_ context.Context, userID string) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []order.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrderDate.After(result[j].OrderDate) })
	return result, nil
}

func (s *Store) ListOrdersByDate(_ context.Context, date time.Time) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := order.Day(date)
	var result []order.Order
	for _, o := range s.orders {
		if o.OrderDate.Equal(day) {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.orders, id)
	return nil
}

// --- SettingStore ------------------------------------------------------------

func (s *Store) GetSetting(_ context.Context, key string) (setting.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.settings[key]
	if !ok {
		return setting.Setting{}, storage.ErrNotFound
	}
	return entry, nil
}

func (s *Store) PutSetting(_ context.Context, entry setting.Setting) (setting.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[entry.Key] = entry
	return entry, nil
}

func (s *Store) ListSettings(_ context.Context) ([]setting.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]setting.Setting, 0, len(s.settings))
	for _, entry := range s.settings {
		result = append(result, entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}
