// Package catalog manages canteens and their meals. The orders service reads
// it but never writes it.
package catalog

import (
	"context"
	"strings"

	"github.com/mealdesk/mealdesk/internal/app/domain/canteen"
	"github.com/mealdesk/mealdesk/internal/app/domain/meal"
	"github.com/mealdesk/mealdesk/internal/app/storage"
	"github.com/mealdesk/mealdesk/internal/errors"
	"github.com/mealdesk/mealdesk/pkg/logger"
)

// Service manages the canteen and meal catalog.
type Service struct {
	canteens storage.CanteenStore
	meals    storage.MealStore
	log      *logger.Logger
}

// Menu groups a canteen with its orderable meals for the public listing.
type Menu struct {
	Canteen canteen.Canteen
	Meals   []meal.Meal
}

// New constructs a catalog service.
func New(canteens storage.CanteenStore, meals storage.MealStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{canteens: canteens, meals: meals, log: log}
}

// CreateCanteen registers a canteen with a unique name.
func (s *Service) CreateCanteen(ctx context.Context, name, description string, active bool) (canteen.Canteen, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return canteen.Canteen{}, errors.BadInput("canteen name must be at least 2 characters")
	}

	created, err := s.canteens.CreateCanteen(ctx, canteen.Canteen{
		Name:        name,
		Description: strings.TrimSpace(description),
		Active:      active,
	})
	if err != nil {
		if err == storage.ErrDuplicate {
			return canteen.Canteen{}, errors.Conflict("canteen name %q already exists", name)
		}
		return canteen.Canteen{}, errors.Internal(err)
	}
	s.log.WithField("canteen_id", created.ID).WithField("name", created.Name).Info("canteen created")
	return created, nil
}

// UpdateCanteen applies partial updates; nil fields keep their value.
func (s *Service) UpdateCanteen(ctx context.Context, id string, name, description *string, active *bool) (canteen.Canteen, error) {
	existing, err := s.GetCanteen(ctx, id)
	if err != nil {
		return canteen.Canteen{}, err
	}

	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if len(trimmed) < 2 {
			return canteen.Canteen{}, errors.BadInput("canteen name must be at least 2 characters")
		}
		existing.Name = trimmed
	}
	if description != nil {
		existing.Description = strings.TrimSpace(*description)
	}
	if active != nil {
		existing.Active = *active
	}

	updated, err := s.canteens.UpdateCanteen(ctx, existing)
	if err != nil {
		switch err {
		case storage.ErrNotFound:
			return canteen.Canteen{}, errors.NotFound("canteen %s not found", id)
		case storage.ErrDuplicate:
			return canteen.Canteen{}, errors.Conflict("canteen name %q already exists", existing.Name)
		}
		return canteen.Canteen{}, errors.Internal(err)
	}
	s.log.WithField("canteen_id", id).Info("canteen updated")
	return updated, nil
}

// GetCanteen retrieves one canteen.
func (s *Service) GetCanteen(ctx context.Context, id string) (canteen.Canteen, error) {
	c, err := s.canteens.GetCanteen(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return canteen.Canteen{}, errors.NotFound("canteen %s not found", id)
		}
		return canteen.Canteen{}, errors.Internal(err)
	}
	return c, nil
}

// ListCanteens returns every canteen, active or not.
func (s *Service) ListCanteens(ctx context.Context) ([]canteen.Canteen, error) {
	list, err := s.canteens.ListCanteens(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return list, nil
}

// DeleteCanteen removes a canteen.
func (s *Service) DeleteCanteen(ctx context.Context, id string) error {
	if err := s.canteens.DeleteCanteen(ctx, id); err != nil {
		if err == storage.ErrNotFound {
			return errors.NotFound("canteen %s not found", id)
		}
		return errors.Internal(err)
	}
	s.log.WithField("canteen_id", id).Info("canteen deleted")
	return nil
}

// CreateMeal registers a meal under an existing canteen. Price is in minor
// units and must be positive.
func (s *Service) CreateMeal(ctx context.Context, canteenID, name string, price int64, active bool) (meal.Meal, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return meal.Meal{}, errors.BadInput("meal name must be at least 2 characters")
	}
	if price <= 0 {
		return meal.Meal{}, errors.BadInput("meal price must be positive")
	}
	if _, err := s.GetCanteen(ctx, canteenID); err != nil {
		return meal.Meal{}, err
	}

	created, err := s.meals.CreateMeal(ctx, meal.Meal{
		CanteenID: canteenID,
		Name:      name,
		Price:     price,
		Active:    active,
	})
	if err != nil {
		return meal.Meal{}, errors.Internal(err)
	}
	s.log.WithField("meal_id", created.ID).
		WithField("canteen_id", canteenID).
		WithField("price", price).
		Info("meal created")
	return created, nil
}

// UpdateMeal applies partial updates; the owning canteen never changes.
func (s *Service) UpdateMeal(ctx context.Context, id string, name *string, price *int64, active *bool) (meal.Meal, error) {
	existing, err := s.GetMeal(ctx, id)
	if err != nil {
		return meal.Meal{}, err
	}

	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if len(trimmed) < 2 {
			return meal.Meal{}, errors.BadInput("meal name must be at least 2 characters")
		}
		existing.Name = trimmed
	}
	if price != nil {
		if *price <= 0 {
			return meal.Meal{}, errors.BadInput("meal price must be positive")
		}
		existing.Price = *price
	}
	if active != nil {
		existing.Active = *active
	}

	updated, err := s.meals.UpdateMeal(ctx, existing)
	if err != nil {
		if err == storage.ErrNotFound {
			return meal.Meal{}, errors.NotFound("meal %s not found", id)
		}
		return meal.Meal{}, errors.Internal(err)
	}
	s.log.WithField("meal_id", id).Info("meal updated")
	return updated, nil
}

// GetMeal retrieves one meal.
func (s *Service) GetMeal(ctx context.Context, id string) (meal.Meal, error) {
	m, err := s.meals.GetMeal(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return meal.Meal{}, errors.NotFound("meal %s not found", id)
		}
		return meal.Meal{}, errors.Internal(err)
	}
	return m, nil
}

// ListMeals returns meals, optionally filtered by canteen.
func (s *Service) ListMeals(ctx context.Context, canteenID string) ([]meal.Meal, error) {
	list, err := s.meals.ListMeals(ctx, canteenID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return list, nil
}

// DeleteMeal removes a meal. Existing orders keep their snapshots.
func (s *Service) DeleteMeal(ctx context.Context, id string) error {
	if err := s.meals.DeleteMeal(ctx, id); err != nil {
		if err == storage.ErrNotFound {
			return errors.NotFound("meal %s not found", id)
		}
		return errors.Internal(err)
	}
	s.log.WithField("meal_id", id).Info("meal deleted")
	return nil
}

// ActiveMenu lists every active canteen with its active meals, for the public
// menu endpoint.
func (s *Service) ActiveMenu(ctx context.Context) ([]Menu, error) {
	canteens, err := s.canteens.ListCanteens(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}

	var menus []Menu
	for _, c := range canteens {
		if !c.Active {
			continue
		}
		meals, err := s.meals.ListMeals(ctx, c.ID)
		if err != nil {
			return nil, errors.Internal(err)
		}
		entry := Menu{Canteen: c}
		for _, m := range meals {
			if m.Active {
				entry.Meals = append(entry.Meals, m)
			}
		}
		menus = append(menus, entry)
	}
	return menus, nil
}
