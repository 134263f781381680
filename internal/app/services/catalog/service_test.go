package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealdesk/mealdesk/internal/app/storage/memory"
	"github.com/mealdesk/mealdesk/internal/errors"
)

func TestCanteenLifecycle(t *testing.T) {
	svc := New(memory.New(), memory.New(), nil)
	ctx := context.Background()

	c, err := svc.CreateCanteen(ctx, "North Kitchen", "ground floor", true)
	require.NoError(t, err)
	assert.True(t, c.Active)

	_, err = svc.CreateCanteen(ctx, "North Kitchen", "", true)
	assert.ErrorIs(t, err, errors.ErrConflict)

	newName := "North Canteen"
	inactive := false
	updated, err := svc.UpdateCanteen(ctx, c.ID, &newName, nil, &inactive)
	require.NoError(t, err)
	assert.Equal(t, "North Canteen", updated.Name)
	assert.False(t, updated.Active)
	assert.Equal(t, "ground floor", updated.Description, "partial update must keep description")

	require.NoError(t, svc.DeleteCanteen(ctx, c.ID))
	_, err = svc.GetCanteen(ctx, c.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestCreateMealValidation(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	c, err := svc.CreateCanteen(ctx, "North Kitchen", "", true)
	require.NoError(t, err)

	_, err = svc.CreateMeal(ctx, c.ID, "Chicken Rice", 0, true)
	assert.ErrorIs(t, err, errors.ErrBadInput)

	_, err = svc.CreateMeal(ctx, c.ID, "C", 8000, true)
	assert.ErrorIs(t, err, errors.ErrBadInput)

	_, err = svc.CreateMeal(ctx, "missing-canteen", "Chicken Rice", 8000, true)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	m, err := svc.CreateMeal(ctx, c.ID, "Chicken Rice", 8000, true)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), m.Price)
	assert.Equal(t, c.ID, m.CanteenID)
}

func TestUpdateMealKeepsCanteen(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	c, err := svc.CreateCanteen(ctx, "North Kitchen", "", true)
	require.NoError(t, err)
	m, err := svc.CreateMeal(ctx, c.ID, "Chicken Rice", 8000, true)
	require.NoError(t, err)

	price := int64(9000)
	name := "Beef Rice"
	updated, err := svc.UpdateMeal(ctx, m.ID, &name, &price, nil)
	require.NoError(t, err)
	assert.Equal(t, "Beef Rice", updated.Name)
	assert.Equal(t, int64(9000), updated.Price)
	assert.Equal(t, c.ID, updated.CanteenID)

	bad := int64(-1)
	_, err = svc.UpdateMeal(ctx, m.ID, nil, &bad, nil)
	assert.ErrorIs(t, err, errors.ErrBadInput)
}

func TestActiveMenuFiltersInactive(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	open, err := svc.CreateCanteen(ctx, "Open Kitchen", "", true)
	require.NoError(t, err)
	closed, err := svc.CreateCanteen(ctx, "Closed Kitchen", "", false)
	require.NoError(t, err)

	_, err = svc.CreateMeal(ctx, open.ID, "Chicken Rice", 8000, true)
	require.NoError(t, err)
	_, err = svc.CreateMeal(ctx, open.ID, "Off Menu", 5000, false)
	require.NoError(t, err)
	_, err = svc.CreateMeal(ctx, closed.ID, "Hidden", 5000, true)
	require.NoError(t, err)

	menus, err := svc.ActiveMenu(ctx)
	require.NoError(t, err)
	require.Len(t, menus, 1)
	assert.Equal(t, open.ID, menus[0].Canteen.ID)
	require.Len(t, menus[0].Meals, 1)
	assert.Equal(t, "Chicken Rice", menus[0].Meals[0].Name)
}
