package orders

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealdesk/mealdesk/internal/app/domain/meal"
	"github.com/mealdesk/mealdesk/internal/app/domain/order"
	"github.com/mealdesk/mealdesk/internal/app/services/catalog"
	"github.com/mealdesk/mealdesk/internal/app/services/settings"
	"github.com/mealdesk/mealdesk/internal/app/storage/memory"
	"github.com/mealdesk/mealdesk/internal/errors"
)

type fixture struct {
	svc      *Service
	catalog  *catalog.Service
	settings *settings.Service
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		catalog:  catalog.New(store, store, nil),
		settings: settings.New(store, nil),
		clock:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	f.svc = New(store, store, store, f.settings, nil)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) seedMeal(t *testing.T, name string, price int64) meal.Meal {
	t.Helper()
	ctx := context.Background()
	c, err := f.catalog.CreateCanteen(ctx, "Main Hall "+name, "", true)
	require.NoError(t, err)
	m, err := f.catalog.CreateMeal(ctx, c.ID, name, price, true)
	require.NoError(t, err)
	return m
}

func TestPlaceCopiesSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.seedMeal(t, "Chicken Rice", 8000)

	placed, err := f.svc.Place(ctx, "user-1", m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chicken Rice", placed.MealName)
	assert.Equal(t, int64(8000), placed.Price)
	assert.Equal(t, order.Day(f.clock), placed.OrderDate)
	assert.False(t, placed.Paid)

	newName := "Beef Rice"
	newPrice := int64(9000)
	_, err = f.catalog.UpdateMeal(ctx, m.ID, &newName, &newPrice, nil)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chicken Rice", got.MealName, "snapshot must survive a meal rename")
	assert.Equal(t, int64(8000), got.Price, "snapshot must survive a price change")
}

func TestPlaceOncePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.seedMeal(t, "Laksa", 6500)
	other := f.seedMeal(t, "Mee Goreng", 5500)

	_, err := f.svc.Place(ctx, "user-1", m.ID)
	require.NoError(t, err)

	// A different meal on the same day is still a duplicate.
	_, err = f.svc.Place(ctx, "user-1", other.ID)
	assert.ErrorIs(t, err, errors.ErrConflict)

	// Another user is unaffected.
	_, err = f.svc.Place(ctx, "user-2", m.ID)
	require.NoError(t, err)

	// The next day the first user may order again.
	f.clock = f.clock.Add(24 * time.Hour)
	_, err = f.svc.Place(ctx, "user-1", m.ID)
	require.NoError(t, err)
}

func TestPlaceConcurrent(t *testing.T) {
	f := newFixture(t)
	m := f.seedMeal(t, "Nasi Lemak", 4500)

	const attempts = 16
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Place(context.Background(), "user-1", m.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflict int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case stderrors.Is(err, errors.ErrConflict):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok, "exactly one concurrent placement must win")
	assert.Equal(t, attempts-1, conflict)

	list, err := f.svc.ListForUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPlaceRejectsUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Place(ctx, "user-1", "no-such-meal")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	m := f.seedMeal(t, "Curry", 7000)
	inactive := false
	_, err = f.catalog.UpdateMeal(ctx, m.ID, nil, nil, &inactive)
	require.NoError(t, err)
	_, err = f.svc.Place(ctx, "user-1", m.ID)
	assert.ErrorIs(t, err, errors.ErrInvalidState)

	m2 := f.seedMeal(t, "Soup", 3000)
	_, err = f.catalog.UpdateCanteen(ctx, m2.CanteenID, nil, nil, &inactive)
	require.NoError(t, err)
	_, err = f.svc.Place(ctx, "user-1", m2.ID)
	assert.ErrorIs(t, err, errors.ErrInvalidState)
}

func TestDailySummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	riceA := f.seedMeal(t, "Rice A", 5000)
	riceB := f.seedMeal(t, "Rice B", 7000)

	_, err := f.svc.Place(ctx, "user-1", riceA.ID)
	require.NoError(t, err)
	_, err = f.svc.Place(ctx, "user-2", riceA.ID)
	require.NoError(t, err)
	_, err = f.svc.Place(ctx, "user-3", riceB.ID)
	require.NoError(t, err)

	// An order on another day must not leak into the summary.
	f.clock = f.clock.Add(24 * time.Hour)
	_, err = f.svc.Place(ctx, "user-1", riceB.ID)
	require.NoError(t, err)
	f.clock = f.clock.Add(-24 * time.Hour)

	summary, err := f.svc.DailySummary(ctx, f.clock)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalOrders)
	assert.Equal(t, int64(17000), summary.TotalAmount)
	require.Len(t, summary.Groups, 2)
	assert.Equal(t, order.Group{MealName: "Rice A", Count: 2, Subtotal: 10000}, summary.Groups[0])
	assert.Equal(t, order.Group{MealName: "Rice B", Count: 1, Subtotal: 7000}, summary.Groups[1])
}

func TestDailySummaryGroupsBySnapshotName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.seedMeal(t, "Old Name", 5000)

	_, err := f.svc.Place(ctx, "user-1", m.ID)
	require.NoError(t, err)

	newName := "New Name"
	_, err = f.catalog.UpdateMeal(ctx, m.ID, &newName, nil, nil)
	require.NoError(t, err)
	_, err = f.svc.Place(ctx, "user-2", m.ID)
	require.NoError(t, err)

	summary, err := f.svc.DailySummary(ctx, f.clock)
	require.NoError(t, err)
	require.Len(t, summary.Groups, 2, "renamed meals settle under their snapshot names")
	assert.Equal(t, "New Name", summary.Groups[0].MealName)
	assert.Equal(t, "Old Name", summary.Groups[1].MealName)
}

func TestDailySummaryEmptyDay(t *testing.T) {
	f := newFixture(t)

	summary, err := f.svc.DailySummary(context.Background(), f.clock)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalOrders)
	assert.Equal(t, int64(0), summary.TotalAmount)
	assert.Empty(t, summary.Groups)
}

func TestMarkPaidIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.seedMeal(t, "Dumplings", 6000)

	placed, err := f.svc.Place(ctx, "user-1", m.ID)
	require.NoError(t, err)

	paid, err := f.svc.MarkPaid(ctx, placed.ID)
	require.NoError(t, err)
	assert.True(t, paid.Paid)

	again, err := f.svc.MarkPaid(ctx, placed.ID)
	require.NoError(t, err)
	assert.True(t, again.Paid)

	_, err = f.svc.MarkPaid(ctx, "no-such-order")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestDeleteCutoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.settings.Put(ctx, "ORDER_CUTOFF_TIME", "11:00")
	require.NoError(t, err)
	m := f.seedMeal(t, "Bento", 8000)

	day := func(hour, minute int) time.Time {
		return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
	}

	// Before the cutoff the owner may delete.
	f.clock = day(9, 0)
	placed, err := f.svc.Place(ctx, "user-1", m.ID)
	require.NoError(t, err)
	f.clock = day(10, 59)
	require.NoError(t, f.svc.Delete(ctx, placed.ID, "user-1", false))

	// The boundary instant itself is still allowed.
	f.clock = day(9, 0)
	placed, err = f.svc.Place(ctx, "user-1", m.ID)
	require.NoError(t, err)
	f.clock = day(11, 0)
	require.NoError(t, f.svc.Delete(ctx, placed.ID, "user-1", false))

	// Strictly after the cutoff no one may delete, admins included.
	f.clock = day(9, 0)
	placed, err = f.svc.Place(ctx, "user-1", m.ID)
	require.NoError(t, err)
	f.clock = day(11, 1)
	err = f.svc.Delete(ctx, placed.ID, "user-1", false)
	assert.ErrorIs(t, err, errors.ErrForbidden)
	assert.ErrorContains(t, err, "past cutoff")
	err = f.svc.Delete(ctx, placed.ID, "admin", true)
	assert.ErrorIs(t, err, errors.ErrForbidden)
}

func TestDeleteCutoffChangeAppliesImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.seedMeal(t, "Pho", 7500)

	placed, err := f.svc.Place(ctx, "user-1", m.ID)
	require.NoError(t, err)

	// Default cutoff is 12:00; at 13:00 the delete is refused.
	f.clock = time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)
	err = f.svc.Delete(ctx, placed.ID, "user-1", false)
	assert.ErrorIs(t, err, errors.ErrForbidden)

	// Moving the cutoff later takes effect on the very next call.
	_, err = f.settings.Put(ctx, "ORDER_CUTOFF_TIME", "14:00")
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, placed.ID, "user-1", false))
}

func TestDeleteOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.seedMeal(t, "Udon", 6800)

	placed, err := f.svc.Place(ctx, "user-1", m.ID)
	require.NoError(t, err)

	err = f.svc.Delete(ctx, placed.ID, "user-2", false)
	assert.ErrorIs(t, err, errors.ErrForbidden)
	assert.ErrorContains(t, err, "not owner")

	// The cutoff check runs first: a non-owner asking too late is told about
	// the cutoff, not about ownership.
	f.clock = f.clock.Add(12 * time.Hour)
	err = f.svc.Delete(ctx, placed.ID, "user-2", false)
	assert.ErrorIs(t, err, errors.ErrForbidden)
	assert.ErrorContains(t, err, "past cutoff")
	f.clock = f.clock.Add(-12 * time.Hour)

	// Admins may delete on behalf of anyone before the cutoff.
	require.NoError(t, f.svc.Delete(ctx, placed.ID, "admin-1", true))
	err = f.svc.Delete(ctx, placed.ID, "user-1", false)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
