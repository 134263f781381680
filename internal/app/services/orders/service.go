// Package orders is the order engine: placement with meal snapshots, per-user
// history, daily settlement, payment marking and deadline-gated deletion.
package orders

import (
	"context"
	"sort"
	"time"

	"github.com/mealdesk/mealdesk/internal/app/domain/order"
	"github.com/mealdesk/mealdesk/internal/app/metrics"
	"github.com/mealdesk/mealdesk/internal/app/services/settings"
	"github.com/mealdesk/mealdesk/internal/app/storage"
	"github.com/mealdesk/mealdesk/internal/errors"
	"github.com/mealdesk/mealdesk/pkg/logger"
)

// CutoffSource yields the current deletion cutoff time-of-day. It is read
// fresh on every delete; implementations must not cache stale values.
type CutoffSource interface {
	CutoffTime(ctx context.Context) settings.TimeOfDay
}

// Service implements the order engine.
type Service struct {
	meals    storage.MealStore
	canteens storage.CanteenStore
	orders   storage.OrderStore
	cutoff   CutoffSource
	log      *logger.Logger

	now func() time.Time
}

// New constructs an order service.
func New(meals storage.MealStore, canteens storage.CanteenStore, orders storage.OrderStore, cutoff CutoffSource, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("orders")
	}
	return &Service{
		meals:    meals,
		canteens: canteens,
		orders:   orders,
		cutoff:   cutoff,
		log:      log,
		now:      time.Now,
	}
}

// Place creates today's order for a user, copying the meal's current name and
// price onto the order as an immutable snapshot. The storage uniqueness
// constraint on (user, date) is the final arbiter under concurrency: a losing
// concurrent insert surfaces here as Conflict, same as the ordinary duplicate
// case.
func (s *Service) Place(ctx context.Context, userID, mealID string) (order.Order, error) {
	today := order.Day(s.now())

	m, err := s.meals.GetMeal(ctx, mealID)
	if err != nil {
		if err == storage.ErrNotFound {
			metrics.RecordOrderPlaced("rejected")
			return order.Order{}, errors.NotFound("meal %s not found", mealID)
		}
		metrics.RecordOrderPlaced("error")
		return order.Order{}, errors.Internal(err)
	}
	if !m.Active {
		metrics.RecordOrderPlaced("rejected")
		return order.Order{}, errors.InvalidState("meal %q is currently unavailable", m.Name)
	}

	c, err := s.canteens.GetCanteen(ctx, m.CanteenID)
	if err != nil {
		if err == storage.ErrNotFound {
			metrics.RecordOrderPlaced("rejected")
			return order.Order{}, errors.NotFound("canteen %s not found", m.CanteenID)
		}
		metrics.RecordOrderPlaced("error")
		return order.Order{}, errors.Internal(err)
	}
	if !c.Active {
		metrics.RecordOrderPlaced("rejected")
		return order.Order{}, errors.InvalidState("canteen %q is not taking orders", c.Name)
	}

	created, err := s.orders.CreateOrder(ctx, order.Order{
		UserID:    userID,
		MealID:    m.ID,
		MealName:  m.Name,
		Price:     m.Price,
		OrderDate: today,
		Paid:      false,
	})
	if err != nil {
		if err == storage.ErrDuplicate {
			metrics.RecordOrderPlaced("conflict")
			return order.Order{}, errors.Conflict("already ordered on %s", order.FormatDate(today))
		}
		metrics.RecordOrderPlaced("error")
		return order.Order{}, errors.Internal(err)
	}

	metrics.RecordOrderPlaced("ok")
	s.log.WithField("order_id", created.ID).
		WithField("user_id", userID).
		WithField("meal", created.MealName).
		WithField("price", created.Price).
		Info("order placed")
	return created, nil
}

// ListForUser returns a user's orders, most recent order date first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]order.Order, error) {
	list, err := s.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return list, nil
}

// Get fetches one order by id.
func (s *Service) Get(ctx context.Context, id string) (order.Order, error) {
	o, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return order.Order{}, errors.NotFound("order %s not found", id)
		}
		return order.Order{}, errors.Internal(err)
	}
	return o, nil
}

// DailySummary aggregates one day's orders grouped by snapshot meal name, so
// meals renamed or deleted since keep their historical identity. Groups are
// sorted by name for deterministic output; all sums stay in minor units.
func (s *Service) DailySummary(ctx context.Context, date time.Time) (order.Summary, error) {
	day := order.Day(date)
	list, err := s.orders.ListOrdersByDate(ctx, day)
	if err != nil {
		return order.Summary{}, errors.Internal(err)
	}

	byName := make(map[string]*order.Group)
	summary := order.Summary{Date: day}
	for _, o := range list {
		group, ok := byName[o.MealName]
		if !ok {
			group = &order.Group{MealName: o.MealName}
			byName[o.MealName] = group
		}
		group.Count++
		group.Subtotal += o.Price
		summary.TotalOrders++
		summary.TotalAmount += o.Price
	}

	summary.Groups = make([]order.Group, 0, len(byName))
	for _, group := range byName {
		summary.Groups = append(summary.Groups, *group)
	}
	sort.Slice(summary.Groups, func(i, j int) bool {
		return summary.Groups[i].MealName < summary.Groups[j].MealName
	})
	return summary, nil
}

// MarkPaid flips an order to paid. Calling it on an already paid order is a
// no-op that returns the order unchanged; the paid flag never transitions
// back.
func (s *Service) MarkPaid(ctx context.Context, orderID string) (order.Order, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if o.Paid {
		return o, nil
	}

	o.Paid = true
	updated, err := s.orders.UpdateOrder(ctx, o)
	if err != nil {
		if err == storage.ErrNotFound {
			return order.Order{}, errors.NotFound("order %s not found", orderID)
		}
		return order.Order{}, errors.Internal(err)
	}

	metrics.RecordOrderPaid()
	s.log.WithField("order_id", orderID).Info("order marked paid")
	return updated, nil
}

// Delete removes an order permanently. The cutoff-time check runs before the
// ownership check, so a late request reports "past cutoff" even to a
// non-owner; the cutoff applies to admins too. The boundary instant itself is
// still deletable: only strictly-after is refused.
func (s *Service) Delete(ctx context.Context, orderID, requesterID string, requesterIsAdmin bool) error {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}

	cutoffAt := s.cutoff.CutoffTime(ctx).On(o.OrderDate)
	if s.now().After(cutoffAt) {
		metrics.RecordOrderDeleted("forbidden")
		return errors.Forbidden("past cutoff: orders for %s can no longer be deleted after %s",
			order.FormatDate(o.OrderDate), cutoffAt.Format("15:04"))
	}

	if !requesterIsAdmin && o.UserID != requesterID {
		metrics.RecordOrderDeleted("forbidden")
		return errors.Forbidden("not owner: only the order's owner or an administrator may delete it")
	}

	if err := s.orders.DeleteOrder(ctx, orderID); err != nil {
		if err == storage.ErrNotFound {
			return errors.NotFound("order %s not found", orderID)
		}
		metrics.RecordOrderDeleted("error")
		return errors.Internal(err)
	}

	metrics.RecordOrderDeleted("ok")
	s.log.WithField("order_id", orderID).
		WithField("requester_id", requesterID).
		WithField("as_admin", requesterIsAdmin).
		Info("order deleted")
	return nil
}
