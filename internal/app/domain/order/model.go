// Package order holds the order entity, the daily summary aggregate and the
// money/date conversion rules used at the API boundary.
package order

import (
	"math"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Order is a single employee meal order. MealName and Price are snapshots of
// the meal taken at placement time and never change afterwards, even if the
// meal is renamed, repriced or deleted.
type Order struct {
	ID        string
	UserID    string
	MealID    string
	MealName  string // snapshot
	Price     int64  // snapshot, minor units
	OrderDate time.Time
	Paid      bool
	CreatedAt time.Time
}

// Summary aggregates one calendar day of orders, grouped by snapshot meal
// name. All amounts are in minor units.
type Summary struct {
	Date        time.Time
	TotalOrders int
	TotalAmount int64
	Groups      []Group
}

// Group is the per-meal-name slice of a Summary.
type Group struct {
	MealName string
	Count    int
	Subtotal int64
}

// Day normalizes a timestamp to its calendar date at midnight UTC. All order
// dates are stored in this form so (user, date) uniqueness is well defined.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a normalized calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// DisplayAmount converts minor units to display units. Used only at the API
// boundary; all arithmetic stays in integers.
func DisplayAmount(minor int64) float64 {
	return float64(minor) / 100
}

// MinorAmount converts display units back to minor units, rounding to the
// nearest cent.
func MinorAmount(display float64) int64 {
	return int64(math.Round(display * 100))
}
