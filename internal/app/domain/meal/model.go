package meal

import "time"

// Meal is a daily menu item belonging to a canteen. Price is the current
// price in minor currency units (cents); orders copy it as a snapshot, so it
// can change freely without touching history.
type Meal struct {
	ID        string
	Name      string
	Price     int64 // minor units
	Active    bool
	CanteenID string
	CreatedAt time.Time
}
