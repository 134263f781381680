package canteen

import "time"

// Canteen is a restaurant employees can order from. Orders against its meals
// are only accepted while it is active.
type Canteen struct {
	ID          string
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
}
