package setting

// Setting is a string key/value configuration entry.
type Setting struct {
	Key   string
	Value string
}

// KeyOrderCutoffTime holds the HH:MM time-of-day after which same-day order
// deletion is refused.
const KeyOrderCutoffTime = "ORDER_CUTOFF_TIME"
