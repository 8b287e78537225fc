package models

import "time"

// Due reports whether the watch may be alerted again at now.
// A watch that was never notified is always due.
func (w Watch) Due(now time.Time, cooldown time.Duration) bool {
	if w.LastAlertAt.IsZero() {
		return true
	}
	return !now.Before(w.LastAlertAt.Add(cooldown))
}
