package scheduler

import (
	"math"
	"time"

	"seatbooking/internal/models"
)

// Action is what a sweep does to one booking on one tick.
type Action string

const (
	ActionNone       Action = ""
	ActionReminder   Action = "reminder"
	ActionTimeAlert  Action = "time_alert"
	ActionAutoCancel Action = "auto_cancel"
)

// Window bounds, in minutes relative to the booking start.
const (
	reminderFrom   = 5 // exclusive
	reminderTo     = 10
	timeAlertFrom  = -1
	timeAlertTo    = 2
	autoCancelFrom = -15 // exclusive, diff must be strictly below
)

// DiffMinutes is (at - now) in whole minutes, rounded toward negative infinity.
func DiffMinutes(at, now time.Time) int {
	return int(math.Floor(at.Sub(now).Minutes()))
}

// Plan picks the action for b at now. The windows do not overlap, so at most
// one action applies; sent flags keep an action from repeating.
func Plan(b *models.Booking, now time.Time) Action {
	if b == nil || b.Status != models.StatusConfirmed || b.BookingDateTime.IsZero() {
		return ActionNone
	}
	diff := DiffMinutes(b.BookingDateTime, now)
	switch {
	case diff > reminderFrom && diff <= reminderTo:
		if !b.ReminderSent {
			return ActionReminder
		}
	case diff >= timeAlertFrom && diff <= timeAlertTo:
		if !b.TimeAlertSent {
			return ActionTimeAlert
		}
	case diff < autoCancelFrom:
		if b.Arrival == models.ArrivalUnknown {
			return ActionAutoCancel
		}
	}
	return ActionNone
}
