package models

import "time"

// DateLayout is the wire and storage format of a booking date.
const DateLayout = "2006-01-02"

type Booking struct {
	ID                     string                 `json:"id"`
	CustomerName           string                 `json:"customerName"`
	CustomerEmail          string                 `json:"customerEmail"`
	CustomerPhone          string                 `json:"customerPhone"`
	BookingDate            string                 `json:"bookingDate"`
	TimeSlot               string                 `json:"timeSlot"`
	BookingDateTime        time.Time              `json:"bookingDateTime"`
	NumberOfSeats          int                    `json:"numberOfSeats"`
	SelectedSeats          []string               `json:"selectedSeats"`
	Status                 Status                 `json:"status"`
	ReminderSent           bool                   `json:"reminderSent"`
	TimeAlertSent          bool                   `json:"timeAlertSent"`
	Arrival                ArrivalState           `json:"arrivalConfirmed"`
	NotificationPreference NotificationPreference `json:"notificationPreference"`
	SpecialRequests        string                 `json:"specialRequests,omitempty"`
	CreatedAt              time.Time              `json:"createdAt"`
	UpdatedAt              time.Time              `json:"updatedAt"`
	Version                int64                  `json:"version"`
}

// IsActive reports whether the booking still holds capacity.
func (b *Booking) IsActive() bool {
	return b.Status == StatusConfirmed
}

// Clone returns a deep copy safe to hand to asynchronous subscribers.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	if b.SelectedSeats != nil {
		c.SelectedSeats = make([]string, len(b.SelectedSeats))
		copy(c.SelectedSeats, b.SelectedSeats)
	}
	return &c
}

// Availability is the aggregate seat count for one date and slot.
type Availability struct {
	Date           string `json:"date"`
	TimeSlot       string `json:"timeSlot"`
	AvailableSeats int    `json:"availableSeats"`
	TotalSeats     int    `json:"totalSeats"`
	BookedSeats    int    `json:"bookedSeats"`
}
