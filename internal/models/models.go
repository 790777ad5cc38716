package models

import "time"

// Restaurant is the single venue configuration row.
type Restaurant struct {
	Name               string    `json:"name" yaml:"name"`
	TotalSeats         int       `json:"totalSeats" yaml:"total_seats"`
	OpeningTime        string    `json:"openingTime" yaml:"opening_time"`
	ClosingTime        string    `json:"closingTime" yaml:"closing_time"`
	SlotDuration       int       `json:"slotDuration" yaml:"slot_duration"`
	Description        string    `json:"description" yaml:"description"`
	MaxSeatsPerBooking int       `json:"maxSeatsPerBooking" yaml:"max_seats_per_booking"`
	CreatedAt          time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt          time.Time `json:"updatedAt" yaml:"-"`
}

// DefaultRestaurant is used when no venue has been configured yet.
func DefaultRestaurant() Restaurant {
	return Restaurant{
		Name:               DefaultRestaurantName,
		TotalSeats:         DefaultTotalSeats,
		OpeningTime:        DefaultOpeningTime,
		ClosingTime:        DefaultClosingTime,
		SlotDuration:       DefaultSlotDuration,
		Description:        DefaultRestaurantDescription,
		MaxSeatsPerBooking: DefaultMaxSeatsPerBooking,
	}
}

type SeatMaintenance struct {
	ID        string     `json:"id"`
	SeatID    string     `json:"seatId"`
	Reason    string     `json:"reason"`
	MarkedBy  string     `json:"markedBy"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// SlotLock is a short-lived exclusive claim on a date and time slot.
type SlotLock struct {
	BookingDate string    `json:"bookingDate"`
	TimeSlot    string    `json:"timeSlot"`
	HolderToken string    `json:"holderToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Key identifies the (date, slot) pair the lock guards.
func (l *SlotLock) Key() string {
	return SlotKey(l.BookingDate, l.TimeSlot)
}

func (l *SlotLock) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

func SlotKey(date, slot string) string {
	return date + "|" + slot
}
