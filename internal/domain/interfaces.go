package domain

import (
	"context"
	"time"

	"seatbooking/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type BookingRepository interface {
	// CreateBooking persists the booking after re-checking capacity and seat
	// claims atomically with the insert.
	CreateBooking(ctx context.Context, booking *models.Booking) error
	// UpdateBooking writes booking fields; when recheck is set capacity and
	// seats are validated again excluding the booking itself.
	UpdateBooking(ctx context.Context, booking *models.Booking, recheck bool) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	ListBookingsByDate(ctx context.Context, date string) ([]*models.Booking, error)
	ListBookingsByDateRange(ctx context.Context, from, to string) ([]*models.Booking, error)
	ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]*models.Booking, error)
	GetBookedSeats(ctx context.Context, date, timeSlot string) (int, error)
	GetOccupiedSeats(ctx context.Context, date, timeSlot string) ([]string, error)
	// ApplyTransition reports whether the booking changed; repeating an
	// idempotent transition returns the booking unchanged.
	ApplyTransition(ctx context.Context, id string, event models.Event) (*models.Booking, bool, error)
	// MarkNotified sets the sent flag for kind only if it is still unset on a
	// confirmed booking. It reports whether this call flipped the flag.
	MarkNotified(ctx context.Context, id string, kind models.NotificationKind) (bool, error)
}

type RestaurantRepository interface {
	// EnsureRestaurant returns the stored venue, inserting defaults first if
	// none exists yet.
	EnsureRestaurant(ctx context.Context, defaults *models.Restaurant) (*models.Restaurant, error)
	GetRestaurant(ctx context.Context) (*models.Restaurant, error)
	SaveRestaurant(ctx context.Context, r *models.Restaurant) error
}

type MaintenanceRepository interface {
	CreateMaintenance(ctx context.Context, m *models.SeatMaintenance) error
	DeactivateMaintenance(ctx context.Context, id string) error
	DeactivateMaintenanceBySeats(ctx context.Context, seatIDs []string) (int64, error)
	GetActiveMaintenanceSeatIDs(ctx context.Context) ([]string, error)
	ListMaintenance(ctx context.Context) ([]*models.SeatMaintenance, error)
}

type Repository interface {
	BookingRepository
	RestaurantRepository
	MaintenanceRepository
}

// SlotLockStore keeps at most one unexpired lock per (date, slot).
type SlotLockStore interface {
	Acquire(ctx context.Context, lock *models.SlotLock, ttl time.Duration) (bool, error)
	Release(ctx context.Context, date, timeSlot, holderToken string) error
	Get(ctx context.Context, date, timeSlot string) (*models.SlotLock, error)
}

// Notifier delivers booking messages. Each method reports whether at least
// one channel accepted the message.
type Notifier interface {
	SendConfirmation(ctx context.Context, booking *models.Booking) bool
	SendReminder(ctx context.Context, booking *models.Booking) bool
	SendTimeAlert(ctx context.Context, booking *models.Booking) bool
	SendCancellation(ctx context.Context, booking *models.Booking) bool
}

type ManagerAlerter interface {
	AlertManagers(ctx context.Context, text string) error
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
