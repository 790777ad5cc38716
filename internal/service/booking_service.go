package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"seatbooking/internal/domain"
	"seatbooking/internal/events"
	"seatbooking/internal/metrics"
	"seatbooking/internal/models"
	"seatbooking/internal/timeslot"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("seatbooking/internal/service")

// BookingInput is the customer-facing create request.
type BookingInput struct {
	CustomerName           string                        `json:"customerName"`
	CustomerEmail          string                        `json:"customerEmail"`
	CustomerPhone          string                        `json:"customerPhone"`
	BookingDate            string                        `json:"bookingDate"`
	TimeSlot               string                        `json:"timeSlot"`
	NumberOfSeats          int                           `json:"numberOfSeats"`
	SelectedSeats          []string                      `json:"selectedSeats,omitempty"`
	NotificationPreference models.NotificationPreference `json:"notificationPreference,omitempty"`
	SpecialRequests        string                        `json:"specialRequests,omitempty"`
}

// BookingUpdate is a partial update; nil fields are left unchanged.
type BookingUpdate struct {
	CustomerName           *string                        `json:"customerName,omitempty"`
	CustomerEmail          *string                        `json:"customerEmail,omitempty"`
	CustomerPhone          *string                        `json:"customerPhone,omitempty"`
	BookingDate            *string                        `json:"bookingDate,omitempty"`
	TimeSlot               *string                        `json:"timeSlot,omitempty"`
	NumberOfSeats          *int                           `json:"numberOfSeats,omitempty"`
	SelectedSeats          *[]string                      `json:"selectedSeats,omitempty"`
	NotificationPreference *models.NotificationPreference `json:"notificationPreference,omitempty"`
	SpecialRequests        *string                        `json:"specialRequests,omitempty"`
}

type BookingService struct {
	repo           domain.Repository
	restaurants    *RestaurantService
	notifier       domain.Notifier
	alerter        domain.ManagerAlerter
	eventBus       domain.EventPublisher
	loc            *time.Location
	maxBookingDays int
	now            func() time.Time
	logger         *zerolog.Logger
	wg             sync.WaitGroup
}

func NewBookingService(
	repo domain.Repository,
	restaurants *RestaurantService,
	notifier domain.Notifier,
	eventBus domain.EventPublisher,
	loc *time.Location,
	maxBookingDays int,
	logger *zerolog.Logger,
) *BookingService {
	if maxBookingDays <= 0 {
		maxBookingDays = 365
	}
	if loc == nil {
		loc = time.Local
	}
	return &BookingService{
		repo:           repo,
		restaurants:    restaurants,
		notifier:       notifier,
		eventBus:       eventBus,
		loc:            loc,
		maxBookingDays: maxBookingDays,
		now:            time.Now,
		logger:         logger,
	}
}

// SetAlerter enables manager alerts for customer no-shows.
func (s *BookingService) SetAlerter(a domain.ManagerAlerter) {
	s.alerter = a
}

func (s *BookingService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Wait blocks until background notifications have finished.
func (s *BookingService) Wait() {
	s.wg.Wait()
}

// ValidateBookingDate rejects dates before today or beyond the advance window,
// both judged in the venue timezone.
func (s *BookingService) ValidateBookingDate(date time.Time) error {
	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	if date.Before(today) {
		return domain.Validationf("Booking date cannot be in the past")
	}
	if date.After(today.AddDate(0, 0, s.maxBookingDays)) {
		return domain.Validationf("Bookings can be made at most %d days in advance", s.maxBookingDays)
	}
	return nil
}

func (s *BookingService) Create(ctx context.Context, in BookingInput) (*models.Booking, error) {
	ctx, span := tracer.Start(ctx, "BookingService.Create", trace.WithAttributes(
		attribute.String("booking.date", in.BookingDate),
		attribute.String("booking.slot", in.TimeSlot),
		attribute.Int("booking.seats", in.NumberOfSeats),
	))
	defer span.End()

	b, err := s.buildBooking(ctx, in)
	if err == nil {
		err = domain.Persistence(s.repo.CreateBooking(ctx, b), "failed to create booking")
	}
	if err != nil {
		s.rejected(span, err)
		return nil, err
	}

	metrics.IncBookingCreated()
	span.SetAttributes(attribute.String("booking.id", b.ID))
	s.logger.Info().
		Str("booking_id", b.ID).
		Str("date", b.BookingDate).
		Str("slot", b.TimeSlot).
		Int("seats", b.NumberOfSeats).
		Msg("booking created")

	s.publish(ctx, events.EventBookingCreated, b, "customer")
	s.sendConfirmation(ctx, b)
	return b, nil
}

func (s *BookingService) buildBooking(ctx context.Context, in BookingInput) (*models.Booking, error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	in.CustomerPhone = normalizePhone(in.CustomerPhone)
	in.BookingDate = strings.TrimSpace(in.BookingDate)
	in.TimeSlot = strings.TrimSpace(in.TimeSlot)

	if in.CustomerName == "" || in.CustomerEmail == "" || in.CustomerPhone == "" ||
		in.BookingDate == "" || in.TimeSlot == "" || in.NumberOfSeats == 0 {
		return nil, domain.Validationf("All required fields must be provided")
	}
	if !validEmail(in.CustomerEmail) {
		return nil, domain.Validationf("Invalid email address")
	}
	if !validPhone(in.CustomerPhone) {
		return nil, domain.Validationf("Invalid phone number")
	}

	pref := in.NotificationPreference
	if pref == "" {
		pref = models.PreferenceBoth
	}
	if !pref.Valid() {
		return nil, domain.Validationf("notificationPreference must be one of sms, email, both")
	}

	b := &models.Booking{
		ID:                     uuid.NewString(),
		CustomerName:           in.CustomerName,
		CustomerEmail:          in.CustomerEmail,
		CustomerPhone:          in.CustomerPhone,
		NumberOfSeats:          in.NumberOfSeats,
		SelectedSeats:          in.SelectedSeats,
		Status:                 models.StatusConfirmed,
		Arrival:                models.ArrivalUnknown,
		NotificationPreference: pref,
		SpecialRequests:        strings.TrimSpace(in.SpecialRequests),
	}
	if err := s.schedule(b, in.BookingDate, in.TimeSlot); err != nil {
		return nil, err
	}
	if err := s.checkSeats(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// schedule sets the date, slot and derived start instant of b.
func (s *BookingService) schedule(b *models.Booking, date, slot string) error {
	sl, err := timeslot.Parse(slot)
	if err != nil {
		return err
	}
	day, canonical, err := timeslot.ParseDate(date, s.loc)
	if err != nil {
		return err
	}
	if err := s.ValidateBookingDate(day); err != nil {
		return err
	}
	start := timeslot.StartAt(day, sl, s.loc)
	if start.Before(s.now()) {
		return domain.Validationf("Booking time cannot be in the past")
	}
	b.BookingDate = canonical
	b.TimeSlot = sl.String()
	b.BookingDateTime = start
	return nil
}

func (s *BookingService) checkSeats(ctx context.Context, b *models.Booking) error {
	if b.NumberOfSeats < 1 {
		return domain.Validationf("numberOfSeats must be at least 1")
	}
	maxSeats := models.DefaultMaxSeatsPerBooking
	if s.restaurants != nil {
		r, err := s.restaurants.Get(ctx)
		if err != nil {
			return err
		}
		if r.MaxSeatsPerBooking > 0 {
			maxSeats = r.MaxSeatsPerBooking
		}
	}
	if b.NumberOfSeats > maxSeats {
		return domain.Validationf("A booking can have at most %d seats", maxSeats)
	}

	seats, err := validateSeats(b.SelectedSeats, b.NumberOfSeats)
	if err != nil {
		return err
	}
	b.SelectedSeats = seats
	return nil
}

// Update applies a partial change. Moving a booking to another date or slot
// re-derives its start instant and re-arms the reminder flags.
func (s *BookingService) Update(ctx context.Context, id string, upd BookingUpdate) (*models.Booking, error) {
	ctx, span := tracer.Start(ctx, "BookingService.Update", trace.WithAttributes(attribute.String("booking.id", id)))
	defer span.End()

	b, err := s.Get(ctx, id)
	if err != nil {
		s.rejected(span, err)
		return nil, err
	}

	if upd.CustomerName != nil {
		if b.CustomerName = strings.TrimSpace(*upd.CustomerName); b.CustomerName == "" {
			return nil, s.rejected(span, domain.Validationf("customerName cannot be empty"))
		}
	}
	if upd.CustomerEmail != nil {
		if b.CustomerEmail = strings.TrimSpace(*upd.CustomerEmail); !validEmail(b.CustomerEmail) {
			return nil, s.rejected(span, domain.Validationf("Invalid email address"))
		}
	}
	if upd.CustomerPhone != nil {
		if b.CustomerPhone = normalizePhone(*upd.CustomerPhone); !validPhone(b.CustomerPhone) {
			return nil, s.rejected(span, domain.Validationf("Invalid phone number"))
		}
	}
	if upd.NotificationPreference != nil {
		if !upd.NotificationPreference.Valid() {
			return nil, s.rejected(span, domain.Validationf("notificationPreference must be one of sms, email, both"))
		}
		b.NotificationPreference = *upd.NotificationPreference
	}
	if upd.SpecialRequests != nil {
		b.SpecialRequests = strings.TrimSpace(*upd.SpecialRequests)
	}

	moved := (upd.BookingDate != nil && *upd.BookingDate != b.BookingDate) ||
		(upd.TimeSlot != nil && *upd.TimeSlot != b.TimeSlot)
	resized := upd.NumberOfSeats != nil || upd.SelectedSeats != nil
	recheck := moved || resized

	if recheck && b.Status != models.StatusConfirmed {
		return nil, s.rejected(span, domain.Conflictf("Only confirmed bookings can be rescheduled"))
	}
	if moved {
		date, slot := b.BookingDate, b.TimeSlot
		if upd.BookingDate != nil {
			date = *upd.BookingDate
		}
		if upd.TimeSlot != nil {
			slot = *upd.TimeSlot
		}
		if err := s.schedule(b, date, slot); err != nil {
			return nil, s.rejected(span, err)
		}
		b.ReminderSent = false
		b.TimeAlertSent = false
	}
	if upd.NumberOfSeats != nil {
		b.NumberOfSeats = *upd.NumberOfSeats
	}
	if upd.SelectedSeats != nil {
		b.SelectedSeats = *upd.SelectedSeats
	}
	if recheck {
		if err := s.checkSeats(ctx, b); err != nil {
			return nil, s.rejected(span, err)
		}
	}

	if err := s.repo.UpdateBooking(ctx, b, recheck); err != nil {
		return nil, s.rejected(span, domain.Persistence(err, "failed to update booking"))
	}

	s.logger.Info().Str("booking_id", b.ID).Bool("rescheduled", moved).Msg("booking updated")
	s.publish(ctx, events.EventBookingUpdated, b, "manager")
	return b, nil
}

func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	id, err := parseID(id, "booking")
	if err != nil {
		return nil, err
	}
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, domain.Persistence(err, "failed to get booking")
	}
	return b, nil
}

// ListAll returns every booking ordered by date then slot.
func (s *BookingService) ListAll(ctx context.Context) ([]*models.Booking, error) {
	list, err := s.repo.ListBookings(ctx)
	return list, domain.Persistence(err, "failed to list bookings")
}

// ListByDate returns the day's non-cancelled bookings in slot order.
func (s *BookingService) ListByDate(ctx context.Context, date string) ([]*models.Booking, error) {
	_, canonical, err := timeslot.ParseDate(strings.TrimSpace(date), s.loc)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListBookingsByDate(ctx, canonical)
	return list, domain.Persistence(err, "failed to list bookings by date")
}

// ListRange returns bookings with from <= bookingDate <= to, any status.
func (s *BookingService) ListRange(ctx context.Context, from, to string) ([]*models.Booking, error) {
	_, fromDate, err := timeslot.ParseDate(strings.TrimSpace(from), s.loc)
	if err != nil {
		return nil, err
	}
	_, toDate, err := timeslot.ParseDate(strings.TrimSpace(to), s.loc)
	if err != nil {
		return nil, err
	}
	if toDate < fromDate {
		return nil, domain.Validationf("from must not be after to")
	}
	list, err := s.repo.ListBookingsByDateRange(ctx, fromDate, toDate)
	return list, domain.Persistence(err, "failed to list bookings by range")
}

// CheckAvailability sums confirmed seats for a slot against venue capacity.
// AvailableSeats is reported as is, so a negative value signals overbooking.
func (s *BookingService) CheckAvailability(ctx context.Context, date, slot string) (*models.Availability, error) {
	date, slot = strings.TrimSpace(date), strings.TrimSpace(slot)
	if date == "" || slot == "" {
		return nil, domain.Validationf("Date and timeSlot are required")
	}
	_, canonical, err := timeslot.ParseDate(date, s.loc)
	if err != nil {
		return nil, err
	}
	sl, err := timeslot.Parse(slot)
	if err != nil {
		return nil, err
	}

	total := models.DefaultTotalSeats
	r, err := s.repo.GetRestaurant(ctx)
	switch {
	case err == nil:
		total = r.TotalSeats
	case domain.KindOf(err) != domain.KindNotFound:
		return nil, domain.Persistence(err, "failed to load restaurant")
	}

	booked, err := s.repo.GetBookedSeats(ctx, canonical, sl.String())
	if err != nil {
		return nil, domain.Persistence(err, "failed to count booked seats")
	}
	return &models.Availability{
		Date:           canonical,
		TimeSlot:       sl.String(),
		AvailableSeats: total - booked,
		TotalSeats:     total,
		BookedSeats:    booked,
	}, nil
}

// ListOccupiedSeats returns seat ids claimed by confirmed bookings of a slot.
func (s *BookingService) ListOccupiedSeats(ctx context.Context, date, slot string) ([]string, error) {
	date, slot = strings.TrimSpace(date), strings.TrimSpace(slot)
	if date == "" || slot == "" {
		return nil, domain.Validationf("Date and timeSlot are required")
	}
	_, canonical, err := timeslot.ParseDate(date, s.loc)
	if err != nil {
		return nil, err
	}
	sl, err := timeslot.Parse(slot)
	if err != nil {
		return nil, err
	}
	seats, err := s.repo.GetOccupiedSeats(ctx, canonical, sl.String())
	return seats, domain.Persistence(err, "failed to list occupied seats")
}

func (s *BookingService) rejected(span trace.Span, err error) error {
	kind := domain.KindOf(err)
	metrics.IncBookingRejected(string(kind))
	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))
	if kind == domain.KindPersistence || kind == domain.KindInternal {
		s.logger.Error().Err(err).Msg("booking write failed")
	} else {
		s.logger.Debug().Err(err).Str("kind", string(kind)).Msg("booking rejected")
	}
	return err
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *models.Booking, changedBy string) {
	if err := events.PublishBooking(ctx, s.eventBus, eventType, b, changedBy, s.now()); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", b.ID).Msg("publish event error")
	}
}

// sendConfirmation runs in the background so a slow provider never delays
// the create response.
func (s *BookingService) sendConfirmation(ctx context.Context, b *models.Booking) {
	if s.notifier == nil {
		return
	}
	snapshot := b.Clone()
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if !s.notifier.SendConfirmation(ctx, snapshot) {
			s.logger.Warn().Str("booking_id", snapshot.ID).Msg("booking confirmation not delivered")
		}
	}()
}
