package service

import (
	"context"

	"seatbooking/internal/domain"
	"seatbooking/internal/events"
	"seatbooking/internal/models"
	"seatbooking/internal/notify"
)

var transitionEvents = map[models.Event]string{
	models.EventCancel:   events.EventBookingCancelled,
	models.EventArrive:   events.EventBookingArrived,
	models.EventNoShow:   events.EventBookingNoShow,
	models.EventComplete: events.EventBookingCompleted,
}

// Cancel cancels a booking. Cancelling twice is a no-op.
func (s *BookingService) Cancel(ctx context.Context, id string) (*models.Booking, error) {
	b, _, err := s.transition(ctx, id, models.EventCancel, "manager")
	return b, err
}

// ArrivalYes records that the customer is coming; the booking stays confirmed.
func (s *BookingService) ArrivalYes(ctx context.Context, id string) (*models.Booking, error) {
	b, _, err := s.transition(ctx, id, models.EventArrive, "customer")
	return b, err
}

// ArrivalNo records a no-show and cancels the booking, releasing its seats.
func (s *BookingService) ArrivalNo(ctx context.Context, id string) (*models.Booking, error) {
	b, changed, err := s.transition(ctx, id, models.EventNoShow, "customer")
	if err != nil {
		return nil, err
	}
	if changed && s.alerter != nil {
		if err := s.alerter.AlertManagers(ctx, notify.NoShowText(b)); err != nil {
			s.logger.Warn().Err(err).Str("booking_id", b.ID).Msg("no-show alert failed")
		}
	}
	return b, nil
}

// Complete closes a booking after service. It is only ever set by a manager.
func (s *BookingService) Complete(ctx context.Context, id string) (*models.Booking, error) {
	b, _, err := s.transition(ctx, id, models.EventComplete, "manager")
	return b, err
}

func (s *BookingService) transition(ctx context.Context, id string, ev models.Event, by string) (*models.Booking, bool, error) {
	id, err := parseID(id, "booking")
	if err != nil {
		return nil, false, err
	}
	b, changed, err := s.repo.ApplyTransition(ctx, id, ev)
	if err != nil {
		return nil, false, domain.Persistence(err, "failed to update booking status")
	}
	if changed {
		s.logger.Info().
			Str("booking_id", b.ID).
			Str("event", string(ev)).
			Str("status", string(b.Status)).
			Str("arrival", b.Arrival.String()).
			Msg("booking transitioned")
		s.publish(ctx, transitionEvents[ev], b, by)
	}
	return b, changed, nil
}

// Delete hard-removes a booking and its seat claims.
func (s *BookingService) Delete(ctx context.Context, id string) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteBooking(ctx, b.ID); err != nil {
		return domain.Persistence(err, "failed to delete booking")
	}
	s.logger.Info().Str("booking_id", b.ID).Msg("booking deleted")
	s.publish(ctx, events.EventBookingDeleted, b, "manager")
	return nil
}
