package service

import (
	"context"

	"seatbooking/internal/config"
	"seatbooking/internal/domain"
	"seatbooking/internal/models"
	"seatbooking/internal/timeslot"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// RestaurantUpdate is a partial update; nil fields are left unchanged.
type RestaurantUpdate struct {
	Name               *string `json:"name,omitempty"`
	TotalSeats         *int    `json:"totalSeats,omitempty"`
	OpeningTime        *string `json:"openingTime,omitempty"`
	ClosingTime        *string `json:"closingTime,omitempty"`
	SlotDuration       *int    `json:"slotDuration,omitempty"`
	Description        *string `json:"description,omitempty"`
	MaxSeatsPerBooking *int    `json:"maxSeatsPerBooking,omitempty"`
}

type RestaurantService struct {
	repo     domain.RestaurantRepository
	defaults models.Restaurant
	logger   *zerolog.Logger
}

func NewRestaurantService(repo domain.RestaurantRepository, defaults models.Restaurant, logger *zerolog.Logger) *RestaurantService {
	return &RestaurantService{repo: repo, defaults: defaults, logger: logger}
}

// Get returns the venue, creating it from the configured defaults on first use.
func (s *RestaurantService) Get(ctx context.Context) (*models.Restaurant, error) {
	defaults := s.defaults
	r, err := s.repo.EnsureRestaurant(ctx, &defaults)
	if err != nil {
		return nil, domain.Persistence(err, "failed to load restaurant")
	}
	return r, nil
}

func (s *RestaurantService) Update(ctx context.Context, upd RestaurantUpdate) (*models.Restaurant, error) {
	r, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		r.Name = *upd.Name
	}
	if upd.TotalSeats != nil {
		r.TotalSeats = *upd.TotalSeats
	}
	if upd.OpeningTime != nil {
		r.OpeningTime = *upd.OpeningTime
	}
	if upd.ClosingTime != nil {
		r.ClosingTime = *upd.ClosingTime
	}
	if upd.SlotDuration != nil {
		r.SlotDuration = *upd.SlotDuration
	}
	if upd.Description != nil {
		r.Description = *upd.Description
	}
	if upd.MaxSeatsPerBooking != nil {
		r.MaxSeatsPerBooking = *upd.MaxSeatsPerBooking
	}

	if r.Name == "" {
		return nil, domain.Validationf("Restaurant name is required")
	}
	if err := config.ValidateRestaurant(r); err != nil {
		return nil, errors.Mark(err, domain.ErrValidation)
	}

	if err := s.repo.SaveRestaurant(ctx, r); err != nil {
		return nil, domain.Persistence(err, "failed to save restaurant")
	}
	s.logger.Info().
		Str("name", r.Name).
		Int("total_seats", r.TotalSeats).
		Str("hours", r.OpeningTime+"-"+r.ClosingTime).
		Msg("restaurant updated")
	return r, nil
}

// TimeSlots lists the bookable slots for the stored opening hours.
func (s *RestaurantService) TimeSlots(ctx context.Context) ([]string, error) {
	r, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	seq, err := timeslot.ForRestaurant(r)
	if err != nil {
		return nil, err
	}
	return timeslot.Strings(seq), nil
}
