package api

import (
	"context"
	"strings"

	"seatbooking/internal/domain"
	"seatbooking/internal/service"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type AvailabilityService struct {
	bookings    *service.BookingService
	restaurants *service.RestaurantService
}

func NewAvailabilityService(bookings *service.BookingService, restaurants *service.RestaurantService) *AvailabilityService {
	return &AvailabilityService{bookings: bookings, restaurants: restaurants}
}

func (s *AvailabilityService) CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	date, slot, err := dateAndSlot(req)
	if err != nil {
		return nil, err
	}

	a, err := s.bookings.CheckAvailability(ctx, date, slot)
	if err != nil {
		return nil, grpcError(err)
	}

	return structpb.NewStruct(map[string]any{
		"date":           a.Date,
		"timeSlot":       a.TimeSlot,
		"availableSeats": a.AvailableSeats,
		"totalSeats":     a.TotalSeats,
		"bookedSeats":    a.BookedSeats,
	})
}

func (s *AvailabilityService) ListTimeSlots(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	slots, err := s.restaurants.TimeSlots(ctx)
	if err != nil {
		return nil, grpcError(err)
	}
	return structpb.NewStruct(map[string]any{"timeSlots": toAnyList(slots)})
}

func (s *AvailabilityService) ListOccupiedSeats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	date, slot, err := dateAndSlot(req)
	if err != nil {
		return nil, err
	}

	seats, err := s.bookings.ListOccupiedSeats(ctx, date, slot)
	if err != nil {
		return nil, grpcError(err)
	}
	return structpb.NewStruct(map[string]any{"occupiedSeats": toAnyList(seats)})
}

func dateAndSlot(req *structpb.Struct) (string, string, error) {
	fields := req.GetFields()
	date := strings.TrimSpace(fields["date"].GetStringValue())
	slot := strings.TrimSpace(fields["timeSlot"].GetStringValue())
	if date == "" || slot == "" {
		return "", "", status.Error(codes.InvalidArgument, "Date and timeSlot are required")
	}
	return date, slot, nil
}

func toAnyList(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// grpcError maps the error taxonomy onto gRPC status codes.
func grpcError(err error) error {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindCapacity, domain.KindInvalidID:
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case domain.KindConflict:
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
