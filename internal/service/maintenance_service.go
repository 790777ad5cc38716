package service

import (
	"context"
	"strings"
	"time"

	"seatbooking/internal/domain"
	"seatbooking/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type MaintenanceInput struct {
	SeatID   string     `json:"seatId"`
	Reason   string     `json:"reason,omitempty"`
	MarkedBy string     `json:"markedBy"`
	EndDate  *time.Time `json:"endDate,omitempty"`
}

type MaintenanceService struct {
	repo   domain.MaintenanceRepository
	now    func() time.Time
	logger *zerolog.Logger
}

func NewMaintenanceService(repo domain.MaintenanceRepository, logger *zerolog.Logger) *MaintenanceService {
	return &MaintenanceService{repo: repo, now: time.Now, logger: logger}
}

// Mark takes a seat out of service.
func (s *MaintenanceService) Mark(ctx context.Context, in MaintenanceInput) (*models.SeatMaintenance, error) {
	seatID := strings.TrimSpace(in.SeatID)
	markedBy := strings.TrimSpace(in.MarkedBy)
	if seatID == "" || markedBy == "" {
		return nil, domain.Validationf("Seat ID and manager email are required")
	}
	if !validSeatID(seatID) {
		return nil, domain.Validationf("Invalid seat ID %q, expected floor-T<table>-S<seat>", seatID)
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = models.DefaultMaintenanceReason
	}
	start := s.now()
	if in.EndDate != nil && !in.EndDate.After(start) {
		return nil, domain.Validationf("endDate must be in the future")
	}

	m := &models.SeatMaintenance{
		ID:        uuid.NewString(),
		SeatID:    seatID,
		Reason:    reason,
		MarkedBy:  markedBy,
		StartDate: start,
		EndDate:   in.EndDate,
	}
	if err := s.repo.CreateMaintenance(ctx, m); err != nil {
		return nil, domain.Persistence(err, "failed to mark seat maintenance")
	}
	s.logger.Info().Str("seat_id", seatID).Str("marked_by", markedBy).Str("reason", reason).Msg("seat marked for maintenance")
	return m, nil
}

func (s *MaintenanceService) Remove(ctx context.Context, id string) error {
	id, err := parseID(id, "maintenance")
	if err != nil {
		return err
	}
	if err := s.repo.DeactivateMaintenance(ctx, id); err != nil {
		return domain.Persistence(err, "failed to remove seat maintenance")
	}
	s.logger.Info().Str("maintenance_id", id).Msg("seat removed from maintenance")
	return nil
}

// BulkRemove ends maintenance for the given seats and returns how many
// records were deactivated.
func (s *MaintenanceService) BulkRemove(ctx context.Context, seatIDs []string) (int64, error) {
	clean := make([]string, 0, len(seatIDs))
	for _, id := range seatIDs {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return 0, domain.Validationf("seatIds are required")
	}
	n, err := s.repo.DeactivateMaintenanceBySeats(ctx, clean)
	if err != nil {
		return 0, domain.Persistence(err, "failed to bulk remove maintenance")
	}
	s.logger.Info().Int64("count", n).Msg("seats removed from maintenance")
	return n, nil
}

func (s *MaintenanceService) ActiveSeatIDs(ctx context.Context) ([]string, error) {
	ids, err := s.repo.GetActiveMaintenanceSeatIDs(ctx)
	return ids, domain.Persistence(err, "failed to list maintenance seats")
}

// ListRecords returns the full history, newest first.
func (s *MaintenanceService) ListRecords(ctx context.Context) ([]*models.SeatMaintenance, error) {
	records, err := s.repo.ListMaintenance(ctx)
	return records, domain.Persistence(err, "failed to list maintenance records")
}
