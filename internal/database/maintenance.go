package database

import (
	"context"
	"database/sql"
	"fmt"

	"seatbooking/internal/domain"
	"seatbooking/internal/models"
)

const maintenanceColumns = `id, seat_id, reason, marked_by, start_date, end_date, is_active, created_at, updated_at`

func scanMaintenance(row rowScanner) (*models.SeatMaintenance, error) {
	var (
		m       models.SeatMaintenance
		endDate sql.NullTime
		active  int
	)
	if err := row.Scan(&m.ID, &m.SeatID, &m.Reason, &m.MarkedBy, &m.StartDate, &endDate, &active, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if endDate.Valid {
		t := endDate.Time
		m.EndDate = &t
	}
	m.IsActive = active == 1
	return &m, nil
}

// CreateMaintenance records a seat as out of service. Only one active record
// per seat may exist.
func (db *DB) CreateMaintenance(ctx context.Context, m *models.SeatMaintenance) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM seat_maintenance WHERE seat_id = ? AND is_active = 1`, m.SeatID).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check seat maintenance: %w", err)
		}
		if count > 0 {
			return domain.Validationf("Seat is already under maintenance")
		}

		now := db.now().UTC()
		_, err = tx.ExecContext(ctx, `INSERT INTO seat_maintenance (`+maintenanceColumns+`)
            VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			m.ID, m.SeatID, m.Reason, m.MarkedBy, m.StartDate.UTC(), m.EndDate, now, now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.Validationf("Seat is already under maintenance")
			}
			return fmt.Errorf("failed to create seat maintenance: %w", err)
		}
		m.IsActive = true
		m.CreatedAt = now
		m.UpdatedAt = now
		return nil
	})
}

// DeactivateMaintenance ends a maintenance record. Ending an already inactive
// record is a no-op.
func (db *DB) DeactivateMaintenance(ctx context.Context, id string) error {
	now := db.now().UTC()
	res, err := db.ExecContext(ctx, `UPDATE seat_maintenance SET is_active = 0, end_date = ?, updated_at = ?
        WHERE id = ? AND is_active = 1`, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate maintenance: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM seat_maintenance WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return domain.NotFoundf("Maintenance record not found")
	}
	if err != nil {
		return fmt.Errorf("failed to look up maintenance: %w", err)
	}
	return nil
}

func (db *DB) DeactivateMaintenanceBySeats(ctx context.Context, seatIDs []string) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	now := db.now().UTC()
	args := append([]interface{}{now, now}, stringArgs(seatIDs)...)
	res, err := db.ExecContext(ctx, `UPDATE seat_maintenance SET is_active = 0, end_date = ?, updated_at = ?
        WHERE is_active = 1 AND seat_id IN (`+placeholders(len(seatIDs))+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk deactivate maintenance: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func (db *DB) GetActiveMaintenanceSeatIDs(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT seat_id FROM seat_maintenance WHERE is_active = 1 ORDER BY seat_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get maintenance seats: %w", err)
	}
	defer rows.Close()

	seats := make([]string, 0)
	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			return nil, fmt.Errorf("failed to scan seat: %w", err)
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

// ListMaintenance returns every record, newest first.
func (db *DB) ListMaintenance(ctx context.Context) ([]*models.SeatMaintenance, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+maintenanceColumns+` FROM seat_maintenance ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance: %w", err)
	}
	defer rows.Close()

	records := make([]*models.SeatMaintenance, 0)
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan maintenance: %w", err)
		}
		records = append(records, m)
	}
	return records, rows.Err()
}
