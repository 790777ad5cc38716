package database

import (
	"context"
	"database/sql"
	"fmt"

	"seatbooking/internal/domain"
	"seatbooking/internal/models"
)

const restaurantColumns = `name, total_seats, opening_time, closing_time, slot_duration,
        description, max_seats_per_booking, created_at, updated_at`

func scanRestaurant(row rowScanner) (*models.Restaurant, error) {
	var r models.Restaurant
	err := row.Scan(&r.Name, &r.TotalSeats, &r.OpeningTime, &r.ClosingTime, &r.SlotDuration,
		&r.Description, &r.MaxSeatsPerBooking, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (db *DB) GetRestaurant(ctx context.Context) (*models.Restaurant, error) {
	row := db.QueryRowContext(ctx, `SELECT `+restaurantColumns+` FROM restaurant WHERE id = 1`)
	r, err := scanRestaurant(row)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("Restaurant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}
	return r, nil
}

func (db *DB) EnsureRestaurant(ctx context.Context, defaults *models.Restaurant) (*models.Restaurant, error) {
	var result *models.Restaurant
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		now := db.now().UTC()
		_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO restaurant (id, `+restaurantColumns+`)
            VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			defaults.Name, defaults.TotalSeats, defaults.OpeningTime, defaults.ClosingTime,
			defaults.SlotDuration, defaults.Description, defaults.MaxSeatsPerBooking, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to create restaurant: %w", err)
		}
		r, err := scanRestaurant(tx.QueryRowContext(ctx, `SELECT `+restaurantColumns+` FROM restaurant WHERE id = 1`))
		if err != nil {
			return fmt.Errorf("failed to read restaurant: %w", err)
		}
		result = r
		return nil
	})
	return result, err
}

func (db *DB) SaveRestaurant(ctx context.Context, r *models.Restaurant) error {
	now := db.now().UTC()
	_, err := db.ExecContext(ctx, `INSERT INTO restaurant (id, `+restaurantColumns+`)
        VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            total_seats = excluded.total_seats,
            opening_time = excluded.opening_time,
            closing_time = excluded.closing_time,
            slot_duration = excluded.slot_duration,
            description = excluded.description,
            max_seats_per_booking = excluded.max_seats_per_booking,
            updated_at = excluded.updated_at`,
		r.Name, r.TotalSeats, r.OpeningTime, r.ClosingTime, r.SlotDuration,
		r.Description, r.MaxSeatsPerBooking, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save restaurant: %w", err)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	return nil
}

// totalSeats is the venue capacity, or the default when none is configured.
func totalSeats(ctx context.Context, q queryer) (int, error) {
	var total int
	err := q.QueryRowContext(ctx, `SELECT total_seats FROM restaurant WHERE id = 1`).Scan(&total)
	if err == sql.ErrNoRows {
		return models.DefaultTotalSeats, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read total seats: %w", err)
	}
	return total, nil
}
