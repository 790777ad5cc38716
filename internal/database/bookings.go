package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"seatbooking/internal/domain"
	"seatbooking/internal/models"
)

const bookingColumns = `id, customer_name, customer_email, customer_phone, booking_date, time_slot,
        booking_at, number_of_seats, selected_seats, status, reminder_sent, time_alert_sent,
        arrival_state, notification_preference, special_requests, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (db *DB) scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b                       models.Booking
		bookingAt               int64
		seatsJSON               string
		status, preference      string
		reminderSent, alertSent int
		arrival                 int
	)
	err := row.Scan(
		&b.ID, &b.CustomerName, &b.CustomerEmail, &b.CustomerPhone, &b.BookingDate, &b.TimeSlot,
		&bookingAt, &b.NumberOfSeats, &seatsJSON, &status, &reminderSent, &alertSent,
		&arrival, &preference, &b.SpecialRequests, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	b.BookingDateTime = time.Unix(bookingAt, 0).In(db.loc)
	b.Status = models.Status(status)
	b.NotificationPreference = models.NotificationPreference(preference)
	b.ReminderSent = reminderSent == 1
	b.TimeAlertSent = alertSent == 1
	b.Arrival = models.ArrivalState(arrival)
	if err := json.Unmarshal([]byte(seatsJSON), &b.SelectedSeats); err != nil {
		return nil, fmt.Errorf("failed to decode selected seats of %s: %w", b.ID, err)
	}
	return &b, nil
}

func (db *DB) queryBookings(ctx context.Context, q queryer, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := db.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

func (db *DB) getBooking(ctx context.Context, q queryer, id string) (*models.Booking, error) {
	row := q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := db.scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("Booking not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return db.getBooking(ctx, db.DB, id)
}

// CreateBooking inserts a confirmed booking. Capacity and seat claims are
// checked inside the same immediate transaction as the insert.
func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	seatsJSON, err := encodeSeats(b.SelectedSeats)
	if err != nil {
		return err
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		available, err := db.availableSeats(ctx, tx, b.BookingDate, b.TimeSlot, "")
		if err != nil {
			return err
		}
		if b.NumberOfSeats > available {
			return domain.CapacityError(max(available, 0))
		}
		if err := db.checkSeats(ctx, tx, b); err != nil {
			return err
		}

		now := db.now().UTC()
		_, err = tx.ExecContext(ctx, `INSERT INTO bookings (`+bookingColumns+`)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.CustomerName, b.CustomerEmail, b.CustomerPhone, b.BookingDate, b.TimeSlot,
			b.BookingDateTime.Unix(), b.NumberOfSeats, seatsJSON, string(b.Status),
			boolToInt(b.ReminderSent), boolToInt(b.TimeAlertSent), int(b.Arrival),
			string(b.NotificationPreference), b.SpecialRequests, now, now, 1,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.Conflictf("Booking %s already exists", b.ID)
			}
			return fmt.Errorf("failed to create booking: %w", err)
		}

		if b.Status == models.StatusConfirmed {
			if err := claimSeats(ctx, tx, b); err != nil {
				return err
			}
		}

		b.CreatedAt = now
		b.UpdatedAt = now
		b.Version = 1
		return nil
	})
}

// UpdateBooking writes the mutable fields of b guarded by its version.
func (db *DB) UpdateBooking(ctx context.Context, b *models.Booking, recheck bool) error {
	seatsJSON, err := encodeSeats(b.SelectedSeats)
	if err != nil {
		return err
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		if recheck && b.Status == models.StatusConfirmed {
			available, err := db.availableSeats(ctx, tx, b.BookingDate, b.TimeSlot, b.ID)
			if err != nil {
				return err
			}
			if b.NumberOfSeats > available {
				return domain.SlotCapacityError(max(available, 0))
			}
			if err := db.checkSeats(ctx, tx, b); err != nil {
				return err
			}
		}

		now := db.now().UTC()
		res, err := tx.ExecContext(ctx, `UPDATE bookings SET
                customer_name = ?, customer_email = ?, customer_phone = ?,
                booking_date = ?, time_slot = ?, booking_at = ?,
                number_of_seats = ?, selected_seats = ?,
                reminder_sent = ?, time_alert_sent = ?,
                notification_preference = ?, special_requests = ?,
                updated_at = ?, version = version + 1
            WHERE id = ? AND version = ?`,
			b.CustomerName, b.CustomerEmail, b.CustomerPhone,
			b.BookingDate, b.TimeSlot, b.BookingDateTime.Unix(),
			b.NumberOfSeats, seatsJSON,
			boolToInt(b.ReminderSent), boolToInt(b.TimeAlertSent),
			string(b.NotificationPreference), b.SpecialRequests,
			now, b.ID, b.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			if _, err := db.getBooking(ctx, tx, b.ID); err != nil {
				return err
			}
			return ErrConcurrentModification
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM booking_seats WHERE booking_id = ?`, b.ID); err != nil {
			return fmt.Errorf("failed to release seats: %w", err)
		}
		if b.Status == models.StatusConfirmed {
			if err := claimSeats(ctx, tx, b); err != nil {
				return err
			}
		}

		b.UpdatedAt = now
		b.Version++
		return nil
	})
}

func (db *DB) DeleteBooking(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM booking_seats WHERE booking_id = ?`, id); err != nil {
			return fmt.Errorf("failed to release seats: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete booking: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return domain.NotFoundf("Booking not found")
		}
		return nil
	})
}

// ApplyTransition moves a booking along the lifecycle table. It reports
// whether anything changed; repeating an idempotent transition is a no-op.
func (db *DB) ApplyTransition(ctx context.Context, id string, event models.Event) (*models.Booking, bool, error) {
	var (
		result  *models.Booking
		changed bool
	)
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		b, err := db.getBooking(ctx, tx, id)
		if err != nil {
			return err
		}

		tr, ok := models.TransitionFor(b.Status, event)
		if !ok || !tr.Allows(b) {
			return domain.Conflictf("Cannot %s a booking that is %s", event, b.Status)
		}

		before := *b
		tr.Apply(b)
		if b.Status == before.Status && b.Arrival == before.Arrival {
			result = b
			return nil
		}

		now := db.now().UTC()
		res, err := tx.ExecContext(ctx, `UPDATE bookings
            SET status = ?, arrival_state = ?, updated_at = ?, version = version + 1
            WHERE id = ? AND version = ?`,
			string(b.Status), int(b.Arrival), now, b.ID, b.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to update booking status: %w", err)
		}
		if rows, err := res.RowsAffected(); err != nil || rows == 0 {
			return ErrConcurrentModification
		}

		if b.Status != models.StatusConfirmed {
			if _, err := tx.ExecContext(ctx, `DELETE FROM booking_seats WHERE booking_id = ?`, b.ID); err != nil {
				return fmt.Errorf("failed to release seats: %w", err)
			}
		}

		b.UpdatedAt = now
		b.Version++
		result = b
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, changed, nil
}

// MarkNotified flips the sent flag for kind on a confirmed booking if it is
// still unset, so overlapping sweeps cannot both record the same send.
func (db *DB) MarkNotified(ctx context.Context, id string, kind models.NotificationKind) (bool, error) {
	var column string
	switch kind {
	case models.NotifyReminder:
		column = "reminder_sent"
	case models.NotifyTimeAlert:
		column = "time_alert_sent"
	default:
		return false, fmt.Errorf("notification kind %q has no sent flag", kind)
	}

	query := fmt.Sprintf(`UPDATE bookings SET %[1]s = 1, updated_at = ?, version = version + 1
        WHERE id = ? AND %[1]s = 0 AND status = ?`, column)
	res, err := db.ExecContext(ctx, query, db.now().UTC(), id, string(models.StatusConfirmed))
	if err != nil {
		return false, fmt.Errorf("failed to mark %s: %w", kind, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (db *DB) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return db.queryBookings(ctx, db.DB, `SELECT `+bookingColumns+` FROM bookings
        ORDER BY booking_date ASC, time_slot ASC, created_at ASC`)
}

// ListBookingsByDate returns the non-cancelled bookings of a day in slot order.
func (db *DB) ListBookingsByDate(ctx context.Context, date string) ([]*models.Booking, error) {
	return db.queryBookings(ctx, db.DB, `SELECT `+bookingColumns+` FROM bookings
        WHERE booking_date = ? AND status != ?
        ORDER BY time_slot ASC, created_at ASC`, date, string(models.StatusCancelled))
}

func (db *DB) ListBookingsByDateRange(ctx context.Context, from, to string) ([]*models.Booking, error) {
	return db.queryBookings(ctx, db.DB, `SELECT `+bookingColumns+` FROM bookings
        WHERE booking_date BETWEEN ? AND ?
        ORDER BY booking_date ASC, time_slot ASC, created_at ASC`, from, to)
}

// ListConfirmedBetween returns confirmed bookings starting within [from, to].
func (db *DB) ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	return db.queryBookings(ctx, db.DB, `SELECT `+bookingColumns+` FROM bookings
        WHERE status = ? AND booking_at BETWEEN ? AND ?
        ORDER BY booking_at ASC`, string(models.StatusConfirmed), from.Unix(), to.Unix())
}

func (db *DB) GetBookedSeats(ctx context.Context, date, timeSlot string) (int, error) {
	return bookedSeats(ctx, db.DB, date, timeSlot, "")
}

// GetOccupiedSeats lists the seat ids claimed by confirmed bookings.
func (db *DB) GetOccupiedSeats(ctx context.Context, date, timeSlot string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT seat_id FROM booking_seats
        WHERE booking_date = ? AND time_slot = ? ORDER BY seat_id`, date, timeSlot)
	if err != nil {
		return nil, fmt.Errorf("failed to get occupied seats: %w", err)
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

func bookedSeats(ctx context.Context, q queryer, date, timeSlot, excludeID string) (int, error) {
	var booked int
	err := q.QueryRowContext(ctx, `SELECT COALESCE(SUM(number_of_seats), 0) FROM bookings
        WHERE booking_date = ? AND time_slot = ? AND status = ? AND id != ?`,
		date, timeSlot, string(models.StatusConfirmed), excludeID,
	).Scan(&booked)
	if err != nil {
		return 0, fmt.Errorf("failed to sum booked seats: %w", err)
	}
	return booked, nil
}

func (db *DB) availableSeats(ctx context.Context, q queryer, date, timeSlot, excludeID string) (int, error) {
	total, err := totalSeats(ctx, q)
	if err != nil {
		return 0, err
	}
	booked, err := bookedSeats(ctx, q, date, timeSlot, excludeID)
	if err != nil {
		return 0, err
	}
	return total - booked, nil
}

// checkSeats rejects selected seats that are under maintenance or already
// claimed by another booking for the same date and slot.
func (db *DB) checkSeats(ctx context.Context, tx *sql.Tx, b *models.Booking) error {
	if len(b.SelectedSeats) == 0 {
		return nil
	}
	args := stringArgs(b.SelectedSeats)

	var seat string
	err := tx.QueryRowContext(ctx, `SELECT seat_id FROM seat_maintenance
        WHERE is_active = 1 AND seat_id IN (`+placeholders(len(args))+`) LIMIT 1`, args...).Scan(&seat)
	switch {
	case err == nil:
		return domain.Conflictf("Seat %s is under maintenance", seat)
	case err != sql.ErrNoRows:
		return fmt.Errorf("failed to check maintenance seats: %w", err)
	}

	claimArgs := append([]interface{}{b.BookingDate, b.TimeSlot, b.ID}, args...)
	err = tx.QueryRowContext(ctx, `SELECT seat_id FROM booking_seats
        WHERE booking_date = ? AND time_slot = ? AND booking_id != ?
        AND seat_id IN (`+placeholders(len(args))+`) LIMIT 1`, claimArgs...).Scan(&seat)
	switch {
	case err == nil:
		return domain.Conflictf("Seat %s is already booked for this time slot", seat)
	case err != sql.ErrNoRows:
		return fmt.Errorf("failed to check claimed seats: %w", err)
	}
	return nil
}

func claimSeats(ctx context.Context, tx *sql.Tx, b *models.Booking) error {
	for _, seat := range b.SelectedSeats {
		_, err := tx.ExecContext(ctx, `INSERT INTO booking_seats (booking_id, booking_date, time_slot, seat_id)
            VALUES (?, ?, ?, ?)`, b.ID, b.BookingDate, b.TimeSlot, seat)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.Conflictf("Seat %s is already booked for this time slot", seat)
			}
			return fmt.Errorf("failed to claim seat %s: %w", seat, err)
		}
	}
	return nil
}

func encodeSeats(seats []string) (string, error) {
	if seats == nil {
		seats = []string{}
	}
	data, err := json.Marshal(seats)
	if err != nil {
		return "", fmt.Errorf("failed to encode selected seats: %w", err)
	}
	return string(data), nil
}
