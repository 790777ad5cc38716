package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"seatbooking/internal/domain"
)

var ErrConcurrentModification = errors.Mark(errors.New("booking was modified concurrently, please retry"), domain.ErrConflict)

type DB struct {
	*sql.DB
	path   string
	loc    *time.Location
	now    func() time.Time
	logger *zerolog.Logger
}

// NewDB opens (creating if needed) the SQLite database at path and applies
// the schema. Writers are serialized through a single connection and
// immediate transactions, so capacity checks and inserts happen atomically.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	logger.Info().Str("path", path).Msg("database initialized")

	return &DB{
		DB:     sqlDB,
		path:   path,
		loc:    time.Local,
		now:    time.Now,
		logger: logger,
	}, nil
}

// SetLocation sets the venue timezone used to rebuild booking instants.
func (db *DB) SetLocation(loc *time.Location) {
	if loc != nil {
		db.loc = loc
	}
}

// SetClock overrides the time source used for audit columns.
func (db *DB) SetClock(now func() time.Time) {
	if now != nil {
		db.now = now
	}
}

func (db *DB) Path() string {
	return db.path
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS restaurant (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            name TEXT NOT NULL,
            total_seats INTEGER NOT NULL CHECK (total_seats >= 1),
            opening_time TEXT NOT NULL,
            closing_time TEXT NOT NULL,
            slot_duration INTEGER NOT NULL CHECK (slot_duration > 0),
            description TEXT NOT NULL DEFAULT '',
            max_seats_per_booking INTEGER NOT NULL DEFAULT 100,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            customer_name TEXT NOT NULL,
            customer_email TEXT NOT NULL,
            customer_phone TEXT NOT NULL,
            booking_date TEXT NOT NULL,
            time_slot TEXT NOT NULL,
            booking_at INTEGER NOT NULL,
            number_of_seats INTEGER NOT NULL CHECK (number_of_seats >= 1),
            selected_seats TEXT NOT NULL DEFAULT '[]',
            status TEXT NOT NULL DEFAULT 'confirmed',
            reminder_sent INTEGER NOT NULL DEFAULT 0,
            time_alert_sent INTEGER NOT NULL DEFAULT 0,
            arrival_state INTEGER NOT NULL DEFAULT 0,
            notification_preference TEXT NOT NULL DEFAULT 'both',
            special_requests TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		// One row per claimed seat of a confirmed booking.
		`CREATE TABLE IF NOT EXISTS booking_seats (
            booking_id TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
            booking_date TEXT NOT NULL,
            time_slot TEXT NOT NULL,
            seat_id TEXT NOT NULL,
            UNIQUE (booking_date, time_slot, seat_id)
        )`,
		`CREATE TABLE IF NOT EXISTS seat_maintenance (
            id TEXT PRIMARY KEY,
            seat_id TEXT NOT NULL,
            reason TEXT NOT NULL,
            marked_by TEXT NOT NULL,
            start_date DATETIME NOT NULL,
            end_date DATETIME,
            is_active INTEGER NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            booking_id TEXT NOT NULL,
            payload TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME NOT NULL,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_date_slot ON bookings(booking_date, time_slot, status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status_at ON bookings(status, booking_at)`,
		`CREATE INDEX IF NOT EXISTS idx_booking_seats_booking ON booking_seats(booking_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_seat_maintenance_active ON seat_maintenance(seat_id) WHERE is_active = 1`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status, next_retry_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction and commits when it returns nil.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
