package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"seatbooking/internal/config"
	"seatbooking/internal/database"
	"seatbooking/internal/events"
	"seatbooking/internal/logging"
	"seatbooking/internal/service"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs once the config is loaded.
type app struct {
	configPath string

	cfg    *config.Config
	logger *zerolog.Logger
	closer io.Closer
	loc    *time.Location
	db     *database.DB
	bus    *events.EventBus
}

// newRootCmd builds the command tree. The caller closes the returned app
// after Execute.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "seatctl",
		Short: "Administer the seat booking service",
		Long: `seatctl works directly against the booking database configured for the
API server. Use it to inspect time slots, run a sweep by hand, export
bookings to Excel and change the restaurant settings.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open()
		},
	}

	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "configs/config.yaml"
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", defaultPath, "config file")

	root.AddCommand(
		newSlotsCmd(a),
		newSweepCmd(a),
		newExportCmd(a),
		newRestaurantCmd(a),
		newSheetsCmd(a),
		newBackupCmd(a),
	)
	return root, a
}

func (a *app) open() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	l := logger.With().Str("component", "seatctl").Logger()
	a.logger, a.closer = &l, closer

	if a.loc, err = cfg.App.Location(); err != nil {
		return err
	}

	a.db, err = database.NewDB(cfg.Database.Path, a.logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.db.SetLocation(a.loc)
	a.bus = events.NewEventBus(a.logger)
	return nil
}

func (a *app) close() error {
	var firstErr error
	if a.db != nil {
		firstErr = a.db.Close()
		a.db = nil
	}
	if a.closer != nil {
		if err := a.closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.closer = nil
	}
	return firstErr
}

func (a *app) restaurants() *service.RestaurantService {
	return service.NewRestaurantService(a.db, a.cfg.Restaurant, a.logger)
}

func (a *app) bookings() *service.BookingService {
	return service.NewBookingService(a.db, a.restaurants(), nil, a.bus, a.loc, a.cfg.Booking.MaxAdvanceDays, a.logger)
}
