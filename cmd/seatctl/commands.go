package main

import (
	"encoding/json"
	"fmt"
	"os"

	"seatbooking/internal/database"
	"seatbooking/internal/export"
	"seatbooking/internal/google"
	"seatbooking/internal/notify"
	"seatbooking/internal/scheduler"
	"seatbooking/internal/service"

	"github.com/spf13/cobra"
)

func newSlotsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "slots",
		Short: "List the bookable time slots for the stored opening hours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			slots, err := a.restaurants().TimeSlots(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range slots {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

func newSweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one reminder / time-alert / auto-cancel sweep and exit",
		Long: `Runs the same sweep the API server performs every scheduler interval.
Notifications go out through the channels enabled in the config.

Do not run it while an API server with the scheduler enabled is sweeping the
same database: the reminder and time-alert flags are set after the notice
is sent, so overlapping sweeps in two processes can notify a customer twice.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			notifier, alerter, _ := notify.FromConfig(a.cfg.Notifications, a.logger)
			sweeper := scheduler.NewSweeper(a.db, notifier, a.bus, a.cfg.Scheduler, a.logger)
			if alerter != nil {
				sweeper.SetAlerter(alerter)
			}

			res, err := sweeper.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var from, to, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export bookings in a date range to an Excel workbook",
		Example: `  seatctl export --from 2026-01-01 --to 2026-01-31
  seatctl export --from 2026-01-01 --to 2026-01-07 --out week.xlsx
  seatctl export --from 2026-01-01 --to 2026-01-07 --out - > week.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bookings := a.bookings()
			exporter := export.NewExporter(bookings, a.restaurants(), a.cfg.Exports.Path, a.logger)

			switch out {
			case "":
				path, err := exporter.SaveFile(cmd.Context(), from, to)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			case "-":
				return exporter.Write(cmd.Context(), cmd.OutOrStdout(), from, to)
			default:
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := exporter.Write(cmd.Context(), f, from, to); err != nil {
					_ = f.Close()
					_ = os.Remove(out)
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first booking date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last booking date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file; - for stdout, empty for the configured export directory")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newRestaurantCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restaurant",
		Short: "Show or change the restaurant settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored restaurant settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.restaurants().Get(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, r)
		},
	}

	var (
		upd      service.RestaurantUpdate
		name     string
		seats    int
		opening  string
		closing  string
		duration int
		desc     string
		maxSeats int
	)
	set := &cobra.Command{
		Use:     "set",
		Short:   "Update restaurant settings; only the given flags change",
		Example: "  seatctl restaurant set --seats 80 --slot-duration 90",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.LocalFlags()
			if flags.Changed("name") {
				upd.Name = &name
			}
			if flags.Changed("seats") {
				upd.TotalSeats = &seats
			}
			if flags.Changed("opening") {
				upd.OpeningTime = &opening
			}
			if flags.Changed("closing") {
				upd.ClosingTime = &closing
			}
			if flags.Changed("slot-duration") {
				upd.SlotDuration = &duration
			}
			if flags.Changed("description") {
				upd.Description = &desc
			}
			if flags.Changed("max-seats") {
				upd.MaxSeatsPerBooking = &maxSeats
			}
			if upd == (service.RestaurantUpdate{}) {
				return fmt.Errorf("nothing to update; pass at least one setting flag")
			}

			r, err := a.restaurants().Update(cmd.Context(), upd)
			if err != nil {
				return err
			}
			return printJSON(cmd, r)
		},
	}
	set.Flags().StringVar(&name, "name", "", "restaurant name")
	set.Flags().IntVar(&seats, "seats", 0, "total seats")
	set.Flags().StringVar(&opening, "opening", "", "opening time HH:MM")
	set.Flags().StringVar(&closing, "closing", "", "closing time HH:MM")
	set.Flags().IntVar(&duration, "slot-duration", 0, "slot length in minutes")
	set.Flags().StringVar(&desc, "description", "", "description")
	set.Flags().IntVar(&maxSeats, "max-seats", 0, "maximum seats per booking")

	cmd.AddCommand(show, set)
	return cmd
}

func newSheetsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Maintain the Google Sheets booking mirror",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "resync",
		Short: "Rewrite the Bookings sheet from the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.Google.Enabled() {
				return fmt.Errorf("google sheets is not configured")
			}
			sheets, err := google.NewSheetsService(cmd.Context(), a.cfg.Google.CredentialsFile, a.cfg.Google.BookingSpreadSheetID)
			if err != nil {
				return err
			}
			list, err := a.bookings().ListAll(cmd.Context())
			if err != nil {
				return err
			}
			if err := sheets.ReplaceBookingsSheet(cmd.Context(), list); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d bookings written\n", len(list))
			return nil
		},
	})
	return cmd
}

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the database into the backup directory now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := database.NewBackupService(a.db, a.cfg.Backup, a.logger).PerformBackup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
