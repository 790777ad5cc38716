package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"seatbooking/internal/domain"
	"seatbooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet  = "Bookings"
	occupancySheet = "Occupancy"
	maxRangeDays   = 92
)

var bookingColumns = []string{
	"ID", "Date", "Time Slot", "Customer", "Email", "Phone", "Seats",
	"Selected Seats", "Status", "Arrival", "Preference", "Special Requests", "Created At",
}

// BookingSource lists bookings in an inclusive date range, any status.
type BookingSource interface {
	ListRange(ctx context.Context, from, to string) ([]*models.Booking, error)
}

// SlotSource lists the venue's bookable time slots.
type SlotSource interface {
	TimeSlots(ctx context.Context) ([]string, error)
}

// Exporter produces the manager spreadsheet for a date range.
type Exporter struct {
	bookings BookingSource
	slots    SlotSource
	dir      string
	logger   *zerolog.Logger
}

func NewExporter(bookings BookingSource, slots SlotSource, dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{bookings: bookings, slots: slots, dir: dir, logger: logger}
}

// Write streams the workbook for [from, to] to w.
func (e *Exporter) Write(ctx context.Context, w io.Writer, from, to string) error {
	f, err := e.Workbook(ctx, from, to)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// SaveFile writes the workbook into the export directory and returns its path.
func (e *Exporter) SaveFile(ctx context.Context, from, to string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}
	f, err := e.Workbook(ctx, from, to)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(e.dir, FileName(from, to))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	e.logger.Info().Str("file_path", filePath).Msg("bookings export created")
	return filePath, nil
}

func FileName(from, to string) string {
	return fmt.Sprintf("bookings_%s_to_%s.xlsx", from, to)
}

// Workbook builds the workbook for [from, to]; the caller closes it.
func (e *Exporter) Workbook(ctx context.Context, from, to string) (*excelize.File, error) {
	start, end, err := parseRange(from, to)
	if err != nil {
		return nil, err
	}
	bookings, err := e.bookings.ListRange(ctx, start.Format(models.DateLayout), end.Format(models.DateLayout))
	if err != nil {
		return nil, err
	}
	var slots []string
	if e.slots != nil {
		if slots, err = e.slots.TimeSlots(ctx); err != nil {
			return nil, err
		}
	}
	return Build(start, end, bookings, slots)
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(models.DateLayout, strings.TrimSpace(from))
	if err != nil {
		return time.Time{}, time.Time{}, domain.Validationf("invalid from date %q, expected YYYY-MM-DD", from)
	}
	end, err := time.Parse(models.DateLayout, strings.TrimSpace(to))
	if err != nil {
		return time.Time{}, time.Time{}, domain.Validationf("invalid to date %q, expected YYYY-MM-DD", to)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, domain.Validationf("from must not be after to")
	}
	if end.Sub(start) > maxRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, domain.Validationf("export range is limited to %d days", maxRangeDays)
	}
	return start, end, nil
}

// Build lays out the workbook: a flat booking list and an occupancy grid of
// confirmed and completed seats per slot and day.
func Build(start, end time.Time, bookings []*models.Booking, slots []string) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := writeBookings(f, bookings); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(occupancySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	if err := writeOccupancy(f, start, end, bookings, slots); err != nil {
		f.Close()
		return nil, err
	}

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func writeBookings(f *excelize.File, bookings []*models.Booking) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	cancelledStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#808080", Strike: true},
	})
	if err != nil {
		return err
	}

	for i, h := range bookingColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, h)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(bookingColumns))
	_ = f.SetCellStyle(bookingsSheet, "A1", lastCol+"1", headerStyle)

	for i, b := range bookings {
		row := i + 2
		values := []interface{}{
			b.ID,
			b.BookingDate,
			b.TimeSlot,
			b.CustomerName,
			b.CustomerEmail,
			b.CustomerPhone,
			b.NumberOfSeats,
			strings.Join(b.SelectedSeats, ", "),
			string(b.Status),
			b.Arrival.String(),
			string(b.NotificationPreference),
			b.SpecialRequests,
			b.CreatedAt.UTC().Format("2006-01-02 15:04"),
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(bookingsSheet, start, &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
		if b.Status == models.StatusCancelled {
			end, _ := excelize.CoordinatesToCellName(len(bookingColumns), row)
			_ = f.SetCellStyle(bookingsSheet, start, end, cancelledStyle)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 38)
	_ = f.SetColWidth(bookingsSheet, "B", lastCol, 16)
	_ = f.SetPanes(bookingsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return nil
}

func writeOccupancy(f *excelize.File, start, end time.Time, bookings []*models.Booking, slots []string) error {
	seats := make(map[string]int)
	slotSet := make(map[string]bool, len(slots))
	for _, s := range slots {
		slotSet[s] = true
	}
	for _, b := range bookings {
		if b.Status == models.StatusCancelled {
			continue
		}
		seats[b.BookingDate+"|"+b.TimeSlot] += b.NumberOfSeats
		// Keep slots that no longer match the configured hours.
		if !slotSet[b.TimeSlot] {
			slotSet[b.TimeSlot] = true
			slots = append(slots, b.TimeSlot)
		}
	}

	_ = f.SetCellValue(occupancySheet, "A1", fmt.Sprintf("Period: %s - %s",
		start.Format("02.01.2006"), end.Format("02.01.2006")))
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(occupancySheet, "A1", "A1", titleStyle)

	dateStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	slotStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	col := 2
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(occupancySheet, cell, day.Format("02.01"))
		_ = f.SetCellStyle(occupancySheet, cell, cell, dateStyle)

		date := day.Format(models.DateLayout)
		for i, slot := range slots {
			if n := seats[date+"|"+slot]; n > 0 {
				valueCell, _ := excelize.CoordinatesToCellName(col, i+3)
				_ = f.SetCellValue(occupancySheet, valueCell, n)
			}
		}
		col++
	}

	for i, slot := range slots {
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		_ = f.SetCellValue(occupancySheet, cell, slot)
		_ = f.SetCellStyle(occupancySheet, cell, cell, slotStyle)
	}

	lastCol, _ := excelize.ColumnNumberToName(col - 1)
	if col > 2 {
		_ = f.MergeCell(occupancySheet, "A1", lastCol+"1")
	}
	_ = f.SetColWidth(occupancySheet, "A", "A", 16)
	return nil
}
