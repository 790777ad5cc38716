package bot

import (
	"fmt"
	"sort"
	"strings"

	"seatbooking/internal/models"
	"seatbooking/internal/scheduler"
)

func statusIcon(s models.Status) string {
	switch s {
	case models.StatusConfirmed:
		return "🟢"
	case models.StatusCancelled:
		return "🔴"
	case models.StatusCompleted:
		return "✔️"
	}
	return "•"
}

func formatBooking(b *models.Booking) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s\n", statusIcon(b.Status), b.BookingDate, b.TimeSlot)
	fmt.Fprintf(&sb, "%s, %d seat(s)\n", b.CustomerName, b.NumberOfSeats)
	if len(b.SelectedSeats) > 0 {
		fmt.Fprintf(&sb, "Seats: %s\n", strings.Join(b.SelectedSeats, ", "))
	}
	fmt.Fprintf(&sb, "Phone: %s\n", b.CustomerPhone)
	fmt.Fprintf(&sb, "Status: %s, arrival: %s\n", b.Status, b.Arrival)
	if b.SpecialRequests != "" {
		fmt.Fprintf(&sb, "Requests: %s\n", b.SpecialRequests)
	}
	fmt.Fprintf(&sb, "ID: %s", b.ID)
	return sb.String()
}

// formatBookingList groups a day's bookings by slot, in slot order.
func formatBookingList(date string, list []*models.Booking) string {
	if len(list) == 0 {
		return fmt.Sprintf("📅 %s\n\nNo bookings.", date)
	}

	sorted := append([]*models.Booking(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimeSlot < sorted[j].TimeSlot
	})

	active, seats := 0, 0
	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 %s\n", date)
	slot := ""
	for _, b := range sorted {
		if b.TimeSlot != slot {
			slot = b.TimeSlot
			fmt.Fprintf(&sb, "\n⏰ %s\n", slot)
		}
		fmt.Fprintf(&sb, "%s %s, %d seat(s), %s\n   %s\n", statusIcon(b.Status), b.CustomerName, b.NumberOfSeats, b.CustomerPhone, b.ID)
		if b.IsActive() {
			active++
			seats += b.NumberOfSeats
		}
	}
	fmt.Fprintf(&sb, "\nActive: %d booking(s), %d seat(s)", active, seats)
	return sb.String()
}

func formatAvailability(a *models.Availability) string {
	return fmt.Sprintf("🪑 %s %s\nAvailable: %d of %d\nBooked: %d",
		a.Date, a.TimeSlot, a.AvailableSeats, a.TotalSeats, a.BookedSeats)
}

func formatSweep(r scheduler.Result) string {
	if r.Skipped {
		return "⏳ A sweep is already running."
	}
	return fmt.Sprintf("🧹 Sweep done\nScanned: %d\nReminders: %d\nTime alerts: %d\nAuto-cancelled: %d\nFailed: %d",
		r.Scanned, r.Reminders, r.TimeAlerts, r.AutoCancelled, r.Failed)
}
