package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"seatbooking/internal/domain"
	"seatbooking/internal/export"
	"seatbooking/internal/models"
	"seatbooking/internal/service"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleGetRestaurant(w http.ResponseWriter, r *http.Request) {
	rest, err := s.svc.Restaurants.Get(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"restaurant": rest})
}

func (s *HTTPServer) handleUpdateRestaurant(w http.ResponseWriter, r *http.Request) {
	var upd service.RestaurantUpdate
	if err := decodeJSON(r, &upd); err != nil {
		s.respondError(w, r, err)
		return
	}
	rest, err := s.svc.Restaurants.Update(r.Context(), upd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{
		"message":    "Restaurant settings updated successfully",
		"restaurant": rest,
	})
}

func (s *HTTPServer) handleTimeSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.svc.Restaurants.TimeSlots(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"timeSlots": slots})
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Bookings.ListAll(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"bookings": nonNil(list)})
}

func (s *HTTPServer) handleBookingsByDate(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Bookings.ListByDate(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"bookings": nonNil(list)})
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var in service.BookingInput
	if err := decodeJSON(r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	b, err := s.svc.Bookings.Create(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, map[string]any{
		"message": "Booking created successfully",
		"booking": b,
	})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Bookings.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"booking": b})
}

func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	var upd service.BookingUpdate
	if err := decodeJSON(r, &upd); err != nil {
		s.respondError(w, r, err)
		return
	}
	b, err := s.svc.Bookings.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{
		"message": "Booking updated successfully",
		"booking": b,
	})
}

func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Bookings.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"message": "Booking deleted successfully"})
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.svc.Bookings.Cancel, "Booking cancelled successfully")
}

func (s *HTTPServer) handleArrivalYes(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.svc.Bookings.ArrivalYes, "Arrival confirmed")
}

func (s *HTTPServer) handleArrivalNo(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.svc.Bookings.ArrivalNo, "Booking cancelled as customer will not arrive")
}

func (s *HTTPServer) handleComplete(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.svc.Bookings.Complete, "Booking completed")
}

func (s *HTTPServer) transition(w http.ResponseWriter, r *http.Request,
	apply func(context.Context, string) (*models.Booking, error), message string) {
	b, err := apply(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"message": message, "booking": b})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, slot := strings.TrimSpace(q.Get("date")), strings.TrimSpace(q.Get("timeSlot"))
	if date == "" || slot == "" {
		s.respondError(w, r, domain.Validationf("Date and timeSlot are required"))
		return
	}
	a, err := s.svc.Bookings.CheckAvailability(r.Context(), date, slot)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{
		"availableSeats": a.AvailableSeats,
		"totalSeats":     a.TotalSeats,
		"bookedSeats":    a.BookedSeats,
	})
}

func (s *HTTPServer) handleOccupiedSeats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, slot := strings.TrimSpace(q.Get("date")), strings.TrimSpace(q.Get("timeSlot"))
	if date == "" || slot == "" {
		s.respondError(w, r, domain.Validationf("Date and timeSlot are required"))
		return
	}
	seats, err := s.svc.Bookings.ListOccupiedSeats(r.Context(), date, slot)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"occupiedSeats": nonNil(seats)})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.svc.Exporter == nil {
		s.respondError(w, r, domain.NotFoundf("Export is not configured"))
		return
	}
	q := r.URL.Query()
	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from == "" || to == "" {
		s.respondError(w, r, domain.Validationf("from and to are required"))
		return
	}

	// Build before writing headers so validation errors still get a JSON body.
	f, err := s.svc.Exporter.Workbook(r.Context(), from, to)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(from, to)))
	if _, err := f.WriteTo(w); err != nil {
		s.logger.Error().Err(err).Msg("failed to stream export")
	}
}

func (s *HTTPServer) handleMaintenanceSeats(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.Maintenance.ActiveSeatIDs(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"maintenanceSeats": nonNil(ids)})
}

func (s *HTTPServer) handleMaintenanceRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.Maintenance.ListRecords(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"records": nonNil(records)})
}

func (s *HTTPServer) handleMarkMaintenance(w http.ResponseWriter, r *http.Request) {
	var in service.MaintenanceInput
	if err := decodeJSON(r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	m, err := s.svc.Maintenance.Mark(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, map[string]any{"maintenance": m})
}

func (s *HTTPServer) handleRemoveMaintenance(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Maintenance.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"message": "Seat removed from maintenance"})
}

func (s *HTTPServer) handleBulkRemoveMaintenance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SeatIDs []string `json:"seatIds"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}
	n, err := s.svc.Maintenance.BulkRemove(r.Context(), body.SeatIDs)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"message": "Seats removed from maintenance", "removed": n})
}

type slotLockRequest struct {
	BookingDate string `json:"bookingDate"`
	TimeSlot    string `json:"timeSlot"`
	UserToken   string `json:"userToken"`
}

func (s *HTTPServer) handleLockSlot(w http.ResponseWriter, r *http.Request) {
	var req slotLockRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	lock, err := s.svc.Locks.Lock(r.Context(), req.BookingDate, req.TimeSlot, req.UserToken)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{
		"message":   fmt.Sprintf("Slot locked for %d minutes", int(s.svc.Locks.TTL().Minutes())),
		"expiresAt": lock.ExpiresAt,
	})
}

func (s *HTTPServer) handleReleaseSlot(w http.ResponseWriter, r *http.Request) {
	var req slotLockRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.svc.Locks.Release(r.Context(), req.BookingDate, req.TimeSlot, req.UserToken); err != nil {
		s.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil)
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
