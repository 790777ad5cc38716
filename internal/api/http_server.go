package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"seatbooking/internal/config"
	"seatbooking/internal/export"
	"seatbooking/internal/metrics"
	"seatbooking/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("seatbooking/internal/api")

// Services are the application services the transports expose.
type Services struct {
	Restaurants *service.RestaurantService
	Bookings    *service.BookingService
	Maintenance *service.MaintenanceService
	Locks       *service.SlotLockService
	Exporter    *export.Exporter
}

// HTTPServer exposes the booking API over JSON/HTTP.
type HTTPServer struct {
	cfg        *config.APIConfig
	svc        Services
	auth       *Authenticator
	production bool
	server     *http.Server
	logger     zerolog.Logger
}

func NewHTTPServer(cfg *config.APIConfig, svc Services, auth *Authenticator, production bool, logger *zerolog.Logger) *HTTPServer {
	if auth == nil {
		auth = NewAuthenticator(cfg)
	}
	s := &HTTPServer{
		cfg:        cfg,
		svc:        svc,
		auth:       auth,
		production: production,
		logger:     logger.With().Str("component", "http").Logger(),
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler returns the root handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(traceRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		ok(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	read := s.auth.Require(PermReadAvailability)
	readBookings := s.auth.Require(PermReadBookings)
	write := s.auth.Require(PermWriteBookings)
	manage := s.auth.Require(PermManage)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Route("/restaurant", func(r chi.Router) {
			r.With(read).Get("/", s.handleGetRestaurant)
			r.With(manage).Put("/", s.handleUpdateRestaurant)
			r.With(read).Get("/timeslots", s.handleTimeSlots)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.With(manage).Get("/", s.handleListBookings)
			r.With(write).Post("/", s.handleCreateBooking)
			r.With(read).Get("/availability", s.handleAvailability)
			r.With(read).Get("/occupied", s.handleOccupiedSeats)
			r.With(manage).Get("/date/{date}", s.handleBookingsByDate)
			r.With(manage).Get("/export", s.handleExport)
			r.With(readBookings).Get("/{id}", s.handleGetBooking)
			r.With(manage).Put("/{id}", s.handleUpdateBooking)
			r.With(manage).Delete("/{id}", s.handleDeleteBooking)
			r.With(write).Patch("/{id}/cancel", s.handleCancel)
			r.With(write).Patch("/{id}/arrival-yes", s.handleArrivalYes)
			r.With(write).Patch("/{id}/arrival-no", s.handleArrivalNo)
			r.With(manage).Patch("/{id}/complete", s.handleComplete)
		})

		r.Route("/maintenance", func(r chi.Router) {
			r.With(read).Get("/", s.handleMaintenanceSeats)
			r.With(manage).Get("/records", s.handleMaintenanceRecords)
			r.With(manage).Post("/", s.handleMarkMaintenance)
			r.With(manage).Delete("/{id}", s.handleRemoveMaintenance)
			r.With(manage).Post("/bulk", s.handleBulkRemoveMaintenance)
		})

		r.Route("/slots", func(r chi.Router) {
			r.With(write).Post("/lock", s.handleLockSlot)
			r.With(write).Post("/release", s.handleReleaseSlot)
		})
	})

	return r
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requestLogger attaches a request-scoped logger to the context and logs
// each request once it completes.
func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		l := s.logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		r = r.WithContext(l.WithContext(r.Context()))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.IncHTTP(r.Method + " " + route)

		l.Info().
			Str("method", r.Method).
			Str("route", route).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func traceRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			),
		)
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", ww.Status()))
		if ww.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(ww.Status()))
		}
	})
}
