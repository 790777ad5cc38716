package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"seatbooking/internal/api"
	"seatbooking/internal/audit"
	"seatbooking/internal/bot"
	"seatbooking/internal/config"
	"seatbooking/internal/database"
	"seatbooking/internal/domain"
	"seatbooking/internal/events"
	"seatbooking/internal/export"
	"seatbooking/internal/google"
	"seatbooking/internal/logging"
	"seatbooking/internal/metrics"
	"seatbooking/internal/notify"
	"seatbooking/internal/repository"
	"seatbooking/internal/scheduler"
	"seatbooking/internal/service"
	"seatbooking/internal/tracing"
	"seatbooking/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	loc, err := cfg.App.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, cfg.App, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("tracing init failed, continuing without tracing")
	} else {
		defer func() { _ = shutdownTracing(context.Background()) }()
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()
	db.SetLocation(loc)

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	bus := events.NewEventBus(logger)
	notifier, alerter, telegram := notify.FromConfig(cfg.Notifications, logger)

	restaurants := service.NewRestaurantService(db, cfg.Restaurant, logger)
	if _, err := restaurants.Get(ctx); err != nil {
		return fmt.Errorf("init restaurant: %w", err)
	}
	bookings := service.NewBookingService(db, restaurants, notifier, bus, loc, cfg.Booking.MaxAdvanceDays, logger)
	if alerter != nil {
		bookings.SetAlerter(alerter)
	}

	memoryLocks := repository.NewMemoryLockStore()
	var lockStore domain.SlotLockStore = memoryLocks
	if redisClient != nil {
		lockStore = repository.NewFailoverLockStore(repository.NewRedisLockStore(redisClient), memoryLocks, logger)
	}

	svcs := api.Services{
		Restaurants: restaurants,
		Bookings:    bookings,
		Maintenance: service.NewMaintenanceService(db, logger),
		Locks:       service.NewSlotLockService(lockStore, cfg.Booking.LockTTL, loc, logger),
		Exporter:    export.NewExporter(bookings, restaurants, cfg.Exports.Path, logger),
	}

	sweeper := scheduler.NewSweeper(db, notifier, bus, cfg.Scheduler, logging.Component(logger, "sweeper"))
	if alerter != nil {
		sweeper.SetAlerter(alerter)
	}

	sheetsWorker := initSheetsWorker(ctx, cfg, db, redisClient, logger)
	if sheetsWorker != nil {
		bus.Subscribe(sheetsWorker.HandleEvent, events.AllBookingEvents...)
	}

	if cfg.RabbitMQ.URL != "" {
		bridge, err := events.DialAMQP(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("rabbitmq unavailable, events stay in-process")
		} else {
			defer bridge.Close()
			bus.Subscribe(bridge.Handle, events.AllBookingEvents...)
		}
	}

	if cfg.Mongo.URI != "" {
		sink, disconnect, err := audit.Connect(ctx, cfg.Mongo, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("mongo audit unavailable, continuing without audit trail")
		} else {
			defer func() { _ = disconnect(context.Background()) }()
			bus.Subscribe(sink.HandleEvent, events.AllBookingEvents...)
		}
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	auth := api.NewAuthenticator(&cfg.API)
	httpServer := api.NewHTTPServer(&cfg.API, svcs, auth, cfg.App.IsProduction(), logger)
	grpcServer, err := api.NewGRPCServer(&cfg.API, svcs, auth, logger)
	if err != nil {
		logger.Error().Err(err).Msg("create grpc server")
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.API.HTTP.Enabled {
		g.Go(httpServer.Start)
	}
	if cfg.API.GRPC.Enabled {
		g.Go(grpcServer.ListenAndServe)
	}
	if cfg.Scheduler.Enabled {
		g.Go(func() error { return sweeper.Run(gctx) })
	}
	if sheetsWorker != nil {
		g.Go(func() error {
			sheetsWorker.Start(gctx)
			return nil
		})
	}
	if cfg.Backup.Enabled {
		backups := database.NewBackupService(db, cfg.Backup, logger)
		g.Go(func() error {
			backups.Start(gctx)
			return nil
		})
	}
	if cfg.Monitoring.PrometheusEnabled {
		g.Go(func() error { return serveMetrics(gctx, cfg.Monitoring.PrometheusPort, logger) })
	}
	memoryLocks.StartJanitor(gctx, time.Minute)

	var console *bot.Bot
	if telegram != nil && cfg.Notifications.Telegram.Console {
		console = bot.NewBot(telegram, bot.Deps{
			Bookings: bookings,
			Sweeper:  sweeper,
			Exporter: svcs.Exporter,
		}, cfg.Notifications.Telegram.Managers, loc, logging.Component(logger, "telegram-console"))
		g.Go(func() error { return console.Run(gctx) })
	}

	logger.Info().
		Int("http_port", cfg.API.HTTP.Port).
		Int("grpc_port", cfg.API.GRPC.Port).
		Bool("scheduler", cfg.Scheduler.Enabled).
		Msg("seatbooking started")

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		console.Stop()
		grpcServer.Shutdown(shutdownCtx)
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	bookings.Wait()
	logger.Info().Msg("seatbooking stopped")
	return err
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func initSheetsWorker(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) *worker.SheetsWorker {
	if !cfg.Google.Enabled() {
		return nil
	}

	sheets, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheets.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets unreachable, continuing without sheets")
		return nil
	}
	if err := sheets.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets cache warm-up failed")
	}

	logger.Info().Msg("google sheets connected")
	return worker.NewSheetsWorker(db, sheets, redisClient, worker.DefaultRetryPolicy, logging.Component(logger, "sheets-worker"))
}

func serveMetrics(ctx context.Context, port int, logger *zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Int("port", port).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
