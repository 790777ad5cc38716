package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"seatbooking/internal/models"
	"seatbooking/internal/timeslot"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig          `yaml:"app"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	Restaurant    models.Restaurant  `yaml:"restaurant"`
	Booking       BookingConfig      `yaml:"booking"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Backup        BackupConfig       `yaml:"backup"`
	Monitoring    MonitoringConfig   `yaml:"monitoring"`
	Tracing       TracingConfig      `yaml:"tracing"`
	Logging       LoggingConfig      `yaml:"logging"`
	API           APIConfig          `yaml:"api"`
	RabbitMQ      RabbitMQConfig     `yaml:"rabbitmq"`
	Mongo         MongoConfig        `yaml:"mongo"`
	Exports       ExportConfig       `yaml:"exports"`
	Google        GoogleConfig       `yaml:"google"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	Timezone    string `yaml:"timezone"`
}

// Location resolves the venue timezone; "Local" or empty means the process zone.
func (a AppConfig) Location() (*time.Location, error) {
	if a.Timezone == "" || a.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(a.Timezone)
}

func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BookingConfig struct {
	MaxAdvanceDays int           `yaml:"max_advance_days"`
	LockTTL        time.Duration `yaml:"lock_ttl"`
}

type SchedulerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	// Lookback bounds how far in the past confirmed bookings are still
	// considered for auto-cancel.
	Lookback  time.Duration `yaml:"lookback"`
	Lookahead time.Duration `yaml:"lookahead"`
}

type NotificationConfig struct {
	FrontendURL string         `yaml:"frontend_url"`
	Email       EmailConfig    `yaml:"email"`
	SMS         SMSConfig      `yaml:"sms"`
	Telegram    TelegramConfig `yaml:"telegram"`
}

type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type SMSConfig struct {
	Enabled            bool          `yaml:"enabled"`
	BaseURL            string        `yaml:"base_url"`
	AccountSID         string        `yaml:"account_sid"`
	AuthToken          string        `yaml:"auth_token"`
	From               string        `yaml:"from"`
	DefaultCountryCode string        `yaml:"default_country_code"`
	Timeout            time.Duration `yaml:"timeout"`
}

type TelegramConfig struct {
	Enabled  bool    `yaml:"enabled"`
	BotToken string  `yaml:"bot_token"`
	Managers []int64 `yaml:"managers"`
	Console  bool    `yaml:"console"` // serve manager commands over the same bot
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
	StoragePath   string        `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type GoogleConfig struct {
	CredentialsFile      string `yaml:"credentials_file"`
	BookingSpreadSheetID string `yaml:"bookings_spreadsheet_id"`
}

func (g GoogleConfig) Enabled() bool {
	return g.CredentialsFile != "" && g.BookingSpreadSheetID != ""
}

func Load(configPath string) (*Config, error) {
	// .env is optional; a missing file is not an error.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if _, err := c.App.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.App.Timezone, err)
	}
	if err := ValidateRestaurant(&c.Restaurant); err != nil {
		return err
	}
	if c.Booking.LockTTL <= 0 {
		return errors.New("booking lock_ttl must be positive")
	}
	if c.Scheduler.Interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}
	if c.Notifications.Email.Enabled && c.Notifications.Email.Host == "" {
		return errors.New("email host is required when email is enabled")
	}
	if c.Notifications.SMS.Enabled && (c.Notifications.SMS.BaseURL == "" || c.Notifications.SMS.From == "") {
		return errors.New("sms base_url and from are required when sms is enabled")
	}
	if c.Notifications.Telegram.Enabled && c.Notifications.Telegram.BotToken == "" {
		return errors.New("telegram bot token is required when manager alerts are enabled")
	}
	if c.API.Enabled && c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api auth enabled but no api keys configured")
	}
	return nil
}

// ValidateRestaurant checks venue settings used as creation defaults or updates.
func ValidateRestaurant(r *models.Restaurant) error {
	if r.TotalSeats < 1 {
		return errors.New("restaurant total_seats must be at least 1")
	}
	if r.MaxSeatsPerBooking < 1 {
		return errors.New("restaurant max_seats_per_booking must be at least 1")
	}
	if _, err := timeslot.ForRestaurant(r); err != nil {
		return fmt.Errorf("restaurant hours: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "seatbooking"
	}
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}

	def := models.DefaultRestaurant()
	if c.Restaurant.Name == "" {
		c.Restaurant.Name = def.Name
	}
	if c.Restaurant.TotalSeats == 0 {
		c.Restaurant.TotalSeats = def.TotalSeats
	}
	if c.Restaurant.OpeningTime == "" {
		c.Restaurant.OpeningTime = def.OpeningTime
	}
	if c.Restaurant.ClosingTime == "" {
		c.Restaurant.ClosingTime = def.ClosingTime
	}
	if c.Restaurant.SlotDuration == 0 {
		c.Restaurant.SlotDuration = def.SlotDuration
	}
	if c.Restaurant.Description == "" {
		c.Restaurant.Description = def.Description
	}
	if c.Restaurant.MaxSeatsPerBooking == 0 {
		c.Restaurant.MaxSeatsPerBooking = def.MaxSeatsPerBooking
	}

	if c.Booking.MaxAdvanceDays == 0 {
		c.Booking.MaxAdvanceDays = 365
	}
	if c.Booking.LockTTL == 0 {
		c.Booking.LockTTL = 5 * time.Minute
	}

	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = time.Minute
	}
	if c.Scheduler.Lookback == 0 {
		c.Scheduler.Lookback = 24 * time.Hour
	}
	if c.Scheduler.Lookahead == 0 {
		c.Scheduler.Lookahead = 30 * time.Minute
	}

	if c.Notifications.Email.Port == 0 {
		c.Notifications.Email.Port = 587
	}
	if c.Notifications.SMS.DefaultCountryCode == "" {
		c.Notifications.SMS.DefaultCountryCode = "+91"
	}
	if c.Notifications.SMS.Timeout == 0 {
		c.Notifications.SMS.Timeout = 10 * time.Second
	}

	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = c.App.Name
	}

	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "seatbooking.events"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "seatbooking"
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = "booking_audit"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Backup.Interval == 0 {
		c.Backup.Interval = 24 * time.Hour
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}
}
