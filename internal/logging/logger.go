package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"seatbooking/internal/config"

	"github.com/rs/zerolog"
)

// New returns the root logger for a seatbooking process. Every record carries
// the app name, environment and build version. The returned closer is non-nil
// only when records go to a file.
func New(cfg config.LoggingConfig, app config.AppConfig) (*zerolog.Logger, io.Closer, error) {
	sink, closer, err := openSink(cfg)
	if err != nil {
		return nil, nil, err
	}
	if normalize(cfg.Format) == "console" {
		sink = zerolog.ConsoleWriter{Out: sink, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	root := zerolog.New(sink).
		Level(levelOf(cfg.Level)).
		With().
		Timestamp().
		Str("app", app.Name).
		Str("env", app.Environment).
		Str("version", app.Version).
		Logger()

	return &root, closer, nil
}

// levelOf maps a configured level name, falling back to info for blank or
// unknown names.
func levelOf(name string) zerolog.Level {
	name = normalize(name)
	if name == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func openSink(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	switch normalize(cfg.Output) {
	case "file":
	case "stderr":
		return os.Stderr, nil, nil
	default:
		return os.Stdout, nil, nil
	}

	if cfg.FilePath == "" {
		return nil, nil, fmt.Errorf("logging.output=file requires logging.file_path")
	}
	if dir := filepath.Dir(cfg.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", cfg.FilePath, err)
	}
	return f, f, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Component tags records from one subsystem (sweeper, console, sheets...).
// Passing a nil parent gives a no-op logger.
func Component(parent *zerolog.Logger, name string) *zerolog.Logger {
	if parent == nil {
		l := zerolog.Nop()
		return &l
	}
	l := parent.With().Str("component", name).Logger()
	return &l
}
