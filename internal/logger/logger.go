package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/solo-dm/internal/config"
)

// Setup builds the process logger on stdout and installs it as the slog default.
func Setup(cfg *config.Config) *slog.Logger {
	return SetupWriter(cfg, os.Stdout)
}

// SetupWriter builds the process logger on w: JSON in production, text
// otherwise, at cfg.LogLevel.
func SetupWriter(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// SetupFile appends to cfg.LogFile so the console keeps a clean screen.
// An empty LogFile discards output. Close the returned closer on shutdown.
func SetupFile(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	if cfg.LogFile == "" {
		return SetupWriter(cfg, io.Discard), io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return SetupWriter(cfg, f), f, nil
}

// WithComponent tags entries with the subsystem that wrote them.
func WithComponent(logger *slog.Logger, name string) *slog.Logger {
	return logger.With("component", name)
}

// WithSession tags entries with a game session id.
func WithSession(logger *slog.Logger, sessionID string) *slog.Logger {
	return logger.With("session_id", sessionID)
}

// WithError adds err to the logger context.
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}
