package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// contextKey is the type for context keys
type contextKey string

const (
	// RequestIDKey is the context key for request IDs
	RequestIDKey contextKey = "request_id"
	// UserIDKey is the context key for the authenticated user id
	UserIDKey contextKey = "user_id"
)

// Config holds logging configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

// New builds a zerolog logger for the given configuration. Text format uses
// the console writer; anything else emits JSON.
func New(cfg Config) zerolog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "conti").
		Logger()
}

// Setup installs the logger built from cfg as the global zerolog logger.
func Setup(cfg Config) {
	log.Logger = New(cfg)
}

// WithRequestID stores the request id on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithUserID stores the authenticated user id on the context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

// RequestID returns the request id stored on ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// WithContext returns the global logger enriched with the request and user
// ids carried by ctx.
func WithContext(ctx context.Context) *zerolog.Logger {
	logger := log.With()

	if requestID := RequestID(ctx); requestID != "" {
		logger = logger.Str("request_id", requestID)
	}
	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		logger = logger.Str("user_id", userID)
	}

	contextLogger := logger.Logger()
	return &contextLogger
}
