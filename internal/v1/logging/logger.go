// Package logging wraps zap with the structured fields this server logs
// player activity with. Components never hand-roll field names: the typed
// helpers below keep transient ids, user ids and room codes spelled the
// same way everywhere, which is what makes a reconnection traceable across
// the session manager, the room and the pumps.
package logging

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/asifZaman0362/zgm-srv/internal/v1/types"
)

type contextKey string

const (
	CorrelationIDKey contextKey = "correlation_id"
	UserIDKey        contextKey = "user_id"
	RoomCodeKey      contextKey = "room_code"
)

// contextFields maps context keys to the field names they log under.
var contextFields = []struct {
	key  contextKey
	name string
}{
	{CorrelationIDKey, "correlation_id"},
	{UserIDKey, "user_id"},
	{RoomCodeKey, "room_code"},
}

var (
	mu     sync.Mutex
	logger *zap.Logger
)

// Initialize builds the process logger. The level string comes from
// LOG_LEVEL; anything unparseable falls back to info rather than failing
// startup. Calling Initialize again replaces the logger.
func Initialize(development bool, level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.InitialFields = map[string]any{"service": "zgm-srv"}

	built, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	mu.Lock()
	logger = built
	mu.Unlock()
	return nil
}

// GetLogger returns the process logger, lazily building a development one
// when Initialize has not run (tests, early startup). The fallback is
// cached so repeated pre-init calls share a logger.
func GetLogger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger, _ = zap.NewDevelopment(zap.AddCallerSkip(1))
	}
	return logger
}

// --- Domain field helpers ---

// Session is the structured field for a stream's transient id.
func Session(id types.TransientID) zap.Field {
	return zap.Uint64("transient_id", uint64(id))
}

// User is the structured field for a durable user identity.
func User(id types.UserID) zap.Field {
	return zap.String("user_id", string(id))
}

// Room is the structured field for a room code.
func Room(code types.RoomCode) zap.Field {
	return zap.String("room_code", string(code))
}

// --- Leveled, context-aware logging ---

func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, withContext(ctx, fields)...)
}

func Info(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Info(msg, withContext(ctx, fields)...)
}

func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, withContext(ctx, fields)...)
}

func Error(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Error(msg, withContext(ctx, fields)...)
}

func Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, withContext(ctx, fields)...)
}

// withContext appends whichever identity keys the context carries. A
// session stamps its correlation and user ids here so every log line of a
// stream's lifetime lines up without call sites repeating themselves.
func withContext(ctx context.Context, fields []zap.Field) []zap.Field {
	if ctx == nil {
		return fields
	}
	for _, cf := range contextFields {
		if v, ok := ctx.Value(cf.key).(string); ok && v != "" {
			fields = append(fields, zap.String(cf.name, v))
		}
	}
	return fields
}
