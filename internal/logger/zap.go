package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a zap logger to Logger for the long-running serve command.
type ZapLogger struct {
	z *zap.Logger
}

// NewZap builds a production zap logger, or a development one when debug is
// set.
func NewZap(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// NewZapLogger wraps z. A nil z logs nothing.
func NewZapLogger(z *zap.Logger) *ZapLogger {
	if z == nil {
		z = zap.NewNop()
	}
	return &ZapLogger{z: z}
}

// Logf logs a formatted message at info level, dropping a trailing newline.
func (l *ZapLogger) Logf(format string, args ...interface{}) {
	l.z.Info(strings.TrimSuffix(fmt.Sprintf(format, args...), "\n"))
}

// Log logs msg at info level.
func (l *ZapLogger) Log(msg string) { l.z.Info(msg) }

// Zap returns the wrapped logger.
func (l *ZapLogger) Zap() *zap.Logger { return l.z }
