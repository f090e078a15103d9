// Package logger is the process-wide structured logger. Values are passed as
// alternating key/value pairs.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Info(msg string, values ...any)
	Warn(msg string, values ...any)
	Error(msg string, values ...any)
	Debug(msg string, values ...any)
	Panic(message string, values ...any)
	Fatal(error error, values ...any)
	Printf(format string, args ...interface{})
}

// Options selects the encoder and level. Production gives JSON output,
// anything else the colored console encoder.
type Options struct {
	Production bool
	Level      string
	Service    string
}

// bootstrap logger until Configure runs; LOG_ENV and LOG_LEVEL apply to tools
// that never load the app config
func init() {
	opts := Options{
		Production: os.Getenv("LOG_ENV") == "production",
		Level:      os.Getenv("LOG_LEVEL"),
	}
	if err := Configure(opts); err != nil {
		panic(err)
	}
}

// Configure replaces the process logger. An unknown level keeps the encoder default.
func Configure(opts Options) error {
	var config zap.Config
	if opts.Production {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if lvl := strings.TrimSpace(opts.Level); lvl != "" {
		if parsed, err := zapcore.ParseLevel(lvl); err == nil {
			config.Level = zap.NewAtomicLevelAt(parsed)
		}
	}
	if opts.Service != "" {
		config.InitialFields = map[string]any{"service": opts.Service}
	}

	l, err := NewLogger(config)
	if err != nil {
		return err
	}
	if zapLogger != nil {
		_ = zapLogger.log.Sync()
	}
	zapLogger = l
	return nil
}

func Info(msg string, values ...any) {
	GetLogger().Info(msg, values...)
}

func Warn(msg string, values ...any) {
	GetLogger().Warn(msg, values...)
}

func Error(msg string, values ...any) {
	GetLogger().Error(msg, values...)
}

func Debug(msg string, values ...any) {
	GetLogger().Debug(msg, values...)
}

func Panic(msg string, values ...any) {
	GetLogger().Panic(msg, values...)
}

func Fatal(error error, values ...any) {
	GetLogger().Fatal(error, values...)
}

// With returns a child logger carrying the given key/value pairs on every entry.
func With(values ...any) *ZapLogger {
	return GetLogger().With(values...)
}

func Sync() {
	_ = GetLogger().log.Sync()
}
