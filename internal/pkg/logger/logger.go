package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the global logger instance
var Log = zap.NewNop()

// Config holds logger configuration
type Config struct {
	Level  string
	Format string
	// Output defaults to stdout. The CLI logs to stderr so stdout stays JSON.
	Output io.Writer
}

// New builds a logger without touching the global instance
func New(cfg Config) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// Init initializes the global logger
func Init(cfg Config) error {
	Log = New(cfg)
	return nil
}

// Sync flushes any buffered log entries
func Sync() error {
	return Log.Sync()
}
