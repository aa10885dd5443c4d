// Package utils holds the process-wide logger bootstrap.
package utils

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.Logger
	once sync.Once
)

// InitLogger builds the global logger. Production mode writes JSON to
// stdout and the engine log files; debug mode switches to console
// encoding at debug level for interactive runs.
func InitLogger(debug bool) *zap.Logger {
	once.Do(func() {
		enc := zap.NewProductionEncoderConfig()
		enc.TimeKey = "ts"
		enc.EncodeTime = zapcore.RFC3339TimeEncoder
		enc.EncodeDuration = zapcore.StringDurationEncoder

		cfg := zap.Config{
			Level:            zap.NewAtomicLevelAt(zapcore.InfoLevel),
			Encoding:         "json",
			EncoderConfig:    enc,
			OutputPaths:      []string{"stdout", "arbengine.log"},
			ErrorOutputPaths: []string{"stderr", "arbengine-error.log"},
		}
		if debug {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			cfg.Encoding = "console"
			cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		}

		logger, err := cfg.Build(
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
		if err != nil {
			panic(err)
		}
		log = logger
	})

	return log
}

// GetLogger returns the global logger, initializing it at defaults when
// no command has done so yet.
func GetLogger() *zap.Logger {
	if log == nil {
		return InitLogger(false)
	}
	return log
}

// CleanupLogger flushes any buffered log entries.
func CleanupLogger() {
	if log != nil {
		_ = log.Sync()
	}
}
