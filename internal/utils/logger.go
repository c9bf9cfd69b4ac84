package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// InitLogger builds the global zap logger.  Production environments get the
// JSON production config; everything else gets the colored development
// console encoder.
func InitLogger(env string) error {
	var cfg zap.Config
	if env == "prod" || env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	logger = l
	zap.ReplaceGlobals(logger)
	return nil
}

// Logger returns the global logger, falling back to a development logger
// when InitLogger has not been called (tests, one-off tools).
func Logger() *zap.Logger {
	if logger == nil {
		logger, _ = zap.NewDevelopment()
	}
	return logger
}

// SyncLogger flushes buffered log entries; call on shutdown.
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}
