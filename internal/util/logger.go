package util

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	loggerMu sync.RWMutex
	logger   *zap.Logger
)

// InitLogger builds the process logger tagged with the service and instance,
// and installs it as zap's global.
func InitLogger(env, service, instanceID string) error {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if env == "production" {
		config = zap.NewProductionConfig()
	}

	built, err := config.Build()
	if err != nil {
		return err
	}
	built = built.With(zap.String("service", service), zap.String("instance", instanceID))

	loggerMu.Lock()
	logger = built
	loggerMu.Unlock()
	zap.ReplaceGlobals(built)
	return nil
}

// GetLogger returns the process logger. Before InitLogger runs it falls back
// to a development logger so early messages stay visible.
func GetLogger() *zap.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		dev, err := zap.NewDevelopment()
		if err != nil {
			dev = zap.NewNop()
		}
		logger = dev
	}
	return logger
}

// SyncLogger flushes any buffered log entries
func SyncLogger() {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if logger != nil {
		_ = logger.Sync()
	}
}
