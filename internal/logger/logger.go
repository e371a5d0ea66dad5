// Package logger builds the zap loggers used across the services.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger. "development" selects the console development
// config; any other value is parsed as the level of the JSON production config.
func New(level string) (*zap.Logger, error) {
	if level == "development" {
		config := zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return config.Build()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	return config.Build()
}

// Must is New that panics on error, for use in main.
func Must(level string) *zap.Logger {
	l, err := New(level)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return l
}
