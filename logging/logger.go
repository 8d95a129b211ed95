// Package logging builds the zap loggers used across the live engine.
package logging

import (
	"go.uber.org/zap"
)

// New returns the process logger. Debug mode uses the development config,
// which also makes DPanic panic so programming errors (unknown store fields,
// duplicate bus handlers) fail loudly during development instead of being
// counted and ignored.
func New(debug bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
