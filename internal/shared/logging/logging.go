// Package logging configures the process-wide zap logger.
package logging

import (
	"go.uber.org/zap"
)

// Init builds the global logger for the given environment and installs it
// as the zap global, so components can use zap.S() / zap.L().
func Init(env string) (*zap.SugaredLogger, error) {
	var logger *zap.Logger
	var err error

	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(logger)
	return logger.Sugar(), nil
}
