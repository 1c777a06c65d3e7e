package main

import (
	"go.uber.org/zap"
)

// InitLogger installs the global zap logger; callers use zap.L().
func InitLogger(cfg *Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error
	if cfg.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
