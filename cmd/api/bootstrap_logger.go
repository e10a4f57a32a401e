package main

import (
	"go.uber.org/zap"

	config "github.com/NordCoder/Stockpulse/internal/config/api"
	"github.com/NordCoder/Stockpulse/internal/obs"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(cfg.Log.AsLoggerConfig(cfg.App))
}
