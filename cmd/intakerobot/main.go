package main

import (
	"context"
	"os"

	"IntakeRobot/internal/app"
	"IntakeRobot/internal/config"
	"IntakeRobot/internal/logging"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application := app.New(ctx, cfg, logger)

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
