package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	clts "fraudshield/clients"
	"fraudshield/config"
	"fraudshield/internal/app"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Load config from environment variables
	envConfig := config.Load()
	logger.Info("starting fraudshield monitor", zap.Bool("isProd", envConfig.IsProd))

	// Create LiveConfig with env config as initial value
	liveConfig := config.NewLiveConfig(envConfig)

	// Settings file is optional; without it changes made at runtime
	// live only in memory.
	settingsFile := os.Getenv("SETTINGS_FILE")
	settingsManager := config.NewSettingsManager(logger, settingsFile, liveConfig)

	cfg, err := settingsManager.LoadSettings(envConfig)
	if err != nil {
		logger.Warn("failed to load settings, using env/defaults", zap.Error(err))
	} else if cfg != nil {
		if err := liveConfig.Update(cfg); err != nil {
			logger.Warn("failed to apply loaded settings", zap.Error(err))
		}
	}

	logger.Info("instantiating clients")
	clients := clts.NewClients(logger, liveConfig.Get())

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	runner := app.NewRunner(clients, liveConfig, settingsManager)
	if err := runner.Run(ctx); err != nil {
		logger.Fatal("runner failed", zap.Error(err))
	}
}
