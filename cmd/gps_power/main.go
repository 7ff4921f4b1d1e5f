package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/gps_power/internal/app"
	"github.com/relabs-tech/gps_power/internal/config"
)

func main() {
	configPath := flag.String("config", "gps_power_config.txt", "path to the KEY=VALUE config file")
	flag.Parse()

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		bootLogger := app.NewLogger("info")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := app.NewLogger(config.Get().LogLevel)
	logger.Info().Str("config", *configPath).Msg("starting GPS power controller")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunGPSPower(ctx, logger); err != nil {
		logger.Error().Err(err).Msg("fatal")
		stop()
		os.Exit(1)
	}
	logger.Info().Msg("shut down")
}
