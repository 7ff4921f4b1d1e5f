package main

import (
	"flag"

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
	logger.Info().Msg("starting GPS status console (MQTT subscriber)")

	if err := app.RunConsoleMQTT(logger); err != nil {
		logger.Fatal().Err(err).Msg("fatal")
	}
}
