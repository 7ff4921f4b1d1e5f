package app

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/gps_power/internal/config"
)

// RunConsoleMQTT prints one line per status report until Ctrl+C.
func RunConsoleMQTT(logger zerolog.Logger) error {
	cfg := config.Get()
	log := logger.With().Str("component", "console").Logger()

	client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Info().Str("broker", cfg.MQTTBroker).Msg("connected to MQTT broker")

	token := client.Subscribe(cfg.TopicGPSStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var st Status
		if err := json.Unmarshal(msg.Payload(), &st); err != nil {
			log.Warn().Err(err).Msg("status unmarshal error")
			return
		}
		fmt.Println(formatStatusLine(st))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Info().Str("topic", cfg.TopicGPSStatus).Msg("subscribed")

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	client.Disconnect(250)
	return nil
}

func formatStatusLine(st Status) string {
	power := "off"
	if st.Power.Enabled {
		power = "on"
	}
	decision := "none"
	if st.Decision != nil {
		if st.Decision.KeepPowered {
			decision = "keep"
		} else {
			decision = fmt.Sprintf("sleep=%ds", st.Decision.SleepIntervalSeconds)
		}
	}
	return fmt.Sprintf(
		"[GPS ]  lat=%.6f lon=%.6f dist=%.2fkm power=%s %s dropped=%d",
		st.Location.Latitude, st.Location.Longitude, st.DistanceKm, power, decision, st.Dropped,
	)
}
