// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/gps_power/internal/gps"
	"github.com/relabs-tech/gps_power/internal/state"
)

// ConnectMQTT connects to broker and blocks until the connection is up.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return client, nil
}

// MQTTStatusPublisher publishes status documents retained on one topic, so
// late subscribers get the last known state.
type MQTTStatusPublisher struct {
	client mqtt.Client
	topic  string
	log    zerolog.Logger
}

func NewMQTTStatusPublisher(client mqtt.Client, topic string, logger zerolog.Logger) *MQTTStatusPublisher {
	return &MQTTStatusPublisher{
		client: client,
		topic:  topic,
		log:    logger.With().Str("component", "mqtt").Logger(),
	}
}

// PublishStatus implements Publisher. It does not wait for the broker: it
// runs on the GPS worker goroutine.
func (p *MQTTStatusPublisher) PublishStatus(payload []byte) {
	token := p.client.Publish(p.topic, 0, true, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			p.log.Warn().Err(err).Str("topic", p.topic).Msg("status publish error")
		}
	}()
}

// SubscribeSpawn accepts spawn updates as {"latitude":..,"longitude":..}
// on topic.
func SubscribeSpawn(client mqtt.Client, topic string, store *state.Store, logger zerolog.Logger) error {
	log := logger.With().Str("component", "mqtt").Logger()
	token := client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		loc, err := applySpawnPayload(store, msg.Payload())
		if err != nil {
			log.Warn().Err(err).Str("topic", msg.Topic()).Msg("spawn update rejected")
			return
		}
		log.Info().Float64("lat", loc.Latitude).Float64("lon", loc.Longitude).Msg("spawn updated via MQTT")
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", topic, token.Error())
	}
	log.Info().Str("topic", topic).Msg("subscribed to spawn updates")
	return nil
}

func applySpawnPayload(store *state.Store, payload []byte) (gps.Location, error) {
	var loc gps.Location
	if err := json.Unmarshal(payload, &loc); err != nil {
		return gps.Location{}, fmt.Errorf("spawn payload: %w", err)
	}
	if err := store.SetSpawnLocation(loc); err != nil {
		return gps.Location{}, err
	}
	return loc, nil
}
