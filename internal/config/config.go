// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config holds all application configuration values.
type Config struct {
	// GPS
	GPSSource          string // "nmea" or "mock"
	GPSSerialPort      string
	GPSBaudRate        int
	GPSEnablePin       string // periph GPIO name, e.g. "GPIO17"
	GPSEnableActiveLow bool   // enable line polarity; verify against the board wiring
	GPSDetectTimeout   time.Duration

	// Spawn (reference point)
	SpawnLatitude  float64
	SpawnLongitude float64

	// Mock source
	MockSpeedKmh    float64
	MockBearingDeg  float64
	MockFixInterval time.Duration

	// MQTT
	MQTTBroker          string
	MQTTClientIDGPS     string
	MQTTClientIDConsole string

	// Topics
	TopicGPSStatus string
	TopicGPSSpawn  string

	// Web Server
	WebServerPort int

	// Display
	DisplayEnabled        bool
	DisplayI2CBus         string
	DisplayI2CAddr        uint16
	DisplayUpdateInterval time.Duration

	// Logging
	LogLevel string
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through Get(), so nothing can modify the
//     config without going through InitGlobal().
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: RWMutex, write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// defaults lists every known key. Keys not listed here are rejected.
var defaults = map[string]interface{}{
	"GPS_SOURCE":         "nmea",
	"GPS_SERIAL_PORT":    "/dev/serial0",
	"GPS_BAUD_RATE":      9600,
	"GPS_EN_PIN":         "GPIO17",
	"GPS_EN_ACTIVE_LOW":  true,
	"GPS_DETECT_TIMEOUT": 30, // seconds

	"SPAWN_LATITUDE":  0.0,
	"SPAWN_LONGITUDE": 0.0,

	"MOCK_SPEED_KMH":    60.0,
	"MOCK_BEARING_DEG":  90.0,
	"MOCK_FIX_INTERVAL": 1000, // milliseconds

	"MQTT_BROKER":            "tcp://localhost:1883",
	"MQTT_CLIENT_ID_GPS":     "gps-power",
	"MQTT_CLIENT_ID_CONSOLE": "gps-power-console",

	"TOPIC_GPS_STATUS": "gps/status",
	"TOPIC_GPS_SPAWN":  "gps/spawn/set",

	"WEB_SERVER_PORT": 8080,

	"DISPLAY_ENABLED":         false,
	"DISPLAY_I2C_BUS":         "",
	"DISPLAY_I2C_ADDR":        "0x3C",
	"DISPLAY_UPDATE_INTERVAL": 1000, // milliseconds

	"LOG_LEVEL": "info",
}

// Load reads a KEY=VALUE configuration file. Environment variables with the
// same names override file values.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("env")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := checkKeys(v); err != nil {
		return nil, err
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// checkKeys rejects keys we do not know, usually typos.
func checkKeys(v *viper.Viper) error {
	var unknown []string
	for _, key := range v.AllKeys() {
		if _, ok := defaults[strings.ToUpper(key)]; !ok {
			unknown = append(unknown, strings.ToUpper(key))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown config key: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// decoder collects the first conversion error so decode stays readable.
type decoder struct {
	v   *viper.Viper
	err error
}

func (d *decoder) getString(key string) string {
	return strings.TrimSpace(d.v.GetString(key))
}

func (d *decoder) getInt(key string) int {
	n, err := cast.ToIntE(strings.TrimSpace(cast.ToString(d.v.Get(key))))
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("invalid %s %q: %w", key, d.v.GetString(key), err)
	}
	return n
}

func (d *decoder) getFloat(key string) float64 {
	f, err := cast.ToFloat64E(strings.TrimSpace(cast.ToString(d.v.Get(key))))
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("invalid %s %q: %w", key, d.v.GetString(key), err)
	}
	return f
}

func (d *decoder) getBool(key string) bool {
	b, err := cast.ToBoolE(strings.TrimSpace(cast.ToString(d.v.Get(key))))
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("invalid %s %q: %w", key, d.v.GetString(key), err)
	}
	return b
}

func decode(v *viper.Viper) (*Config, error) {
	d := &decoder{v: v}
	c := &Config{
		GPSSource:          strings.ToLower(d.getString("GPS_SOURCE")),
		GPSSerialPort:      d.getString("GPS_SERIAL_PORT"),
		GPSBaudRate:        d.getInt("GPS_BAUD_RATE"),
		GPSEnablePin:       d.getString("GPS_EN_PIN"),
		GPSEnableActiveLow: d.getBool("GPS_EN_ACTIVE_LOW"),
		GPSDetectTimeout:   time.Duration(d.getInt("GPS_DETECT_TIMEOUT")) * time.Second,

		SpawnLatitude:  d.getFloat("SPAWN_LATITUDE"),
		SpawnLongitude: d.getFloat("SPAWN_LONGITUDE"),

		MockSpeedKmh:    d.getFloat("MOCK_SPEED_KMH"),
		MockBearingDeg:  d.getFloat("MOCK_BEARING_DEG"),
		MockFixInterval: time.Duration(d.getInt("MOCK_FIX_INTERVAL")) * time.Millisecond,

		MQTTBroker:          d.getString("MQTT_BROKER"),
		MQTTClientIDGPS:     d.getString("MQTT_CLIENT_ID_GPS"),
		MQTTClientIDConsole: d.getString("MQTT_CLIENT_ID_CONSOLE"),

		TopicGPSStatus: d.getString("TOPIC_GPS_STATUS"),
		TopicGPSSpawn:  d.getString("TOPIC_GPS_SPAWN"),

		WebServerPort: d.getInt("WEB_SERVER_PORT"),

		DisplayEnabled:        d.getBool("DISPLAY_ENABLED"),
		DisplayI2CBus:         d.getString("DISPLAY_I2C_BUS"),
		DisplayUpdateInterval: time.Duration(d.getInt("DISPLAY_UPDATE_INTERVAL")) * time.Millisecond,

		LogLevel: strings.ToLower(d.getString("LOG_LEVEL")),
	}

	// I2C addresses are usually written in hex
	addr, err := strconv.ParseUint(d.getString("DISPLAY_I2C_ADDR"), 0, 16)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", d.getString("DISPLAY_I2C_ADDR"), err)
	}
	c.DisplayI2CAddr = uint16(addr)

	if d.err != nil {
		return nil, d.err
	}
	return c, nil
}

// validate checks value ranges and required fields.
func (c *Config) validate() error {
	switch c.GPSSource {
	case "nmea":
		if c.GPSSerialPort == "" {
			return fmt.Errorf("GPS_SERIAL_PORT is required")
		}
	case "mock":
	default:
		return fmt.Errorf("GPS_SOURCE must be nmea or mock, got %q", c.GPSSource)
	}
	if c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE must be positive, got %d", c.GPSBaudRate)
	}
	if c.GPSEnablePin == "" {
		return fmt.Errorf("GPS_EN_PIN is required")
	}
	if c.GPSDetectTimeout <= 0 {
		return fmt.Errorf("GPS_DETECT_TIMEOUT must be positive")
	}
	if c.SpawnLatitude < -90 || c.SpawnLatitude > 90 {
		return fmt.Errorf("SPAWN_LATITUDE must be -90..90, got %v", c.SpawnLatitude)
	}
	if c.SpawnLongitude < -180 || c.SpawnLongitude > 180 {
		return fmt.Errorf("SPAWN_LONGITUDE must be -180..180, got %v", c.SpawnLongitude)
	}
	if c.MQTTBroker != "" && c.TopicGPSStatus == "" {
		return fmt.Errorf("TOPIC_GPS_STATUS is required when MQTT_BROKER is set")
	}
	if c.WebServerPort < 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 0-65535, got %d", c.WebServerPort)
	}
	if c.DisplayEnabled && c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
