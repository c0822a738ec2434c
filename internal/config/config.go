// Package config loads service configuration from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the reservation service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Engine     EngineConfig     `yaml:"engine"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Push       PushConfig       `yaml:"push"`
	OpenRemote OpenRemoteConfig `yaml:"openremote"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	DataDir string `yaml:"data_dir"`
	File    string `yaml:"file"`
}

// Path returns the full path to the database file.
func (d DatabaseConfig) Path() string {
	return strings.TrimSuffix(d.DataDir, "/") + "/" + d.File
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	Output string `yaml:"output"` // stdout, stderr
}

// EngineConfig gates the reservation engine's side effects.
type EngineConfig struct {
	PushEnabled           bool   `yaml:"push_enabled"`
	LeadMinutesDefault    int    `yaml:"lead_minutes_default"`
	WebhookSecret         string `yaml:"webhook_secret"`
	DefaultTimezone       string `yaml:"default_timezone"`
	DefaultPowerAttribute string `yaml:"default_power_attribute"`
}

// DispatcherConfig contains reconciliation sweep settings.
type DispatcherConfig struct {
	Interval time.Duration `yaml:"interval"`
	Horizon  time.Duration `yaml:"horizon"`
}

// PushConfig sizes the asynchronous push queue.
type PushConfig struct {
	QueueSize int `yaml:"queue_size"`
	Workers   int `yaml:"workers"`
}

// OpenRemoteConfig holds access to the external device scheduler.
type OpenRemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// MQTTConfig contains the optional lifecycle notification broker.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
}

// Load reads configuration from path over the defaults, applies
// environment overrides and validates the result. An empty path skips
// the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":4000",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			DataDir: "/data",
			File:    "room-reservations.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Engine: EngineConfig{
			PushEnabled:           false,
			LeadMinutesDefault:    5,
			DefaultTimezone:       "America/Belem",
			DefaultPowerAttribute: "power",
		},
		Dispatcher: DispatcherConfig{
			Interval: 60 * time.Second,
			Horizon:  10 * time.Minute,
		},
		Push: PushConfig{
			QueueSize: 256,
			Workers:   2,
		},
		OpenRemote: OpenRemoteConfig{
			Timeout: 10 * time.Second,
		},
		MQTT: MQTTConfig{
			ClientID:    "room-reservation-manager",
			TopicPrefix: "rooms",
			QoS:         1,
		},
	}
}

// applyEnvOverrides applies ROOMS_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ROOMS_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("ROOMS_DATA_DIR"); v != "" {
		cfg.Database.DataDir = v
	}
	if v := os.Getenv("ROOMS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ROOMS_PUSH_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Engine.PushEnabled = b
		}
	}
	if v := os.Getenv("ROOMS_LEAD_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.LeadMinutesDefault = n
		}
	}
	if v := os.Getenv("ROOMS_WEBHOOK_SECRET"); v != "" {
		cfg.Engine.WebhookSecret = v
	}
	if v := os.Getenv("ROOMS_OR_BASE_URL"); v != "" {
		cfg.OpenRemote.BaseURL = v
	}
	if v := os.Getenv("ROOMS_OR_API_KEY"); v != "" {
		cfg.OpenRemote.APIKey = v
	}
	if v := os.Getenv("ROOMS_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
		cfg.MQTT.Enabled = true
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Database.DataDir == "" || c.Database.File == "" {
		return fmt.Errorf("database.data_dir and database.file are required")
	}
	if c.Engine.LeadMinutesDefault < 0 {
		return fmt.Errorf("engine.lead_minutes_default must be >= 0")
	}
	if _, err := time.LoadLocation(c.Engine.DefaultTimezone); err != nil {
		return fmt.Errorf("engine.default_timezone %q: %w", c.Engine.DefaultTimezone, err)
	}
	if c.Engine.PushEnabled && c.OpenRemote.BaseURL == "" {
		return fmt.Errorf("openremote.base_url is required when push is enabled")
	}
	if c.Dispatcher.Interval < time.Second {
		return fmt.Errorf("dispatcher.interval must be at least 1s")
	}
	if c.Dispatcher.Horizon <= 0 {
		return fmt.Errorf("dispatcher.horizon must be positive")
	}
	if c.Push.QueueSize <= 0 || c.Push.Workers <= 0 {
		return fmt.Errorf("push.queue_size and push.workers must be positive")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	return nil
}
