// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the pannetd configuration file.
//
// The file is named by the PANNET_CONFIG environment variable or the
// --config flag. There is no search path: the daemon runs with exactly
// the file it was given, on top of the built-in defaults.
//
// Files ending in .jsonc or .json are read as JSON with comments; any
// other extension is read as YAML. Both go through the same yaml
// struct tags, since JSON is a subset of YAML.
//
// A development or production section may override the logging and
// timeout settings for that environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvConfig is the environment variable consulted by Load.
const EnvConfig = "PANNET_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Config is the pannetd configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	// SocketPath is where the manager bus listens.
	// Default: /run/pannet/pannet.sock
	SocketPath string `yaml:"socket_path"`

	// EstablishTimeout bounds each discovery stage of CreateConnection,
	// as a Go duration string. "0" or empty disables the timeout.
	EstablishTimeout string `yaml:"establish_timeout"`

	Adapter AdapterConfig `yaml:"adapter"`
	Logging LoggingConfig `yaml:"logging"`
	MQTT    MQTTConfig    `yaml:"mqtt"`

	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// AdapterConfig locates the adapter service the manager queries for
// remote service handles and records.
type AdapterConfig struct {
	// SocketPath is the adapter service's bus socket.
	SocketPath string `yaml:"socket_path"`

	// Path pins the adapter object path (e.g. /org/bluez/hci1). When
	// empty, the lowest-numbered adapter under SysfsRoot is used.
	Path string `yaml:"path"`

	// SysfsRoot lists local adapters. Default: /sys/class/bluetooth
	SysfsRoot string `yaml:"sysfs_root"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// MQTTConfig enables publishing lifecycle events to an MQTT broker.
// Publishing is off when Broker is empty.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
	ClientID    string `yaml:"client_id"`
}

// Overrides holds the per-environment settings.
type Overrides struct {
	EstablishTimeout string         `yaml:"establish_timeout,omitempty"`
	Logging          *LoggingConfig `yaml:"logging,omitempty"`
}

// Default returns the configuration used before the file is applied.
func Default() *Config {
	return &Config{
		Environment:      Development,
		SocketPath:       "/run/pannet/pannet.sock",
		EstablishTimeout: "30s",
		Adapter: AdapterConfig{
			SocketPath: "/run/pannet/adapter.sock",
			SysfsRoot:  "/sys/class/bluetooth",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		MQTT: MQTTConfig{
			TopicPrefix: "pannet/events",
			ClientID:    "pannetd",
		},
	}
}

// Load reads the file named by PANNET_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfig)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your pannet.yaml, or use --config", EnvConfig)
	}
	return LoadFile(path)
}

// LoadFile reads the configuration at path over the defaults, applies
// the section for the configured environment, and expands ${VAR}
// references in paths.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonc", ".json":
		data = jsonc.ToJSON(data)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.EstablishTimeout != "" {
		c.EstablishTimeout = overrides.EstablishTimeout
	}
	if overrides.Logging != nil {
		if overrides.Logging.Level != "" {
			c.Logging.Level = overrides.Logging.Level
		}
		if overrides.Logging.Format != "" {
			c.Logging.Format = overrides.Logging.Format
		}
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func (c *Config) expandVariables() {
	c.SocketPath = expandVars(c.SocketPath)
	c.Adapter.SocketPath = expandVars(c.Adapter.SocketPath)
	c.Adapter.SysfsRoot = expandVars(c.Adapter.SysfsRoot)
}

// expandVars replaces ${VAR} and ${VAR:-default} with environment
// values.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Timeout returns EstablishTimeout as a duration. Zero means no
// timeout.
func (c *Config) Timeout() (time.Duration, error) {
	if c.EstablishTimeout == "" {
		return 0, nil
	}
	timeout, err := time.ParseDuration(c.EstablishTimeout)
	if err != nil {
		return 0, fmt.Errorf("establish_timeout: %w", err)
	}
	return timeout, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}
	if c.SocketPath == "" {
		errs = append(errs, errors.New("socket_path is required"))
	}
	if c.Adapter.SocketPath == "" {
		errs = append(errs, errors.New("adapter.socket_path is required"))
	}
	if c.Adapter.Path == "" && c.Adapter.SysfsRoot == "" {
		errs = append(errs, errors.New("one of adapter.path or adapter.sysfs_root is required"))
	}
	if timeout, err := c.Timeout(); err != nil {
		errs = append(errs, err)
	} else if timeout < 0 {
		errs = append(errs, fmt.Errorf("establish_timeout must not be negative, got %s", c.EstablishTimeout))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}
	if c.MQTT.Broker != "" && c.MQTT.TopicPrefix == "" {
		errs = append(errs, errors.New("mqtt.topic_prefix is required when mqtt.broker is set"))
	}

	return errors.Join(errs...)
}
