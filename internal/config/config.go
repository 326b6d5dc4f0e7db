package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Hue             HueConfig         `yaml:"hue"`
	Discovery       DiscoveryConfig   `yaml:"discovery"`
	MQTT            MQTTConfig        `yaml:"mqtt"`
	Database        DatabaseConfig    `yaml:"database"`
	Log             LogConfig         `yaml:"log"`
	Ledger          LedgerConfig      `yaml:"ledger"`
	Healthcheck     HealthcheckConfig `yaml:"healthcheck"`
	EventBus        EventBusConfig    `yaml:"eventbus"`
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// HueConfig contains settings shared by all bridge sessions
type HueConfig struct {
	DeviceType     string   `yaml:"device_type"`     // Identifier sent when pairing
	Timeout        Duration `yaml:"timeout"`         // HTTP timeout for bridge requests
	PollInterval   Duration `yaml:"poll_interval"`   // Period of the reconciliation loop
	PairingTimeout Duration `yaml:"pairing_timeout"` // How long to wait for the link button
	PairingBackoff Duration `yaml:"pairing_backoff"` // Delay between pairing attempts
	PairOnStart    *bool    `yaml:"pair_on_start"`   // Start pairing unpaired bridges when discovered (default: true)
	WriteRateLimit float64  `yaml:"write_rate_limit_rps"`
	ColorEncoding  string   `yaml:"color_encoding"` // auto, hs or xy
	ButtonPolicy   string   `yaml:"button_policy"`  // codes or range
}

// GetShutdownTimeout returns the timeout for graceful stops
func (c *Config) GetShutdownTimeout() time.Duration {
	return c.ShutdownTimeout.Duration()
}

// ShouldPairOnStart returns whether pairing starts automatically
func (c *HueConfig) ShouldPairOnStart() bool {
	return c.PairOnStart == nil || *c.PairOnStart
}

// DiscoveryConfig selects the bridge discovery mechanisms
type DiscoveryConfig struct {
	SSDP   SSDPConfig     `yaml:"ssdp"`
	NUPnP  NUPnPConfig    `yaml:"nupnp"`
	MDNS   MDNSConfig     `yaml:"mdns"`
	Static []StaticBridge `yaml:"static"`
}

// SSDPConfig contains local multicast discovery settings
type SSDPConfig struct {
	Enabled  *bool    `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
	Timeout  Duration `yaml:"timeout"`
}

// IsEnabled returns whether SSDP discovery is enabled (default: true)
func (c *SSDPConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// NUPnPConfig contains cloud discovery settings
type NUPnPConfig struct {
	Enabled  *bool    `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
}

// IsEnabled returns whether cloud discovery is enabled (default: true)
func (c *NUPnPConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// MDNSConfig contains mDNS discovery settings
type MDNSConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
	Timeout  Duration `yaml:"timeout"`
}

// StaticBridge is a bridge configured by hand
type StaticBridge struct {
	ID string `yaml:"id"`
	IP string `yaml:"ip"`
}

// MQTTConfig contains the host gateway broker settings
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         *int   `yaml:"qos"`
}

// GetQoS returns the publish QoS (default: 1)
func (c *MQTTConfig) GetQoS() byte {
	if c.QoS == nil {
		return 1
	}
	return byte(*c.QoS)
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  *bool  `yaml:"colors"`
}

// GetLevel returns the normalized log level
func (c *LogConfig) GetLevel() string {
	return strings.ToLower(strings.TrimSpace(c.Level))
}

// UseColors returns whether console output is colored (default: true)
func (c *LogConfig) UseColors() bool {
	return c.Colors == nil || *c.Colors
}

// LedgerConfig contains event ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it and fills in
// defaults.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./hueadapter.sqlite"
	}

	// Hue defaults
	if cfg.Hue.DeviceType == "" {
		cfg.Hue.DeviceType = "hueadapter#gateway"
	}
	if cfg.Hue.Timeout == 0 {
		cfg.Hue.Timeout = Duration(10 * time.Second)
	}
	if cfg.Hue.PollInterval == 0 {
		cfg.Hue.PollInterval = Duration(time.Second)
	}
	if cfg.Hue.PairingTimeout == 0 {
		cfg.Hue.PairingTimeout = Duration(60 * time.Second)
	}
	if cfg.Hue.PairingBackoff == 0 {
		cfg.Hue.PairingBackoff = Duration(time.Second)
	}
	if cfg.Hue.WriteRateLimit == 0 {
		cfg.Hue.WriteRateLimit = 10.0
	}
	if cfg.Hue.ColorEncoding == "" {
		cfg.Hue.ColorEncoding = "auto"
	}
	if cfg.Hue.ButtonPolicy == "" {
		cfg.Hue.ButtonPolicy = "codes"
	}

	// Discovery defaults
	if cfg.Discovery.SSDP.Interval == 0 {
		cfg.Discovery.SSDP.Interval = Duration(time.Minute)
	}
	if cfg.Discovery.SSDP.Timeout == 0 {
		cfg.Discovery.SSDP.Timeout = Duration(5 * time.Second)
	}
	if cfg.Discovery.NUPnP.Interval == 0 {
		cfg.Discovery.NUPnP.Interval = Duration(10 * time.Minute)
	}
	if cfg.Discovery.MDNS.Interval == 0 {
		cfg.Discovery.MDNS.Interval = Duration(time.Minute)
	}
	if cfg.Discovery.MDNS.Timeout == 0 {
		cfg.Discovery.MDNS.Timeout = Duration(10 * time.Second)
	}

	// MQTT defaults
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://localhost:1883"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "hueadapter-" + uuid.NewString()[:8]
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "hue"
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// Healthcheck defaults
	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "0.0.0.0"
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Hue.ColorEncoding {
	case "auto", "hs", "xy":
	default:
		return fmt.Errorf("hue.color_encoding: unknown value %q", c.Hue.ColorEncoding)
	}
	switch c.Hue.ButtonPolicy {
	case "codes", "range":
	default:
		return fmt.Errorf("hue.button_policy: unknown value %q", c.Hue.ButtonPolicy)
	}
	if q := c.MQTT.QoS; q != nil && (*q < 0 || *q > 2) {
		return fmt.Errorf("mqtt.qos: must be 0, 1 or 2, got %d", *q)
	}
	for i, b := range c.Discovery.Static {
		if b.ID == "" || b.IP == "" {
			return fmt.Errorf("discovery.static[%d]: id and ip are required", i)
		}
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
