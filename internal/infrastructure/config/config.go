package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Remote channel backends.
const (
	RemoteBackendMQTT  = "mqtt"
	RemoteBackendRedis = "redis"
)

// Config is the root configuration structure for pickroute.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Robot     RobotConfig     `yaml:"robot"`
	Database  DatabaseConfig  `yaml:"database"`
	Remote    RemoteConfig    `yaml:"remote"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Redis     RedisConfig     `yaml:"redis"`
	Serial    SerialConfig    `yaml:"serial"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RobotConfig identifies the robot node the engine drives.
type RobotConfig struct {
	// Node is the remote state node shared with the robot (e.g. "Picking_Robot").
	Node string `yaml:"node"`

	// DetectionField is the node field carrying the obstacle signal.
	DetectionField string `yaml:"detection_field"`

	// TickMillis is the length of one countdown tick in milliseconds.
	// Move durations are expressed in ticks; production uses 1000.
	TickMillis int `yaml:"tick_millis"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// RemoteConfig selects the transport used for the shared remote state node.
type RemoteConfig struct {
	Backend     string `yaml:"backend"`
	TopicPrefix string `yaml:"topic_prefix"`
	QueueSize   int    `yaml:"queue_size"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// RedisConfig contains Redis connection settings for the redis remote backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// LeaseTTL is the controller lease lifetime in seconds.
	LeaseTTL int `yaml:"lease_ttl"`
}

// SerialConfig contains settings for the direct device link.
type SerialConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`

	// ReconnectInterval is the seconds between attempts to reopen a
	// port that failed.
	ReconnectInterval int `yaml:"reconnect_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PICKROUTE_SECTION_KEY
// For example: PICKROUTE_DATABASE_PATH, PICKROUTE_SERIAL_PORT
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Robot: RobotConfig{
			Node:           "Picking_Robot",
			DetectionField: "detection",
			TickMillis:     1000,
		},
		Database: DatabaseConfig{
			Path:        "./data/pickroute.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Remote: RemoteConfig{
			Backend:     RemoteBackendMQTT,
			TopicPrefix: "pickroute",
			QueueSize:   64,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "pickroute-engine",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			LeaseTTL: 15,
		},
		Serial: SerialConfig{
			Port:              "/dev/ttyUSB0",
			BaudRate:          9600,
			ReconnectInterval: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PICKROUTE_ROBOT_NODE"); v != "" {
		cfg.Robot.Node = v
	}
	if v := os.Getenv("PICKROUTE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("PICKROUTE_REMOTE_BACKEND"); v != "" {
		cfg.Remote.Backend = v
	}

	if v := os.Getenv("PICKROUTE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PICKROUTE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PICKROUTE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("PICKROUTE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PICKROUTE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	if v := os.Getenv("PICKROUTE_SERIAL_PORT"); v != "" {
		cfg.Serial.Port = v
	}
	if v := os.Getenv("PICKROUTE_SERIAL_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Serial.Enabled = enabled
		}
	}

	if v := os.Getenv("PICKROUTE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("PICKROUTE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Robot.Node) == "" {
		errs = append(errs, "robot.node is required")
	}
	if c.Robot.DetectionField == "" {
		errs = append(errs, "robot.detection_field is required")
	}
	if c.Robot.TickMillis <= 0 {
		errs = append(errs, "robot.tick_millis must be positive")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	switch c.Remote.Backend {
	case RemoteBackendMQTT:
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	case RemoteBackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, "redis.addr is required for the redis backend")
		}
		if c.Redis.LeaseTTL <= 0 {
			errs = append(errs, "redis.lease_ttl must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("remote.backend must be %q or %q", RemoteBackendMQTT, RemoteBackendRedis))
	}
	if c.Remote.QueueSize <= 0 {
		errs = append(errs, "remote.queue_size must be positive")
	}

	if c.Serial.Enabled {
		if c.Serial.Port == "" {
			errs = append(errs, "serial.port is required when serial is enabled")
		}
		if c.Serial.BaudRate <= 0 {
			errs = append(errs, "serial.baud_rate must be positive")
		}
		if c.Serial.ReconnectInterval <= 0 {
			errs = append(errs, "serial.reconnect_interval must be positive")
		}
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// TickInterval returns the countdown tick length as a Duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Robot.TickMillis) * time.Millisecond
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
