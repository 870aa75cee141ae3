package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Session   SessionConfig   `yaml:"session"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Kafka     KafkaConfig     `yaml:"kafka"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// SessionConfig controls live workout sessions.
type SessionConfig struct {
	TickInterval      time.Duration `yaml:"tick_interval"`
	LeadIn            int           `yaml:"lead_in"`
	ExtendRestSeconds int           `yaml:"extend_rest_seconds"`
	RecordTimeout     time.Duration `yaml:"record_timeout"`
	Retention         time.Duration `yaml:"retention"`
}

// CatalogConfig points at a workout catalog file. Empty uses the built-in catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// KafkaConfig enables publishing completion events.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

func defaults() *Config {
	return &Config{
		Tailscale: TailscaleConfig{Hostname: "fitrun"},
		Session: SessionConfig{
			TickInterval:      time.Second,
			LeadIn:            3,
			ExtendRestSeconds: 15,
			RecordTimeout:     30 * time.Second,
			Retention:         time.Hour,
		},
		Kafka: KafkaConfig{Topic: "workout_events"},
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix FITRUN_ and underscore-separated paths:
//
//	FITRUN_SERVER_HOST, FITRUN_SERVER_PORT,
//	FITRUN_DB_HOST, FITRUN_DB_PORT, FITRUN_DB_NAME,
//	FITRUN_DB_USER, FITRUN_DB_PASSWORD, FITRUN_DB_SSLMODE,
//	FITRUN_AUTH_API_KEY,
//	FITRUN_TAILSCALE_ENABLED, FITRUN_TAILSCALE_HOSTNAME, FITRUN_TAILSCALE_STATE_DIR,
//	FITRUN_SESSION_TICK_INTERVAL, FITRUN_SESSION_LEAD_IN,
//	FITRUN_CATALOG_PATH,
//	FITRUN_KAFKA_ENABLED, FITRUN_KAFKA_BROKERS (comma-separated), FITRUN_KAFKA_TOPIC
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FITRUN_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("FITRUN_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FITRUN_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FITRUN_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FITRUN_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FITRUN_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FITRUN_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FITRUN_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("FITRUN_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("FITRUN_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("FITRUN_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("FITRUN_TAILSCALE_STATE_DIR"); v != "" {
		cfg.Tailscale.StateDir = v
	}
	if v := os.Getenv("FITRUN_SESSION_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.TickInterval = d
		}
	}
	if v := os.Getenv("FITRUN_SESSION_LEAD_IN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.LeadIn = n
		}
	}
	if v := os.Getenv("FITRUN_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}
	if v := os.Getenv("FITRUN_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("FITRUN_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FITRUN_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if c.Session.TickInterval <= 0 {
		return fmt.Errorf("session.tick_interval must be positive")
	}
	if c.Session.LeadIn < 0 {
		return fmt.Errorf("session.lead_in must not be negative")
	}
	if c.Session.ExtendRestSeconds <= 0 {
		return fmt.Errorf("session.extend_rest_seconds must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.Kafka.Enabled && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when kafka is enabled")
	}
	return nil
}
