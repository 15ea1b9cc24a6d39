package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
		AllowOrigins    []string      `yaml:"allow_origins" default:"[\"*\"]"`
	} `yaml:"server"`
	Log struct {
		Level      string `yaml:"level" default:"info"`
		Format     string `yaml:"format" default:"console"`
		Output     string `yaml:"output" default:"stdout"`
		MaxSizeMB  int    `yaml:"max_size_mb" default:"100"`
		MaxBackups int    `yaml:"max_backups" default:"3"`
		MaxAgeDays int    `yaml:"max_age_days" default:"7"`
	} `yaml:"log"`
	Metrics struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		SlowThreshold time.Duration `yaml:"slow_threshold" default:"500ms"`
	} `yaml:"metrics"`
	Preferences struct {
		Backend string `yaml:"backend" default:"memory"`
		Memory  struct {
			MaxSize         int           `yaml:"max_size" default:"10000"`
			CleanupInterval time.Duration `yaml:"cleanup_interval" default:"1m"`
		} `yaml:"memory"`
		Redis struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"chartdeck:"`
		} `yaml:"redis"`
		SQLite struct {
			Path        string        `yaml:"path" default:"chartdeck.db"`
			BusyTimeout time.Duration `yaml:"busy_timeout" default:"5s"`
		} `yaml:"sqlite"`
		// Layered puts a memory L1 in front of the redis or sqlite backend.
		Layered struct {
			L2            string        `yaml:"l2" default:"redis"`
			L1TTL         time.Duration `yaml:"l1_ttl" default:"30s"`
			MemoryMaxSize int           `yaml:"memory_max_size" default:"1000"`
		} `yaml:"layered"`
	} `yaml:"preferences"`
	Kafka struct {
		Enabled  bool     `yaml:"enabled"`
		Brokers  []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
		Topic    string   `yaml:"topic" default:"analysis.payloads"`
		Consumer struct {
			GroupID         string        `yaml:"group_id" default:"chartdeck"`
			AutoOffsetReset string        `yaml:"auto_offset_reset" default:"latest"`
			Workers         int           `yaml:"workers" default:"4"`
			BufferSize      int           `yaml:"buffer_size" default:"256"`
			RetryMax        int           `yaml:"retry_max" default:"3"`
			BackoffMin      time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax      time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic        string        `yaml:"dlq_topic"`
			MinBytes        int           `yaml:"min_bytes" default:"1"`
			MaxBytes        int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Sessions struct {
		IdleTTL   time.Duration `yaml:"idle_ttl" default:"30m"`
		SweepSpec string        `yaml:"sweep_spec" default:"@every 1m"`
	} `yaml:"sessions"`
	Chart struct {
		GapPolicy                string  `yaml:"gap_policy" default:"retain"`
		ComputeMissingIndicators bool    `yaml:"compute_missing_indicators"`
		MaxSeriesPerSurface      int     `yaml:"max_series_per_surface" default:"32"`
		PointerBurst             int     `yaml:"pointer_burst" default:"30"`
		PointerRate              float64 `yaml:"pointer_rate" default:"60"`
	} `yaml:"chart"`
}

// Default returns a config populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads an optional .env file, the YAML config, then applies
// CHARTDECK_* environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CHARTDECK_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("CHARTDECK_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHARTDECK_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("CHARTDECK_ALLOW_ORIGINS"); v != "" {
		c.Server.AllowOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("CHARTDECK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CHARTDECK_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("CHARTDECK_PREFERENCES_BACKEND"); v != "" {
		c.Preferences.Backend = v
	}
	if v := os.Getenv("CHARTDECK_REDIS_HOST"); v != "" {
		c.Preferences.Redis.Host = v
	}
	if v := os.Getenv("CHARTDECK_REDIS_PASSWORD"); v != "" {
		c.Preferences.Redis.Password = v
	}
	if v := os.Getenv("CHARTDECK_SQLITE_PATH"); v != "" {
		c.Preferences.SQLite.Path = v
	}
	if v := os.Getenv("CHARTDECK_KAFKA_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CHARTDECK_KAFKA_ENABLED: %w", err)
		}
		c.Kafka.Enabled = enabled
	}
	if v := os.Getenv("CHARTDECK_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CHARTDECK_KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CHARTDECK_GAP_POLICY"); v != "" {
		c.Chart.GapPolicy = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be 'json' or 'console', got '%s'", c.Log.Format)
	}
	backend := c.Preferences.Backend
	switch backend {
	case "memory", "redis", "sqlite":
	case "layered":
		backend = c.Preferences.Layered.L2
		if backend != "redis" && backend != "sqlite" {
			return fmt.Errorf("preferences.layered.l2 must be 'redis' or 'sqlite', got '%s'", backend)
		}
	default:
		return fmt.Errorf("preferences.backend must be 'memory', 'redis', 'sqlite' or 'layered', got '%s'", c.Preferences.Backend)
	}
	switch backend {
	case "redis":
		if c.Preferences.Redis.Host == "" {
			return fmt.Errorf("preferences.redis.host is required")
		}
	case "sqlite":
		if c.Preferences.SQLite.Path == "" {
			return fmt.Errorf("preferences.sqlite.path is required")
		}
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required")
		}
	}
	if c.Sessions.IdleTTL < 0 {
		return fmt.Errorf("sessions.idle_ttl cannot be negative")
	}
	if c.Sessions.IdleTTL > 0 {
		if _, err := cron.ParseStandard(c.Sessions.SweepSpec); err != nil {
			return fmt.Errorf("sessions.sweep_spec: %w", err)
		}
	}
	switch c.Chart.GapPolicy {
	case "", "retain", "hide":
	default:
		return fmt.Errorf("chart.gap_policy must be 'retain' or 'hide', got '%s'", c.Chart.GapPolicy)
	}
	return nil
}
