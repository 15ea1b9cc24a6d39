package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if c.Server.Port != 8080 || c.Server.ReadTimeout != 10*time.Second {
		t.Fatalf("server defaults not applied: %+v", c.Server)
	}
	if c.Preferences.Backend != "memory" {
		t.Fatalf("backend = %q", c.Preferences.Backend)
	}
	if len(c.Server.AllowOrigins) != 1 || c.Server.AllowOrigins[0] != "*" {
		t.Fatalf("allow origins = %v", c.Server.AllowOrigins)
	}
	if len(c.Kafka.Brokers) != 1 || c.Kafka.Brokers[0] != "localhost:9092" {
		t.Fatalf("brokers = %v", c.Kafka.Brokers)
	}
	if c.Sessions.IdleTTL != 30*time.Minute {
		t.Fatalf("idle ttl = %v", c.Sessions.IdleTTL)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 9090
preferences:
  backend: sqlite
  sqlite:
    path: /tmp/prefs.db
chart:
  gap_policy: hide
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "production" || c.Server.Port != 9090 {
		t.Fatalf("unexpected: env=%q port=%d", c.Environment, c.Server.Port)
	}
	if c.Server.WriteTimeout != 10*time.Second {
		t.Fatalf("unset field lost its default: %v", c.Server.WriteTimeout)
	}
	if c.Preferences.Backend != "sqlite" || c.Preferences.SQLite.Path != "/tmp/prefs.db" {
		t.Fatalf("preferences = %+v", c.Preferences)
	}
	if c.Chart.GapPolicy != "hide" {
		t.Fatalf("gap policy = %q", c.Chart.GapPolicy)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"backend", "preferences:\n  backend: etcd\n"},
		{"port", "server:\n  port: 70000\n"},
		{"gap policy", "chart:\n  gap_policy: fade\n"},
		{"log format", "log:\n  format: xml\n"},
		{"kafka without topic", "kafka:\n  enabled: true\n  topic: \"\"\n"},
		{"sweep spec", "sessions:\n  sweep_spec: \"every now and then\"\n"},
		{"layered l2", "preferences:\n  backend: layered\n  layered:\n    l2: memory\n"},
		{"layered sqlite without path", "preferences:\n  backend: layered\n  layered:\n    l2: sqlite\n  sqlite:\n    path: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadLayeredBackend(t *testing.T) {
	c, err := Load(writeConfig(t, "preferences:\n  backend: layered\n  layered:\n    l2: sqlite\n    l1_ttl: 5s\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	l := c.Preferences.Layered
	if l.L2 != "sqlite" || l.L1TTL != 5*time.Second || l.MemoryMaxSize != 1000 {
		t.Fatalf("layered = %+v", l)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("CHARTDECK_PORT", "7070")
	t.Setenv("CHARTDECK_PREFERENCES_BACKEND", "redis")
	t.Setenv("CHARTDECK_REDIS_HOST", "cache.internal")
	t.Setenv("CHARTDECK_KAFKA_ENABLED", "true")
	t.Setenv("CHARTDECK_KAFKA_BROKERS", "b1:9092,b2:9092")
	t.Setenv("CHARTDECK_ALLOW_ORIGINS", "https://charts.example.com,https://ops.example.com")

	c, err := LoadWithEnv("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 7070 {
		t.Fatalf("port = %d", c.Server.Port)
	}
	if c.Preferences.Backend != "redis" || c.Preferences.Redis.Host != "cache.internal" {
		t.Fatalf("preferences = %+v", c.Preferences)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka = %+v", c.Kafka)
	}
	if len(c.Server.AllowOrigins) != 2 || c.Server.AllowOrigins[1] != "https://ops.example.com" {
		t.Fatalf("allow origins = %v", c.Server.AllowOrigins)
	}
}

func TestLoadWithEnvBadPort(t *testing.T) {
	t.Setenv("CHARTDECK_PORT", "eighty")
	if _, err := LoadWithEnv(""); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}
