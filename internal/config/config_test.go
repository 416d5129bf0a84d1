package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recorder.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-recorder
database:
  host: localhost
  port: 5432
  name: option_data
  user: recorder
  password: secret
writer:
  queue_capacity: 500
  on_unhealthy: fail_fast
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-recorder" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-recorder")
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "localhost")
	}
	if cfg.Writer.QueueCapacity != 500 {
		t.Errorf("Writer.QueueCapacity = %d, want 500", cfg.Writer.QueueCapacity)
	}
	if cfg.Writer.OnUnhealthy != ModeFailFast {
		t.Errorf("Writer.OnUnhealthy = %q, want %q", cfg.Writer.OnUnhealthy, ModeFailFast)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-recorder
database:
  host: localhost
  name: option_data
  user: recorder
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-recorder
database:
  host: localhost
  name: option_data
  user: recorder
  password: secret
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, DefaultDBPort)
	}
	if cfg.Database.Timezone != DefaultDBTimezone {
		t.Errorf("Database.Timezone = %q, want %q", cfg.Database.Timezone, DefaultDBTimezone)
	}
	if cfg.Database.AcquireTimeout != DefaultAcquireTimeout {
		t.Errorf("Database.AcquireTimeout = %v, want %v", cfg.Database.AcquireTimeout, DefaultAcquireTimeout)
	}
	if cfg.Health.DownThreshold != DefaultDownThreshold {
		t.Errorf("Health.DownThreshold = %d, want %d", cfg.Health.DownThreshold, DefaultDownThreshold)
	}
	if cfg.Writer.OnUnhealthy != ModeBuffer {
		t.Errorf("Writer.OnUnhealthy = %q, want %q", cfg.Writer.OnUnhealthy, ModeBuffer)
	}
	if cfg.Writer.BackoffBase != DefaultBackoffBase {
		t.Errorf("Writer.BackoffBase = %v, want %v", cfg.Writer.BackoffBase, DefaultBackoffBase)
	}
	if cfg.Delivery.MaxRetries != DefaultDeliveryMaxRetries {
		t.Errorf("Delivery.MaxRetries = %d, want %d", cfg.Delivery.MaxRetries, DefaultDeliveryMaxRetries)
	}
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultServerPort)
	}
}

func TestLoadAndValidate_Valid(t *testing.T) {
	yaml := `
instance:
  id: test-recorder
database:
  host: localhost
  name: option_data
  user: recorder
  password: secret
health:
  probe_interval: 10s
  probe_timeout: 2s
  down_threshold: 3
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	if cfg.Health.ProbeInterval != 10*time.Second {
		t.Errorf("Health.ProbeInterval = %v, want 10s", cfg.Health.ProbeInterval)
	}
}

func TestValidate_Errors(t *testing.T) {
	base := func() *RecorderConfig {
		cfg := &RecorderConfig{
			Instance: InstanceConfig{ID: "r1"},
			Database: DBConfig{Host: "h", Name: "n", User: "u", Password: "p"},
		}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*RecorderConfig)
	}{
		{"missing instance id", func(c *RecorderConfig) { c.Instance.ID = "" }},
		{"missing host", func(c *RecorderConfig) { c.Database.Host = "" }},
		{"missing password", func(c *RecorderConfig) { c.Database.Password = "" }},
		{"min conns above max", func(c *RecorderConfig) { c.Database.MinConns = 20 }},
		{"zero acquire timeout", func(c *RecorderConfig) { c.Database.AcquireTimeout = 0 }},
		{"unknown timezone", func(c *RecorderConfig) { c.Database.Timezone = "Mars/Olympus" }},
		{"probe timeout too long", func(c *RecorderConfig) { c.Health.ProbeTimeout = c.Health.ProbeInterval }},
		{"bad unhealthy mode", func(c *RecorderConfig) { c.Writer.OnUnhealthy = "panic" }},
		{"backoff base above max", func(c *RecorderConfig) { c.Writer.BackoffBase = 2 * c.Writer.BackoffMax }},
		{"bad server port", func(c *RecorderConfig) { c.Server.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}
