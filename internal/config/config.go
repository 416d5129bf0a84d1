package config

import "time"

// RecorderConfig is the root configuration for a recorder instance.
type RecorderConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Database DBConfig       `yaml:"database"`
	Health   HealthConfig   `yaml:"health"`
	Writer   WriterConfig   `yaml:"writer"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Oplog    OplogConfig    `yaml:"oplog"`
	Server   ServerConfig   `yaml:"server"`
}

// InstanceConfig identifies this recorder.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// DBConfig holds the database connection and pool settings.
type DBConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Name           string        `yaml:"name"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	SSLMode        string        `yaml:"ssl_mode"`
	Timezone       string        `yaml:"timezone"` // Session time zone, pinned per connection
	MaxConns       int           `yaml:"max_conns"`
	MinConns       int           `yaml:"min_conns"`
	MinIdleConns   int           `yaml:"min_idle_conns"` // Reserved headroom so probes are never starved
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// HealthConfig holds the health monitor settings.
type HealthConfig struct {
	ProbeInterval time.Duration `yaml:"probe_interval"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	DownThreshold int           `yaml:"down_threshold"` // Consecutive failures before status is down
}

// UnhealthyMode selects writer behavior while the store is unhealthy.
type UnhealthyMode string

const (
	// ModeBuffer queues writes in the bounded replay queue.
	ModeBuffer UnhealthyMode = "buffer"
	// ModeFailFast rejects writes immediately with a transient error.
	ModeFailFast UnhealthyMode = "fail_fast"
)

// WriterConfig holds record writer settings.
type WriterConfig struct {
	MaxRetries    int           `yaml:"max_retries"`
	BackoffBase   time.Duration `yaml:"backoff_base"`
	BackoffMax    time.Duration `yaml:"backoff_max"`
	QueueCapacity int           `yaml:"queue_capacity"`
	OnUnhealthy   UnhealthyMode `yaml:"on_unhealthy"`
	FlushInterval time.Duration `yaml:"flush_interval"` // Replay queue drain cadence
	WriteTimeout  time.Duration `yaml:"write_timeout"`
}

// DeliveryConfig holds delivery tracker settings.
type DeliveryConfig struct {
	MaxRetries int `yaml:"max_retries"`
}

// OplogConfig holds system log recorder settings.
type OplogConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// ServerConfig holds the HTTP surface (ingest, health, metrics) settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	MetricsPath     string        `yaml:"metrics_path"`
	ShutdownGrace   time.Duration `yaml:"shutdown_grace"`
	ReadHeaderLimit time.Duration `yaml:"read_header_timeout"`
}
