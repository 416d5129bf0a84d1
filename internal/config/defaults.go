package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDBPort         = 5432
	DefaultDBSSLMode      = "prefer"
	DefaultDBTimezone     = "Asia/Hong_Kong"
	DefaultMaxConns       = 10
	DefaultMinConns       = 2
	DefaultMinIdleConns   = 1
	DefaultAcquireTimeout = 5 * time.Second
	DefaultConnectTimeout = 10 * time.Second

	DefaultProbeInterval = 30 * time.Second
	DefaultProbeTimeout  = 5 * time.Second
	DefaultDownThreshold = 3

	DefaultMaxRetries    = 3
	DefaultBackoffBase   = 500 * time.Millisecond
	DefaultBackoffMax    = 30 * time.Second
	DefaultQueueCapacity = 1000
	DefaultOnUnhealthy   = ModeBuffer
	DefaultFlushInterval = 5 * time.Second
	DefaultWriteTimeout  = 10 * time.Second

	DefaultDeliveryMaxRetries = 3

	DefaultOplogBatchSize     = 100
	DefaultOplogFlushInterval = 2 * time.Second
	DefaultOplogBufferSize    = 1000

	DefaultServerPort        = 8080
	DefaultMetricsPath       = "/metrics"
	DefaultShutdownGrace     = 30 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
)

func (c *RecorderConfig) applyDefaults() {
	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.Timezone == "" {
		c.Database.Timezone = DefaultDBTimezone
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}
	if c.Database.MinIdleConns == 0 {
		c.Database.MinIdleConns = DefaultMinIdleConns
	}
	if c.Database.AcquireTimeout == 0 {
		c.Database.AcquireTimeout = DefaultAcquireTimeout
	}
	if c.Database.ConnectTimeout == 0 {
		c.Database.ConnectTimeout = DefaultConnectTimeout
	}

	// Health defaults
	if c.Health.ProbeInterval == 0 {
		c.Health.ProbeInterval = DefaultProbeInterval
	}
	if c.Health.ProbeTimeout == 0 {
		c.Health.ProbeTimeout = DefaultProbeTimeout
	}
	if c.Health.DownThreshold == 0 {
		c.Health.DownThreshold = DefaultDownThreshold
	}

	// Writer defaults
	if c.Writer.MaxRetries == 0 {
		c.Writer.MaxRetries = DefaultMaxRetries
	}
	if c.Writer.BackoffBase == 0 {
		c.Writer.BackoffBase = DefaultBackoffBase
	}
	if c.Writer.BackoffMax == 0 {
		c.Writer.BackoffMax = DefaultBackoffMax
	}
	if c.Writer.QueueCapacity == 0 {
		c.Writer.QueueCapacity = DefaultQueueCapacity
	}
	if c.Writer.OnUnhealthy == "" {
		c.Writer.OnUnhealthy = DefaultOnUnhealthy
	}
	if c.Writer.FlushInterval == 0 {
		c.Writer.FlushInterval = DefaultFlushInterval
	}
	if c.Writer.WriteTimeout == 0 {
		c.Writer.WriteTimeout = DefaultWriteTimeout
	}

	// Delivery defaults
	if c.Delivery.MaxRetries == 0 {
		c.Delivery.MaxRetries = DefaultDeliveryMaxRetries
	}

	// Oplog defaults
	if c.Oplog.BatchSize == 0 {
		c.Oplog.BatchSize = DefaultOplogBatchSize
	}
	if c.Oplog.FlushInterval == 0 {
		c.Oplog.FlushInterval = DefaultOplogFlushInterval
	}
	if c.Oplog.BufferSize == 0 {
		c.Oplog.BufferSize = DefaultOplogBufferSize
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = DefaultMetricsPath
	}
	if c.Server.ShutdownGrace == 0 {
		c.Server.ShutdownGrace = DefaultShutdownGrace
	}
	if c.Server.ReadHeaderLimit == 0 {
		c.Server.ReadHeaderLimit = DefaultReadHeaderTimeout
	}
}
