package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *RecorderConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Health.DownThreshold < 1 {
		return errors.New("health.down_threshold must be >= 1")
	}
	if c.Health.ProbeTimeout >= c.Health.ProbeInterval {
		return errors.New("health.probe_timeout must be shorter than health.probe_interval")
	}

	if c.Writer.MaxRetries < 0 {
		return errors.New("writer.max_retries must be >= 0")
	}
	if c.Writer.QueueCapacity < 1 {
		return errors.New("writer.queue_capacity must be >= 1")
	}
	if c.Writer.OnUnhealthy != ModeBuffer && c.Writer.OnUnhealthy != ModeFailFast {
		return fmt.Errorf("writer.on_unhealthy must be %q or %q, got %q",
			ModeBuffer, ModeFailFast, c.Writer.OnUnhealthy)
	}
	if c.Writer.BackoffBase > c.Writer.BackoffMax {
		return errors.New("writer.backoff_base must not exceed writer.backoff_max")
	}

	if c.Delivery.MaxRetries < 0 {
		return errors.New("delivery.max_retries must be >= 0")
	}

	if c.Oplog.BatchSize < 1 {
		return errors.New("oplog.batch_size must be >= 1")
	}
	if c.Oplog.BufferSize < 1 {
		return errors.New("oplog.buffer_size must be >= 1")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns must not exceed %s.max_conns", prefix, prefix)
	}
	if db.MinIdleConns > db.MaxConns {
		return fmt.Errorf("%s.min_idle_conns must not exceed %s.max_conns", prefix, prefix)
	}
	if db.AcquireTimeout <= 0 {
		return fmt.Errorf("%s.acquire_timeout must be > 0", prefix)
	}
	// Both the session pin and the aggregator's date keying load this.
	if _, err := time.LoadLocation(db.Timezone); err != nil {
		return fmt.Errorf("%s.timezone: %w", prefix, err)
	}
	return nil
}
