package config

import (
	"fmt"

	"github.com/heartmarshall/submission-backend/internal/identifier"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if err := c.Database.validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := c.Submission.validate(); err != nil {
		return fmt.Errorf("submission: %w", err)
	}

	return nil
}

func (d *DatabaseConfig) validate() error {
	switch d.Driver {
	case DriverPostgres:
		if d.DSN == "" {
			return fmt.Errorf("dsn is required for the %s driver", DriverPostgres)
		}
		if d.MaxConns <= 0 {
			return fmt.Errorf("max_conns must be > 0 (got %d)", d.MaxConns)
		}
		if d.MinConns < 0 || d.MinConns > d.MaxConns {
			return fmt.Errorf("min_conns must be between 0 and max_conns (got %d)", d.MinConns)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown driver %q (want %s or %s)", d.Driver, DriverPostgres, DriverMemory)
	}
	return nil
}

func (s *SubmissionConfig) validate() error {
	if s.TaskTimeout <= 0 {
		return fmt.Errorf("task_timeout must be > 0 (got %v)", s.TaskTimeout)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0 (got %d)", s.MaxRetries)
	}
	if s.RetryInitialInterval <= 0 {
		return fmt.Errorf("retry_initial_interval must be > 0 (got %v)", s.RetryInitialInterval)
	}
	if s.RetryMaxInterval < s.RetryInitialInterval {
		return fmt.Errorf("retry_max_interval must be >= retry_initial_interval (got %v)", s.RetryMaxInterval)
	}
	if s.MaxPendingTasks < 0 {
		return fmt.Errorf("max_pending_tasks must be >= 0 (got %d)", s.MaxPendingTasks)
	}
	if !identifier.Strategy(s.SystemIDStrategy).IsValid() {
		return fmt.Errorf("unknown system_id_strategy %q", s.SystemIDStrategy)
	}
	return nil
}
