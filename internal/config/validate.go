package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateArtifacts(); err != nil {
		return err
	}
	if err := c.validateRateLimit(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	parsed, err := url.Parse(c.Server.PublicBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("server.public_base_url must be an absolute URL, got %q", c.Server.PublicBaseURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("server.public_base_url must use http or https, got %q", parsed.Scheme)
	}
	return ensurePositiveMap(map[string]int{
		"server.read_timeout_seconds":     c.Server.ReadTimeoutSeconds,
		"server.write_timeout_seconds":    c.Server.WriteTimeoutSeconds,
		"server.shutdown_timeout_seconds": c.Server.ShutdownTimeoutSeconds,
	})
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverSQLite:
		return nil
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver (or set %s)", envDatabaseDSN)
		}
		return nil
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}
}

func (c *Config) validateNotifications() error {
	switch c.Notifications.Provider {
	case ProviderNone:
		return nil
	case ProviderWebhook:
		if c.Notifications.URL == "" {
			return errors.New("notifications.url must be set when notifications.provider is webhook")
		}
		if _, err := url.ParseRequestURI(c.Notifications.URL); err != nil {
			return fmt.Errorf("notifications.url: %w", err)
		}
		return nil
	case ProviderNtfy:
		if c.Notifications.NtfyTopic == "" {
			return errors.New("notifications.ntfy_topic must be set when notifications.provider is ntfy")
		}
		return nil
	default:
		return fmt.Errorf("notifications.provider must be one of webhook, ntfy, none; got %q", c.Notifications.Provider)
	}
}

func (c *Config) validateArtifacts() error {
	switch c.Artifacts.Backend {
	case BackendFilesystem:
		if c.Artifacts.Dir == "" {
			return errors.New("artifacts.dir must be set for the fs backend")
		}
	case BackendS3, BackendGCS:
		if c.Artifacts.Bucket == "" {
			return fmt.Errorf("artifacts.bucket must be set for the %s backend", c.Artifacts.Backend)
		}
	default:
		return fmt.Errorf("artifacts.backend must be one of fs, s3, gcs; got %q", c.Artifacts.Backend)
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	switch c.RateLimit.Backend {
	case LimiterMemory, LimiterOff:
		return nil
	case LimiterRedis:
		if c.RateLimit.RedisAddr == "" {
			return errors.New("rate_limit.redis_addr must be set when rate_limit.backend is redis")
		}
		return nil
	default:
		return fmt.Errorf("rate_limit.backend must be one of memory, redis, off; got %q", c.RateLimit.Backend)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not recognised", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", strings.TrimSpace(key))
		}
	}
	return nil
}
