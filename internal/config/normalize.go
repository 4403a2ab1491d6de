package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	if err := c.normalizeDatabase(); err != nil {
		return err
	}
	c.normalizeNotifications()
	if err := c.normalizeArtifacts(); err != nil {
		return err
	}
	c.normalizeRateLimit()
	c.normalizeTelemetry()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Listen = strings.TrimSpace(c.Server.Listen)
	if c.Server.Listen == "" {
		c.Server.Listen = defaultListen
	}
	c.Server.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Server.PublicBaseURL), "/")
	if c.Server.PublicBaseURL == "" {
		c.Server.PublicBaseURL = defaultPublicBaseURL
	}
	c.Server.InternalToken = strings.TrimSpace(c.Server.InternalToken)
	if c.Server.InternalToken == "" {
		if value, ok := os.LookupEnv(envInternalToken); ok {
			c.Server.InternalToken = strings.TrimSpace(value)
		}
	}
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = defaultReadTimeoutSeconds
	}
	if c.Server.WriteTimeoutSeconds <= 0 {
		c.Server.WriteTimeoutSeconds = defaultWriteTimeoutSeconds
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = defaultShutdownTimeoutSeconds
	}
	if c.Server.MaxArtifactBytes <= 0 {
		c.Server.MaxArtifactBytes = defaultMaxArtifactBytes
	}
}

func (c *Config) normalizeDatabase() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "", "sqlite3":
		c.Database.Driver = DriverSQLite
	case "postgresql", "pg":
		c.Database.Driver = DriverPostgres
	}
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
	if c.Database.DSN == "" {
		if value, ok := os.LookupEnv(envDatabaseDSN); ok {
			c.Database.DSN = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Database.Path) != "" {
		var err error
		if c.Database.Path, err = expandPath(c.Database.Path); err != nil {
			return fmt.Errorf("database.path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.Provider = strings.ToLower(strings.TrimSpace(c.Notifications.Provider))
	if c.Notifications.Provider == "" {
		c.Notifications.Provider = ProviderNone
	}
	c.Notifications.URL = strings.TrimSpace(c.Notifications.URL)
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Notifications.Token = strings.TrimSpace(c.Notifications.Token)
	if c.Notifications.Token == "" {
		if value, ok := os.LookupEnv(envNotifyToken); ok {
			c.Notifications.Token = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	if c.Notifications.Workers <= 0 {
		c.Notifications.Workers = defaultNotifyWorkers
	}
	if c.Notifications.QueueSize <= 0 {
		c.Notifications.QueueSize = defaultNotifyQueueSize
	}
	c.Notifications.Locale = strings.TrimSpace(c.Notifications.Locale)
	if c.Notifications.Locale == "" {
		c.Notifications.Locale = defaultNotifyLocale
	}
}

func (c *Config) normalizeArtifacts() error {
	c.Artifacts.Backend = strings.ToLower(strings.TrimSpace(c.Artifacts.Backend))
	switch c.Artifacts.Backend {
	case "", "file", "filesystem":
		c.Artifacts.Backend = BackendFilesystem
	}
	if c.Artifacts.Backend == BackendFilesystem {
		if strings.TrimSpace(c.Artifacts.Dir) == "" {
			c.Artifacts.Dir = defaultArtifactsDir
		}
		var err error
		if c.Artifacts.Dir, err = expandPath(c.Artifacts.Dir); err != nil {
			return fmt.Errorf("artifacts.dir: %w", err)
		}
	}
	c.Artifacts.Bucket = strings.TrimSpace(c.Artifacts.Bucket)
	c.Artifacts.Prefix = strings.Trim(strings.TrimSpace(c.Artifacts.Prefix), "/")
	c.Artifacts.Region = strings.TrimSpace(c.Artifacts.Region)
	c.Artifacts.Endpoint = strings.TrimSpace(c.Artifacts.Endpoint)
	return nil
}

func (c *Config) normalizeRateLimit() {
	c.RateLimit.Backend = strings.ToLower(strings.TrimSpace(c.RateLimit.Backend))
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = LimiterMemory
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		c.RateLimit.RequestsPerMinute = defaultRateLimitPerMinute
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = defaultRateLimitBurst
	}
	c.RateLimit.RedisAddr = strings.TrimSpace(c.RateLimit.RedisAddr)
}

func (c *Config) normalizeTelemetry() {
	if c.Telemetry.ExportIntervalSeconds <= 0 {
		c.Telemetry.ExportIntervalSeconds = defaultTelemetryIntervalSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
