package config

const (
	defaultConfigPath               = "~/.config/portal/config.toml"
	defaultDataDir                  = "~/.local/share/portal"
	defaultLogDir                   = "~/.local/share/portal/logs"
	defaultArtifactsDir             = "~/.local/share/portal/artifacts"
	defaultListen                   = "127.0.0.1:8480"
	defaultPublicBaseURL            = "http://127.0.0.1:8480"
	defaultReadTimeoutSeconds       = 15
	defaultWriteTimeoutSeconds      = 60
	defaultShutdownTimeoutSeconds   = 10
	defaultMaxArtifactBytes         = 20 << 20
	defaultNotifyRequestTimeout     = 10
	defaultNotifyWorkers            = 2
	defaultNotifyQueueSize          = 256
	defaultNotifyLocale             = "pt-BR"
	defaultRateLimitPerMinute       = 60
	defaultRateLimitBurst           = 20
	defaultTelemetryIntervalSeconds = 60
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	envInternalToken                = "PORTAL_INTERNAL_TOKEN"
	envDatabaseDSN                  = "PORTAL_DATABASE_DSN"
	envNotifyToken                  = "PORTAL_NOTIFY_TOKEN"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Server: Server{
			Listen:                 defaultListen,
			PublicBaseURL:          defaultPublicBaseURL,
			ReadTimeoutSeconds:     defaultReadTimeoutSeconds,
			WriteTimeoutSeconds:    defaultWriteTimeoutSeconds,
			ShutdownTimeoutSeconds: defaultShutdownTimeoutSeconds,
			MaxArtifactBytes:       defaultMaxArtifactBytes,
		},
		Database: Database{
			Driver: DriverSQLite,
		},
		Notifications: Notifications{
			Provider:       ProviderNone,
			RequestTimeout: defaultNotifyRequestTimeout,
			Workers:        defaultNotifyWorkers,
			QueueSize:      defaultNotifyQueueSize,
			Locale:         defaultNotifyLocale,
		},
		Artifacts: Artifacts{
			Backend: BackendFilesystem,
			Dir:     defaultArtifactsDir,
		},
		RateLimit: RateLimit{
			Backend:           LimiterMemory,
			RequestsPerMinute: defaultRateLimitPerMinute,
			Burst:             defaultRateLimitBurst,
		},
		Telemetry: Telemetry{
			ExportIntervalSeconds: defaultTelemetryIntervalSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
