package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Artifacts.Dir = filepath.Join(base, "artifacts")
	cfgVal.Server.Listen = "127.0.0.1:0"
	cfgVal.Server.PublicBaseURL = "https://portal.test"
	cfgVal.Server.InternalToken = "internal-test-token"
	cfgVal.RateLimit.Backend = config.LimiterOff

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRateLimit enables the in-memory limiter with the given budget.
func WithRateLimit(perMinute, burst int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.RateLimit.Backend = config.LimiterMemory
		b.cfg.RateLimit.RequestsPerMinute = perMinute
		b.cfg.RateLimit.Burst = burst
	}
}

// WithoutInternalToken disables the internal issuing routes.
func WithoutInternalToken() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.InternalToken = ""
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
