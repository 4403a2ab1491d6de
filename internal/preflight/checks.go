package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
	"github.com/AndersD76/portalpili-producao-sub005/internal/ratelimit"
	"github.com/AndersD76/portalpili-producao-sub005/internal/store"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDatabase pings the workflow store and reports its schema and size.
func CheckDatabase(ctx context.Context, st *store.Store) Result {
	const name = "Workflow database"
	if st == nil {
		return Result{Name: name, Detail: "not opened"}
	}
	health, err := st.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", health.Driver, err)}
	}
	if !health.DatabaseExists {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s missing)", health.Driver, health.DBPath)}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s schema v%d, %d tokens (%d pending), %d opportunities",
			health.Driver, health.SchemaVersion, health.Tokens, health.PendingTokens, health.Opportunities),
	}
}

// CheckEndpoint verifies that an HTTP endpoint answers. Any status below 500
// passes since providers commonly reject bare GETs with 4xx.
func CheckEndpoint(ctx context.Context, name, endpoint, token string) Result {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckNotificationsFromConfig evaluates the notification provider.
func CheckNotificationsFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Notifications"

	switch cfg.Notifications.Provider {
	case config.ProviderWebhook:
		return CheckEndpoint(ctx, name, cfg.Notifications.URL, cfg.Notifications.Token)
	case config.ProviderNtfy:
		return CheckEndpoint(ctx, name, cfg.Notifications.NtfyTopic, cfg.Notifications.Token)
	default:
		return Result{Name: name, Passed: true, Optional: true, Detail: "Disabled"}
	}
}

// CheckRateLimiterFromConfig pings Redis when the shared limiter is selected.
func CheckRateLimiterFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Rate limiter"

	switch cfg.RateLimit.Backend {
	case config.LimiterOff:
		return Result{Name: name, Passed: true, Optional: true, Detail: "Disabled"}
	case config.LimiterRedis:
		limiter := ratelimit.NewRedisLimiter(cfg.RateLimit.RedisAddr, cfg.RateLimit.RedisPassword, cfg.RateLimit.RedisDB, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
		defer limiter.Close()

		checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := limiter.Ping(checkCtx); err != nil {
			// The limiter fails open, so an unreachable Redis degrades but
			// does not block serving.
			return Result{Name: name, Optional: true, Detail: fmt.Sprintf("redis %s (error: %v)", cfg.RateLimit.RedisAddr, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("redis %s reachable", cfg.RateLimit.RedisAddr)}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("memory (%d/min, burst %d)", cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)}
	}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (endpoint unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (endpoint unreachable)"
	}
	return err.Error()
}
