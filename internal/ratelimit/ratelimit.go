// Package ratelimit throttles public requests per client address.
//
// The memory limiter keeps one token bucket per address in process; the
// redis limiter shares buckets between instances. Limiter errors fail open:
// a broken limiter backend must not take the public links down with it.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
	"github.com/AndersD76/portalpili-producao-sub005/internal/logging"
)

// Limiter decides whether key may make another request now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// New builds the limiter selected by cfg.Backend. It returns nil when rate
// limiting is off.
func New(cfg config.RateLimit) (Limiter, error) {
	switch cfg.Backend {
	case config.LimiterOff:
		return nil, nil
	case config.LimiterMemory, "":
		return NewMemoryLimiter(cfg.RequestsPerMinute, cfg.Burst), nil
	case config.LimiterRedis:
		return NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RequestsPerMinute, cfg.Burst), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", cfg.Backend)
	}
}

// Middleware rejects requests over the limit with reject. A nil limiter
// passes everything through.
func Middleware(limiter Limiter, logger *slog.Logger, reject http.HandlerFunc) func(http.Handler) http.Handler {
	logger = logging.NewComponentLogger(logger, "ratelimit")
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logging.WithContext(r.Context(), logger).Warn("rate limiter unavailable",
					logging.Error(err),
					logging.Alert("ratelimit_unavailable"),
				)
				allowed = true
			}
			if !allowed {
				logging.WithContext(r.Context(), logger).Debug("request throttled", logging.String("client_ip", ip))
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the remote address without its port.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = strings.TrimSuffix(strings.TrimPrefix(r.RemoteAddr, "["), "]")
	}
	return ip
}
