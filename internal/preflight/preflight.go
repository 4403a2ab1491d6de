package preflight

import (
	"context"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
	"github.com/AndersD76/portalpili-producao-sub005/internal/store"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional results never block startup.
	Optional bool
}

// RunAll executes all applicable preflight checks for the given config. st
// may be nil when the database could not be opened.
func RunAll(ctx context.Context, cfg *config.Config, st *store.Store) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if cfg.Artifacts.Backend == config.BackendFilesystem {
		results = append(results, CheckDirectoryAccess("Artifact directory", cfg.Artifacts.Dir))
	}

	results = append(results, CheckDatabase(ctx, st))

	if cfg.Server.InternalToken == "" {
		results = append(results, Result{Name: "Internal API", Passed: true, Optional: true, Detail: "Disabled (no internal token)"})
	}

	results = append(results, CheckNotificationsFromConfig(ctx, cfg))
	results = append(results, CheckRateLimiterFromConfig(ctx, cfg))

	return results
}

// Failed reports whether any required result failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
