package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/AndersD76/portalpili-producao-sub005/internal/artifacts"
	"github.com/AndersD76/portalpili-producao-sub005/internal/issuer"
	"github.com/AndersD76/portalpili-producao-sub005/internal/logging"
	"github.com/AndersD76/portalpili-producao-sub005/internal/notifications"
	"github.com/AndersD76/portalpili-producao-sub005/internal/preflight"
	"github.com/AndersD76/portalpili-producao-sub005/internal/ratelimit"
	"github.com/AndersD76/portalpili-producao-sub005/internal/reconcile"
	"github.com/AndersD76/portalpili-producao-sub005/internal/server"
	"github.com/AndersD76/portalpili-producao-sub005/internal/telemetry"
	"github.com/AndersD76/portalpili-producao-sub005/internal/transition"
)

const serviceVersion = "0.1.0"

func newServeCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and notification workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(runCtx, ctx, skipPreflight)
		},
	}
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Start even when preflight checks fail")
	return cmd
}

func runServe(ctx context.Context, cc *commandContext, skipPreflight bool) error {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return err
	}
	cc.serving = true
	logger := cc.ensureLogger()

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another portal server is already running (lock %s)", cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release server lock", logging.Error(err))
		}
	}()

	st, err := cc.ensureStore()
	if err != nil {
		return err
	}

	results := preflight.RunAll(ctx, cfg, st)
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight passed", logging.String("check", r.Name), logging.String("detail", r.Detail))
			continue
		}
		logger.Warn("preflight failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.Bool("optional", r.Optional),
		)
	}
	if preflight.Failed(results) && !skipPreflight {
		return errors.New("preflight checks failed; run `portal doctor` for details")
	}

	provider, shutdownMetrics, err := telemetry.Setup(ctx, cfg.Telemetry, "portal", serviceVersion)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(flushCtx); err != nil {
			logger.Warn("telemetry shutdown", logging.Error(err))
		}
	}()
	metrics, err := telemetry.New(provider)
	if err != nil {
		return err
	}

	blob, err := artifacts.NewBlobFromConfig(ctx, cfg.Artifacts)
	if err != nil {
		return fmt.Errorf("artifact backend: %w", err)
	}
	limiter, err := ratelimit.New(cfg.RateLimit)
	if err != nil {
		return err
	}
	if closer, ok := limiter.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	dispatcher := notifications.NewDispatcher(
		notifications.NewSender(cfg.Notifications),
		logger,
		notifications.WithWorkers(cfg.Notifications.Workers),
		notifications.WithQueueSize(cfg.Notifications.QueueSize),
		notifications.WithSendTimeout(time.Duration(cfg.Notifications.RequestTimeout)*time.Second),
		notifications.WithDispatchMetrics(metrics),
		notifications.WithDeliveryHook(func(ctx context.Context, job notifications.Job, receipt notifications.Receipt) error {
			return st.RecordNotification(ctx, job.TokenID, job.Recipient, receipt.ProviderMessageID)
		}),
	)
	dispatcher.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		if err := dispatcher.Stop(stopCtx); err != nil {
			logger.Warn("notification dispatcher stop", logging.Error(err))
		}
	}()

	applier := transition.New(st, logger)
	srv, err := server.New(cfg, server.Services{
		Store:      st,
		Issuer:     issuer.New(st, logger, issuer.WithMetrics(metrics)),
		Reconciler: reconcile.New(st, applier, logger, reconcile.WithMetrics(metrics)),
		Artifacts:  artifacts.NewService(st, blob, logger, artifacts.WithMetrics(metrics)),
		Dispatcher: dispatcher,
		Renderer:   notifications.NewRenderer(cfg.Notifications.Locale),
		Limiter:    limiter,
	}, logger, server.WithMetrics(metrics))
	if err != nil {
		return err
	}

	logger.Info("portal starting",
		logging.String("listen", cfg.Server.Listen),
		logging.String("public_base_url", cfg.Server.PublicBaseURL),
		logging.String("database", st.Driver()),
		logging.String("artifacts", cfg.Artifacts.Backend),
		logging.String("notifications", cfg.Notifications.Provider),
		logging.Bool("internal_api", strings.TrimSpace(cfg.Server.InternalToken) != ""),
		logging.String("config", cc.configPath),
	)
	if err := srv.Serve(ctx); err != nil {
		return err
	}
	logger.Info("portal stopped")
	return nil
}
