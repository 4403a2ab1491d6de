package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
	"github.com/AndersD76/portalpili-producao-sub005/internal/issuer"
	"github.com/AndersD76/portalpili-producao-sub005/internal/logging"
	"github.com/AndersD76/portalpili-producao-sub005/internal/notifications"
	"github.com/AndersD76/portalpili-producao-sub005/internal/store"
	"github.com/AndersD76/portalpili-producao-sub005/internal/telemetry"
	"github.com/AndersD76/portalpili-producao-sub005/internal/transition"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	storeOnce sync.Once
	store     *store.Store
	storeErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	// serving routes logs to stdout as well; operator commands only write
	// the log file so their output stays parseable.
	serving bool
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// ensureLogger builds the configured logger, falling back to a no-op one
// when configuration failed to load.
func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		var logger *slog.Logger
		if c.serving {
			logger, err = logging.NewFromConfig(cfg)
		} else {
			logger, err = logging.New(logging.Options{
				Level:   cfg.Logging.Level,
				Format:  "json",
				Outputs: []string{filepath.Join(cfg.Paths.LogDir, logging.LogFileName)},
			})
		}
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) ensureStore() (*store.Store, error) {
	c.storeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.storeErr = err
			return
		}
		st, err := store.Open(cfg)
		if err != nil {
			c.storeErr = fmt.Errorf("open workflow store: %w", err)
			return
		}
		c.store = st
	})
	return c.store, c.storeErr
}

func (c *commandContext) close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

func (c *commandContext) newIssuer(metrics *telemetry.Metrics) (*issuer.Issuer, error) {
	st, err := c.ensureStore()
	if err != nil {
		return nil, err
	}
	return issuer.New(st, c.ensureLogger(), issuer.WithMetrics(metrics)), nil
}

func (c *commandContext) newApplier() (*transition.Applier, error) {
	st, err := c.ensureStore()
	if err != nil {
		return nil, err
	}
	return transition.New(st, c.ensureLogger()), nil
}

func (c *commandContext) newRenderer() *notifications.Renderer {
	cfg := c.configValue()
	if cfg == nil {
		return notifications.NewRenderer("")
	}
	return notifications.NewRenderer(cfg.Notifications.Locale)
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// deliver sends msg synchronously and records the provider message id on
// the token header when tokenID is known.
func (c *commandContext) deliver(ctx context.Context, tokenID int64, recipient string, msg notifications.Message) (notifications.Receipt, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return notifications.Receipt{}, err
	}
	receipt, err := notifications.NewSender(cfg.Notifications).Send(ctx, recipient, msg)
	if err != nil {
		return receipt, err
	}
	if tokenID != 0 && receipt.Delivered {
		st, err := c.ensureStore()
		if err != nil {
			return receipt, err
		}
		if err := st.RecordNotification(ctx, tokenID, recipient, receipt.ProviderMessageID); err != nil {
			return receipt, err
		}
	}
	return receipt, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
