package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"handcut/internal/config"
	"handcut/internal/frames"
	"handcut/internal/handstore"
	"handcut/internal/logging"
	"handcut/internal/services"
	"handcut/internal/workflow"
)

type commandContext struct {
	configFlag *string
	runnerOpts []workflow.Option

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	logCloser  io.Closer
	loggerErr  error
}

func newCommandContext(configFlag *string, runnerOpts []workflow.Option) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		runnerOpts: runnerOpts,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", path, err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "directories", "", err)
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// ensureLogger builds the run logger on first use and sweeps frame
// directories left behind by crashed runs.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, closer, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
		c.logCloser = closer
		if removed, err := frames.SweepStale(cfg.Paths.WorkDir, logger); err != nil {
			logging.WarnWithContext(logger, "stale frame sweep failed", "workdir_sweep_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on paths.work_dir"),
				logging.String(logging.FieldImpact, "old frame directories remain on disk"),
			)
		} else if removed > 0 {
			logger.Info("removed stale frame directories", logging.Int("count", removed))
		}
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openStore(ctx context.Context) (handstore.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return handstore.Open(ctx, cfg)
}

func (c *commandContext) close() {
	if c.logCloser != nil {
		_ = c.logCloser.Close()
		c.logCloser = nil
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
