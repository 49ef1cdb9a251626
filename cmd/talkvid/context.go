package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"talkvid/internal/artifact"
	"talkvid/internal/avgraph"
	"talkvid/internal/avsync"
	"talkvid/internal/config"
	"talkvid/internal/ffmpeg"
	"talkvid/internal/logging"
	"talkvid/internal/services"
	"talkvid/internal/talk"
	"talkvid/internal/template"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	servicesOnce sync.Once
	logger       *slog.Logger
	store        *artifact.Store
	renderer     *avgraph.Renderer
	servicesErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
			if err := cfg.Validate(); err != nil {
				c.configErr = err
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureServices builds the logger, artifact store and renderer shared by
// the commands that touch media.
func (c *commandContext) ensureServices() error {
	c.servicesOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.servicesErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.servicesErr = err
			return
		}
		store, err := artifact.NewStore(cfg, logger)
		if err != nil {
			c.servicesErr = err
			return
		}
		runner := ffmpeg.NewRunner(cfg.Tools.FFmpeg, logger)
		defaults := avgraph.Format{
			Container:  cfg.Render.Format,
			VideoCodec: cfg.Render.VideoCodec,
			AudioCodec: cfg.Render.AudioCodec,
		}
		c.logger = logger
		c.store = store
		c.renderer = avgraph.NewRenderer(store, runner, defaults, cfg.Render.ExtraArgs, logger)
	})
	return c.servicesErr
}

func (c *commandContext) graphEnv() avgraph.Env {
	return avgraph.Env{Store: c.store, FFprobe: c.config.Tools.FFprobe, Logger: c.logger}
}

func (c *commandContext) syncEngine() *avsync.Engine {
	return avsync.NewEngine(c.renderer, c.config.Sync, c.logger)
}

func (c *commandContext) talkEnv() talk.Env {
	return talk.Env{
		Graph:    c.graphEnv(),
		Inkscape: template.NewRenderer(c.store, c.config.Tools.Inkscape, c.logger),
		Sync:     c.syncEngine(),
		Logger:   c.logger,
	}
}

// runContext tags ctx with a fresh run ID so every log line of one
// invocation can be correlated.
func (c *commandContext) runContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return services.WithRunID(ctx, uuid.NewString())
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
