package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"storyforge/internal/api"
	"storyforge/internal/assembly"
	"storyforge/internal/config"
	"storyforge/internal/generation"
	"storyforge/internal/history"
	"storyforge/internal/logging"
	"storyforge/internal/project"
	"storyforge/internal/services"
	"storyforge/internal/services/scriptllm"
	"storyforge/internal/services/wanx"
	"storyforge/internal/variant"
	"storyforge/internal/videotask"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// openService wires the full service stack. The returned cleanup must be
// called when the command finishes.
func (c *commandContext) openService() (*api.Service, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := project.Open(cfg.ProjectsFile(), logger)
	if err != nil {
		return nil, nil, err
	}

	var journal *history.Journal
	if cfg.History.Enabled {
		journal, err = history.Open(cfg.HistoryPath())
		if err != nil {
			logger.Warn("history journal unavailable", logging.Error(err))
			journal = nil
		}
	}
	cleanup := func() {
		if journal != nil {
			_ = journal.Close()
		}
	}

	imageBackend, videoBackend := c.buildBackends(cfg, logger)

	orchestrator := generation.New(store, imageBackend, logger,
		generation.WithBatchDelay(time.Duration(cfg.Generation.BatchDelaySeconds)*time.Second),
		generation.WithRequestTimeout(time.Duration(cfg.Generation.RequestTimeoutSeconds)*time.Second),
		generation.WithPolicy(retentionPolicy(cfg)),
		generation.WithJournal(journal),
	)

	tracker := videotask.New(store, videoBackend, cfg.VideoInputsDir(), logger,
		videotask.WithPollInterval(time.Duration(cfg.Video.PollIntervalSeconds)*time.Second),
		videotask.WithPollBudget(time.Duration(cfg.Video.PollBudgetSeconds)*time.Second),
		videotask.WithModel(cfg.Wanx.VideoModel),
		videotask.WithJournal(journal),
	)

	muxer := assembly.NewFFmpegMuxer(cfg.FFmpegBinary(),
		time.Duration(cfg.Video.MergeTimeoutSeconds)*time.Second)
	merger := assembly.NewMerger(store, muxer, cfg.Paths.OutputDir, logger)

	opts := []api.Option{api.WithJournal(journal)}
	if cfg.LLM.APIKey != "" {
		analyzer, err := scriptllm.New(cfg.LLM.APIKey, logger,
			scriptllm.WithBaseURL(cfg.LLM.BaseURL),
			scriptllm.WithModel(cfg.LLM.Model),
			scriptllm.WithTimeout(time.Duration(cfg.LLM.TimeoutSeconds)*time.Second))
		if err == nil {
			opts = append(opts, api.WithAnalyzer(analyzer))
		}
	}

	service := api.NewService(store, orchestrator, tracker, merger, logger, opts...)
	return service, cleanup, nil
}

// buildBackends returns the provider clients, or stand-ins that fail with a
// configuration error when no API key is set. Commands that never reach a
// provider still work without credentials.
func (c *commandContext) buildBackends(cfg *config.Config, logger *slog.Logger) (generation.Backend, videotask.VideoBackend) {
	if cfg.Wanx.APIKey == "" {
		return unconfiguredBackend{}, unconfiguredBackend{}
	}
	client, err := wanx.New(cfg.Wanx.APIKey, logger,
		wanx.WithBaseURL(cfg.Wanx.BaseURL),
		wanx.WithImageModel(cfg.Wanx.ImageModel),
		wanx.WithVideoModel(cfg.Wanx.VideoModel))
	if err != nil {
		return unconfiguredBackend{}, unconfiguredBackend{}
	}
	return client, client
}

func retentionPolicy(cfg *config.Config) variant.Policy {
	return variant.Policy{MaxNonFavorited: cfg.Generation.MaxVariantsPerSlot}
}

type unconfiguredBackend struct{}

func (unconfiguredBackend) GenerateImage(context.Context, generation.ImageRequest) (generation.Artifact, error) {
	return generation.Artifact{}, errProviderUnconfigured()
}

func (unconfiguredBackend) Start(context.Context, videotask.Request) (videotask.Handle, error) {
	return videotask.Handle{}, errProviderUnconfigured()
}

func (unconfiguredBackend) Poll(context.Context, videotask.Handle) (videotask.PollStatus, error) {
	return videotask.PollStatus{}, errProviderUnconfigured()
}

func errProviderUnconfigured() error {
	return services.Wrap(services.ErrConfiguration, "wanx", "request",
		"wanx.api_key is not set (edit the config created by 'storyforge config init')", nil)
}
