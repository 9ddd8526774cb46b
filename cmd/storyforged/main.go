package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storyforge/internal/config"
	"storyforge/internal/daemon"
	"storyforge/internal/history"
	"storyforge/internal/logging"
	"storyforge/internal/project"
	"storyforge/internal/services/wanx"
	"storyforge/internal/videotask"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storyforged: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	if cfg.Wanx.APIKey == "" {
		return fmt.Errorf("wanx.api_key is not set; the daemon cannot process video tasks without it")
	}
	backend, err := wanx.New(cfg.Wanx.APIKey, logger,
		wanx.WithBaseURL(cfg.Wanx.BaseURL),
		wanx.WithImageModel(cfg.Wanx.ImageModel),
		wanx.WithVideoModel(cfg.Wanx.VideoModel))
	if err != nil {
		return err
	}

	store, err := project.Open(cfg.ProjectsFile(), logger)
	if err != nil {
		return err
	}

	var journal *history.Journal
	if cfg.History.Enabled {
		journal, err = history.Open(cfg.HistoryPath())
		if err != nil {
			logger.Warn("history journal unavailable", logging.Error(err))
			journal = nil
		}
	}
	defer func() {
		if journal != nil {
			_ = journal.Close()
		}
	}()

	tracker := videotask.New(store, backend, cfg.VideoInputsDir(), logger,
		videotask.WithPollInterval(time.Duration(cfg.Video.PollIntervalSeconds)*time.Second),
		videotask.WithPollBudget(time.Duration(cfg.Video.PollBudgetSeconds)*time.Second),
		videotask.WithModel(cfg.Wanx.VideoModel),
		videotask.WithJournal(journal),
	)
	runner := videotask.NewRunner(store, tracker,
		time.Duration(cfg.Workflow.TaskPollInterval)*time.Second,
		time.Duration(cfg.Workflow.ErrorRetryInterval)*time.Second,
		logger)

	d, err := daemon.New(cfg, store, runner, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Start(ctx); err != nil {
		return err
	}
	status := d.Status()
	logger.Info("storyforged ready",
		logging.String("projects_file", status.ProjectsFile),
		logging.String("lock_file", status.LockFilePath))

	<-ctx.Done()
	d.Stop()
	return nil
}
