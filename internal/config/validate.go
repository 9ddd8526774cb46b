package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if c.Generation.MaxVariantsPerSlot <= 0 {
		return errors.New("generation.max_variants_per_slot must be positive")
	}
	if c.Generation.DefaultBatchSize <= 0 {
		return errors.New("generation.default_batch_size must be positive")
	}
	if c.Generation.BatchDelaySeconds < 0 {
		return errors.New("generation.batch_delay_seconds must not be negative")
	}
	if c.Generation.RequestTimeoutSeconds <= 0 {
		return errors.New("generation.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateVideo() error {
	return ensurePositiveMap(map[string]int{
		"video.poll_interval_seconds": c.Video.PollIntervalSeconds,
		"video.poll_budget_seconds":   c.Video.PollBudgetSeconds,
		"video.merge_timeout_seconds": c.Video.MergeTimeoutSeconds,
	})
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.task_poll_interval":   c.Workflow.TaskPollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	})
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

func (c *Config) normalize() error {
	pathFields := []*string{
		&c.Paths.DataDir,
		&c.Paths.OutputDir,
		&c.Paths.LogDir,
		&c.History.Path,
	}
	for _, field := range pathFields {
		if strings.TrimSpace(*field) == "" {
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Wanx.APIKey = strings.TrimSpace(c.Wanx.APIKey)
	c.Wanx.BaseURL = strings.TrimRight(strings.TrimSpace(c.Wanx.BaseURL), "/")
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	return nil
}
