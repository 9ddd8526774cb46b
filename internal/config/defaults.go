package config

const (
	defaultDataDir            = "~/.local/share/storyforge"
	defaultOutputDir          = "~/.local/share/storyforge/output"
	defaultLogDir             = "~/.local/share/storyforge/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultMaxVariants        = 10
	defaultBatchSize          = 1
	defaultBatchDelaySeconds  = 1
	defaultRequestTimeout     = 300
	defaultVideoPollInterval  = 15
	defaultVideoPollBudget    = 900
	defaultMergeTimeout       = 600
	defaultTaskPollInterval   = 5
	defaultErrorRetryInterval = 30
	defaultWanxBaseURL        = "https://dashscope.aliyuncs.com"
	defaultWanxImageModel     = "wanx2.1-t2i-turbo"
	defaultWanxVideoModel     = "wanx2.1-i2v-turbo"
	defaultLLMBaseURL         = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	defaultLLMModel           = "qwen-plus"
	defaultLLMTimeoutSeconds  = 120
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Generation: Generation{
			MaxVariantsPerSlot:    defaultMaxVariants,
			DefaultBatchSize:      defaultBatchSize,
			BatchDelaySeconds:     defaultBatchDelaySeconds,
			RequestTimeoutSeconds: defaultRequestTimeout,
		},
		Video: Video{
			PollIntervalSeconds: defaultVideoPollInterval,
			PollBudgetSeconds:   defaultVideoPollBudget,
			MergeTimeoutSeconds: defaultMergeTimeout,
		},
		Wanx: Wanx{
			BaseURL:    defaultWanxBaseURL,
			ImageModel: defaultWanxImageModel,
			VideoModel: defaultWanxVideoModel,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Workflow: Workflow{
			TaskPollInterval:   defaultTaskPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
	}
}
