package config

const (
	defaultConfigPath             = "~/.config/handcut/config.toml"
	defaultLogDir                 = "~/.local/share/handcut/logs"
	defaultDataDir                = "~/.local/share/handcut"
	defaultSQLiteName             = "hands.db"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLLMBaseURL             = "https://openrouter.ai/api/v1"
	defaultLLMModel               = "anthropic/claude-3.5-sonnet"
	defaultLLMReferer             = "https://github.com/handcut/handcut"
	defaultLLMTitle               = "handcut"
	defaultLLMTimeoutSeconds      = 60
	defaultSampleInterval         = 10
	defaultQuality                = 2
	defaultScale                  = "1280:-2"
	defaultConcurrency            = DefaultConcurrency
	defaultThreshold              = DefaultThreshold
	defaultMinHandDuration        = DefaultMinHandDuration
	defaultMaxHandDuration        = DefaultMaxHandDuration
	defaultParseAttempts          = 3
	defaultClassifyTimeoutSeconds = 60
	defaultRunTimeoutSeconds      = 1800
	defaultFFmpegBinary           = "ffmpeg"
	defaultFFprobeBinary          = "ffprobe"
	defaultNotifyRequestTimeout   = 10
	defaultLogRetentionDays       = 14
)

// Detection defaults. The detection package applies the same values to
// zero fields of a run config.
const (
	DefaultConcurrency     = 3
	DefaultThreshold       = 0.7
	DefaultMinHandDuration = 30
	DefaultMaxHandDuration = 600
)

// Failure policies for per-frame classification errors.
const (
	FailurePolicyFailFast = "fail_fast"
	FailurePolicySkip     = "skip"
)

// Storage backends.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:  defaultLogDir,
			DataDir: defaultDataDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Detection: Detection{
			SampleInterval:         defaultSampleInterval,
			Quality:                defaultQuality,
			Scale:                  defaultScale,
			Concurrency:            defaultConcurrency,
			Threshold:              defaultThreshold,
			MinHandDuration:        defaultMinHandDuration,
			MaxHandDuration:        defaultMaxHandDuration,
			FailurePolicy:          FailurePolicyFailFast,
			ParseAttempts:          defaultParseAttempts,
			ClassifyTimeoutSeconds: defaultClassifyTimeoutSeconds,
			RunTimeoutSeconds:      defaultRunTimeoutSeconds,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Storage: Storage{
			Backend: StorageSQLite,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunCompleted:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
