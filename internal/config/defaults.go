package config

const (
	defaultCacheDir                  = "~/.local/share/subflow/cache"
	defaultLogDir                    = "~/.local/share/subflow/logs"
	defaultSubtitleDBBaseURL         = "https://api.opensubtitles.com/api/v1"
	defaultSubtitleDBUserAgent       = "subflow/dev"
	defaultDuplicateStalenessSeconds = 120
	defaultNamerBaseURL              = "https://api.opensubtitles.com/api/v1/utilities"
	defaultTaggerBaseURL             = "https://api.opensubtitles.com/api/v1/utilities"
	defaultLangDetectBaseURL         = "https://api.opensubtitles.com/api/v1/utilities"
	defaultCacheTTLHours             = 72
	defaultPipelineConcurrency       = 4
	defaultRetryAttempts             = 3
	defaultRetryInitialSeconds       = 1
	defaultRetryMaxSeconds           = 8
	defaultStaggerMilliseconds       = 150
	defaultRequestTimeoutSeconds     = 10
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
		},
		SubtitleDB: SubtitleDB{
			UserAgent:                 defaultSubtitleDBUserAgent,
			BaseURL:                   defaultSubtitleDBBaseURL,
			DuplicateStalenessSeconds: defaultDuplicateStalenessSeconds,
		},
		Namer: Namer{
			BaseURL: defaultNamerBaseURL,
		},
		Tagger: Tagger{
			BaseURL: defaultTaggerBaseURL,
		},
		LangDetect: LangDetect{
			BaseURL: defaultLangDetectBaseURL,
		},
		Cache: Cache{
			TTLHours: defaultCacheTTLHours,
		},
		Pipeline: Pipeline{
			Concurrency:           defaultPipelineConcurrency,
			RetryAttempts:         defaultRetryAttempts,
			RetryInitialSeconds:   defaultRetryInitialSeconds,
			RetryMaxSeconds:       defaultRetryMaxSeconds,
			StaggerMilliseconds:   defaultStaggerMilliseconds,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
