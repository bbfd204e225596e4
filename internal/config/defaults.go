package config

const (
	defaultDataDir                = "~/.local/share/musicscan"
	defaultLogDir                 = "~/.local/share/musicscan/logs"
	defaultAPIBind                = "127.0.0.1:7488"
	defaultLLMProvider            = ProviderOpenRouter
	defaultLLMBaseURL             = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel               = "google/gemini-2.5-flash"
	defaultGeminiModel            = "gemini-1.5-flash"
	defaultLLMReferer             = "https://musicscan.app"
	defaultLLMTitle               = "MusicScan CD Identifier"
	defaultLLMTimeoutSeconds      = 60
	defaultDiscogsBaseURL         = "https://api.discogs.com"
	defaultDiscogsUserAgent       = "MusicScan/0.1 +https://musicscan.app"
	defaultDiscogsTimeoutSeconds  = 15
	defaultDiscogsRequestDelayMS  = 1100
	defaultDiscogsRateLimitMode   = RateLimitFixed
	defaultDiscogsRequestsPerMin  = 55
	defaultReleaseCachePath       = "~/.cache/musicscan/releases.json"
	defaultReleaseCacheTTLHours   = 24 * 30
	defaultMinMatchScore          = 0.85
	defaultMinScoreGap            = 0.15
	defaultUnverifiedPressingCap  = 0.79
	defaultMaxRankedCandidates    = 5
	defaultFallbackResultLimit    = 10
	defaultMinImages              = 2
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultAPIReadTimeoutSeconds  = 15
	defaultAPIWriteTimeoutSeconds = 180
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		API: API{
			Bind:                defaultAPIBind,
			AllowedOrigins:      []string{"*"},
			ReadTimeoutSeconds:  defaultAPIReadTimeoutSeconds,
			WriteTimeoutSeconds: defaultAPIWriteTimeoutSeconds,
		},
		LLM: LLM{
			Provider:       defaultLLMProvider,
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Discogs: Discogs{
			BaseURL:              defaultDiscogsBaseURL,
			UserAgent:            defaultDiscogsUserAgent,
			TimeoutSeconds:       defaultDiscogsTimeoutSeconds,
			RequestDelayMS:       defaultDiscogsRequestDelayMS,
			RateLimitMode:        defaultDiscogsRateLimitMode,
			RequestsPerMinute:    defaultDiscogsRequestsPerMin,
			ReleaseCachePath:     defaultReleaseCachePath,
			ReleaseCacheTTLHours: defaultReleaseCacheTTLHours,
		},
		Identification: Identification{
			MinMatchScore:         defaultMinMatchScore,
			MinScoreGap:           defaultMinScoreGap,
			UnverifiedPressingCap: defaultUnverifiedPressingCap,
			MaxRankedCandidates:   defaultMaxRankedCandidates,
			FallbackResultLimit:   defaultFallbackResultLimit,
			MinImages:             defaultMinImages,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
