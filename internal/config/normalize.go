package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeLLM()
	if err := c.normalizeDiscogs(); err != nil {
		return err
	}
	c.normalizeIdentification()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("MUSICSCAN_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
	origins := make([]string, 0, len(c.API.AllowedOrigins))
	for _, origin := range c.API.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.API.AllowedOrigins = origins
	if c.API.ReadTimeoutSeconds <= 0 {
		c.API.ReadTimeoutSeconds = defaultAPIReadTimeoutSeconds
	}
	if c.API.WriteTimeoutSeconds <= 0 {
		c.API.WriteTimeoutSeconds = defaultAPIWriteTimeoutSeconds
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		envKeys := []string{"OPENROUTER_API_KEY", "OPENAI_API_KEY"}
		if c.LLM.Provider == ProviderGemini {
			envKeys = []string{"GEMINI_API_KEY"}
		}
		for _, key := range envKeys {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" || (c.LLM.Provider == ProviderGemini && c.LLM.Model == defaultLLMModel) {
		if c.LLM.Provider == ProviderGemini {
			c.LLM.Model = defaultGeminiModel
		} else {
			c.LLM.Model = defaultLLMModel
		}
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeDiscogs() error {
	lookup := func(current *string, env string) {
		*current = strings.TrimSpace(*current)
		if *current != "" {
			return
		}
		if value, ok := os.LookupEnv(env); ok {
			*current = strings.TrimSpace(value)
		}
	}
	lookup(&c.Discogs.Token, "DISCOGS_TOKEN")
	lookup(&c.Discogs.Key, "DISCOGS_KEY")
	lookup(&c.Discogs.Secret, "DISCOGS_SECRET")

	c.Discogs.BaseURL = strings.TrimRight(strings.TrimSpace(c.Discogs.BaseURL), "/")
	if c.Discogs.BaseURL == "" {
		c.Discogs.BaseURL = defaultDiscogsBaseURL
	}
	c.Discogs.UserAgent = strings.TrimSpace(c.Discogs.UserAgent)
	if c.Discogs.UserAgent == "" {
		c.Discogs.UserAgent = defaultDiscogsUserAgent
	}
	if c.Discogs.TimeoutSeconds <= 0 {
		c.Discogs.TimeoutSeconds = defaultDiscogsTimeoutSeconds
	}
	if c.Discogs.RequestDelayMS < 0 {
		c.Discogs.RequestDelayMS = 0
	}
	c.Discogs.RateLimitMode = strings.ToLower(strings.TrimSpace(c.Discogs.RateLimitMode))
	if c.Discogs.RateLimitMode == "" {
		c.Discogs.RateLimitMode = defaultDiscogsRateLimitMode
	}
	if c.Discogs.RequestsPerMinute <= 0 {
		c.Discogs.RequestsPerMinute = defaultDiscogsRequestsPerMin
	}
	if strings.TrimSpace(c.Discogs.ReleaseCachePath) == "" {
		c.Discogs.ReleaseCachePath = defaultReleaseCachePath
	}
	if c.Discogs.ReleaseCacheTTLHours < 0 {
		c.Discogs.ReleaseCacheTTLHours = 0
	}
	var err error
	if c.Discogs.ReleaseCachePath, err = expandPath(c.Discogs.ReleaseCachePath); err != nil {
		return fmt.Errorf("discogs.release_cache_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeIdentification() {
	if c.Identification.MaxRankedCandidates <= 0 {
		c.Identification.MaxRankedCandidates = defaultMaxRankedCandidates
	}
	if c.Identification.FallbackResultLimit <= 0 {
		c.Identification.FallbackResultLimit = defaultFallbackResultLimit
	}
	if c.Identification.MinImages <= 0 {
		c.Identification.MinImages = defaultMinImages
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
