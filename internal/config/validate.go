package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateDiscogs(); err != nil {
		return err
	}
	if err := c.validateIdentification(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderOpenRouter, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider: unsupported value %q (expected %q or %q)", c.LLM.Provider, ProviderOpenRouter, ProviderGemini)
	}
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/musicscan/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set OPENROUTER_API_KEY (or GEMINI_API_KEY) or edit %s (create with 'musicscan config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateDiscogs() error {
	if !c.HasDiscogsCredentials() {
		if strings.TrimSpace(c.Discogs.Key) != "" || strings.TrimSpace(c.Discogs.Secret) != "" {
			return errors.New("discogs.key and discogs.secret must be set together")
		}
		return errors.New("discogs credentials are required. Set DISCOGS_TOKEN or DISCOGS_KEY/DISCOGS_SECRET")
	}
	switch c.Discogs.RateLimitMode {
	case RateLimitFixed, RateLimitTokenBucket:
	default:
		return fmt.Errorf("discogs.rate_limit_mode: unsupported value %q", c.Discogs.RateLimitMode)
	}
	return nil
}

func (c *Config) validateIdentification() error {
	id := c.Identification
	for name, value := range map[string]float64{
		"identification.min_match_score":         id.MinMatchScore,
		"identification.min_score_gap":           id.MinScoreGap,
		"identification.unverified_pressing_cap": id.UnverifiedPressingCap,
	} {
		if value <= 0 || value > 1 {
			return fmt.Errorf("%s must be within (0, 1]", name)
		}
	}
	if id.UnverifiedPressingCap >= id.MinMatchScore {
		return fmt.Errorf(
			"identification.unverified_pressing_cap (%.2f) must be below identification.min_match_score (%.2f)",
			id.UnverifiedPressingCap, id.MinMatchScore,
		)
	}
	if id.MinImages < 1 {
		return errors.New("identification.min_images must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
