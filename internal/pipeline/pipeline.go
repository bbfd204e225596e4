// Package pipeline builds the identification pipeline and its outbound
// clients from configuration. The server and the one-shot CLI share it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"musicscan/internal/config"
	"musicscan/internal/discogs"
	"musicscan/internal/identification"
	"musicscan/internal/logging"
	"musicscan/internal/ratelimit"
	"musicscan/internal/releasecache"
	"musicscan/internal/services"
	"musicscan/internal/services/gemini"
	"musicscan/internal/services/llm"
)

// VisionClient is a vision model that can also be probed for health.
type VisionClient interface {
	identification.VisionModel
	Model() string
	HealthCheck(ctx context.Context) error
}

// Components holds the pieces Build wires together.
type Components struct {
	Identifier *identification.Identifier
	Vision     VisionClient
	Catalog    *discogs.Client
	Policy     ratelimit.Policy
	Releases   *releasecache.Cache
}

// NewVisionClient returns the configured vision provider.
func NewVisionClient(cfg *config.Config) (VisionClient, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		client, err := gemini.New(gemini.Config{
			APIKey:         cfg.LLM.APIKey,
			Model:          cfg.LLM.Model,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "setup", "gemini client", "", err)
		}
		return client, nil
	case config.ProviderOpenRouter, "":
		return llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "setup", "vision client",
			fmt.Sprintf("unknown provider %q", cfg.LLM.Provider), nil)
	}
}

// NewCatalog returns a Discogs client using the configured credentials.
func NewCatalog(cfg *config.Config) (*discogs.Client, error) {
	client, err := discogs.New(
		discogs.Credentials{Token: cfg.Discogs.Token, Key: cfg.Discogs.Key, Secret: cfg.Discogs.Secret},
		cfg.Discogs.BaseURL,
		cfg.Discogs.UserAgent,
		discogs.WithTimeout(time.Duration(cfg.Discogs.TimeoutSeconds)*time.Second),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "setup", "discogs client", "", err)
	}
	return client, nil
}

// Build wires the identifier for st.
func Build(cfg *config.Config, st identification.Store, logger *slog.Logger) (*Components, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	logger = logging.NewComponentLogger(logger, "pipeline")

	vision, err := NewVisionClient(cfg)
	if err != nil {
		return nil, err
	}
	catalog, err := NewCatalog(cfg)
	if err != nil {
		return nil, err
	}
	policy, err := ratelimit.FromConfig(cfg.Discogs)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "setup", "rate limit", "", err)
	}

	components := &Components{Vision: vision, Catalog: catalog, Policy: policy}
	deps := identification.Dependencies{
		Store:         st,
		Vision:        vision,
		Catalog:       catalog,
		Policy:        policy,
		Thresholds:    identification.ThresholdsFromConfig(cfg.Identification),
		FallbackLimit: cfg.Identification.FallbackResultLimit,
		MinImages:     cfg.Identification.MinImages,
		Logger:        logger,
	}
	if cfg.Discogs.ReleaseCache {
		components.Releases = releasecache.New(cfg.Discogs.ReleaseCachePath, cfg.ReleaseCacheTTL(), logger)
		if components.Releases.Enabled() {
			deps.Releases = components.Releases
		}
	}

	identifier, err := identification.NewIdentifier(deps)
	if err != nil {
		return nil, err
	}
	components.Identifier = identifier

	logger.Info("identification pipeline ready",
		logging.String("llm_provider", cfg.LLM.Provider),
		logging.String("llm_model", vision.Model()),
		logging.String("rate_limit_mode", cfg.Discogs.RateLimitMode),
		logging.Duration("request_delay", cfg.RequestDelay()),
		logging.Bool("release_cache", deps.Releases != nil))
	return components, nil
}
