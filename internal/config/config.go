package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// LLM providers understood by the extractor.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// Rate limit modes for catalog requests.
const (
	RateLimitFixed       = "fixed"
	RateLimitTokenBucket = "token_bucket"
)

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// API contains HTTP listener configuration.
type API struct {
	Bind                string   `toml:"bind"`
	Token               string   `toml:"token"`
	AllowedOrigins      []string `toml:"allowed_origins"`
	ReadTimeoutSeconds  int      `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `toml:"write_timeout_seconds"`
}

// LLM contains the vision model connection settings used by the extractor.
type LLM struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Discogs contains catalog API configuration.
type Discogs struct {
	Token                string `toml:"token"`
	Key                  string `toml:"key"`
	Secret               string `toml:"secret"`
	BaseURL              string `toml:"base_url"`
	UserAgent            string `toml:"user_agent"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
	RequestDelayMS       int    `toml:"request_delay_ms"`
	RateLimitMode        string `toml:"rate_limit_mode"`
	RequestsPerMinute    int    `toml:"requests_per_minute"`
	ReleaseCache         bool   `toml:"release_cache"`
	ReleaseCachePath     string `toml:"release_cache_path"`
	ReleaseCacheTTLHours int    `toml:"release_cache_ttl_hours"`
}

// Identification contains the decision thresholds of the scoring stage.
type Identification struct {
	// MinMatchScore is the capped score the top candidate must reach for a
	// single match.
	MinMatchScore float64 `toml:"min_match_score"`
	// MinScoreGap is the separation required between the top two candidates.
	MinScoreGap float64 `toml:"min_score_gap"`
	// UnverifiedPressingCap bounds confidence when neither matrix nor IFPI
	// codes were read. Must stay below MinMatchScore.
	UnverifiedPressingCap float64 `toml:"unverified_pressing_cap"`
	MaxRankedCandidates   int     `toml:"max_ranked_candidates"`
	FallbackResultLimit   int     `toml:"fallback_result_limit"`
	MinImages             int     `toml:"min_images"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for MusicScan.
//
// Configuration sections by subsystem:
//   - Paths: data directory (database, lock file) and log directory
//   - API: HTTP bind address, bearer token, CORS origins
//   - LLM: vision model used for field extraction
//   - Discogs: catalog credentials, rate limiting, release cache
//   - Identification: scoring thresholds and candidate limits
//   - Logging: log format and level
type Config struct {
	Paths          Paths          `toml:"paths"`
	API            API            `toml:"api"`
	LLM            LLM            `toml:"llm"`
	Discogs        Discogs        `toml:"discogs"`
	Identification Identification `toml:"identification"`
	Logging        Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/musicscan/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("musicscan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for server operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Discogs.ReleaseCache && strings.TrimSpace(c.Discogs.ReleaseCachePath) != "" {
		if err := os.MkdirAll(filepath.Dir(c.Discogs.ReleaseCachePath), 0o755); err != nil {
			return fmt.Errorf("create release cache directory: %w", err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "musicscan.db")
}

// LockPath returns the single-instance lock file used by the server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "musicscand.lock")
}

// ReleaseCacheTTL returns how long cached release details stay fresh. Zero
// keeps them forever.
func (c *Config) ReleaseCacheTTL() time.Duration {
	return time.Duration(c.Discogs.ReleaseCacheTTLHours) * time.Hour
}

// RequestDelay returns the fixed pause applied after each catalog request.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.Discogs.RequestDelayMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// HasDiscogsCredentials reports whether a token or key/secret pair is configured.
func (c *Config) HasDiscogsCredentials() bool {
	if strings.TrimSpace(c.Discogs.Token) != "" {
		return true
	}
	return strings.TrimSpace(c.Discogs.Key) != "" && strings.TrimSpace(c.Discogs.Secret) != ""
}
