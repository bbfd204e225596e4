package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"musicscan/internal/config"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DISCOGS_TOKEN", "DISCOGS_KEY", "DISCOGS_SECRET",
		"OPENROUTER_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "MUSICSCAN_API_TOKEN",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigUsesEnvCredentialsAndExpandsPaths(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("DISCOGS_TOKEN", "discogs-token")
	t.Setenv("OPENROUTER_API_KEY", "llm-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "musicscan")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "musicscan.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Discogs.Token != "discogs-token" {
		t.Fatalf("expected discogs token from env, got %q", cfg.Discogs.Token)
	}
	if cfg.LLM.APIKey != "llm-key" {
		t.Fatalf("expected llm key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.API.Bind != "127.0.0.1:7488" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if cfg.RequestDelay().Milliseconds() != 1100 {
		t.Fatalf("expected 1.1s catalog delay, got %s", cfg.RequestDelay())
	}
	if cfg.Identification.UnverifiedPressingCap >= cfg.Identification.MinMatchScore {
		t.Fatalf("default cap %.2f must stay below threshold %.2f",
			cfg.Identification.UnverifiedPressingCap, cfg.Identification.MinMatchScore)
	}
}

func TestLoadRejectsMissingDiscogsCredentials(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "llm-key")
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error when discogs credentials missing")
	}
	if !strings.Contains(err.Error(), "discogs") {
		t.Fatalf("expected discogs error, got %v", err)
	}
}

func TestLoadAcceptsKeySecretPair(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "musicscan.toml")

	cfgVal := config.Default()
	cfgVal.LLM.APIKey = "llm"
	cfgVal.Discogs.Key = "key"
	cfgVal.Discogs.Secret = "secret"
	data, err := toml.Marshal(cfgVal)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q to be used, got %q (exists=%v)", path, resolved, exists)
	}
	if !cfg.HasDiscogsCredentials() {
		t.Fatal("expected key/secret pair to count as credentials")
	}
}

func TestValidateRejectsCapAboveThreshold(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "llm"
	cfg.Discogs.Token = "token"
	cfg.Identification.UnverifiedPressingCap = 0.9

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error when cap exceeds threshold")
	}
	if !strings.Contains(err.Error(), "unverified_pressing_cap") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "llm"
	cfg.Discogs.Token = "token"
	cfg.LLM.Provider = "carrier-pigeon"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestGeminiProviderDefaultsModel(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("DISCOGS_TOKEN", "token")
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "musicscan.toml")
	if err := os.WriteFile(path, []byte("[llm]\nprovider = \"gemini\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "gemini-key" {
		t.Fatalf("expected gemini key from env, got %q", cfg.LLM.APIKey)
	}
	if !strings.HasPrefix(cfg.LLM.Model, "gemini-") {
		t.Fatalf("expected gemini model default, got %q", cfg.LLM.Model)
	}
}

func TestCreateSampleWritesParsableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if parsed.Identification.MinMatchScore != 0.85 {
		t.Fatalf("unexpected sample threshold: %v", parsed.Identification.MinMatchScore)
	}
}
