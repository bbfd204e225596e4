// Package daemonrun assembles and runs the musicscand process: logger,
// store, identification pipeline, HTTP API and daemon lifecycle.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"musicscan/internal/api"
	"musicscan/internal/config"
	"musicscan/internal/daemon"
	"musicscan/internal/logging"
	"musicscan/internal/pipeline"
	"musicscan/internal/store"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Ready, when set, receives the bound address once the API is listening.
	Ready func(addr string)
}

// Run starts musicscand and blocks until ctx is cancelled or SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger, err := newLogger(cfg, opts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logConfigSnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.DataDir, "musicscand.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}
	defer st.Close()

	components, err := pipeline.Build(cfg, st, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	server := api.NewServer(api.Options{
		Identifier:     components.Identifier,
		Sessions:       st,
		Token:          cfg.API.Token,
		AllowedOrigins: cfg.API.AllowedOrigins,
		Model:          components.Vision.Model(),
		Logger:         logger,
	})

	d, err := daemon.New(cfg, server.Handler(), logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api.bind and that no other musicscand uses "+cfg.Paths.DataDir))
		return err
	}
	if opts.Ready != nil {
		opts.Ready(d.Addr())
	}

	if err := d.Wait(signalCtx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	logger.Info("musicscand shutting down")
	return nil
}

func newLogger(cfg *config.Config, opts Options) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	outputs := []string{"stdout"}
	if cfg.Paths.LogDir != "" {
		outputs = append(outputs, filepath.Join(cfg.Paths.LogDir, "musicscand.log"))
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
		Development: opts.Development,
	})
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("api_bind", cfg.API.Bind),
		logging.Bool("api_token_set", strings.TrimSpace(cfg.API.Token) != ""),
		logging.String("llm_provider", cfg.LLM.Provider),
		logging.String("llm_model", cfg.LLM.Model),
		logging.Bool("llm_key_present", strings.TrimSpace(cfg.LLM.APIKey) != ""),
		logging.Bool("discogs_credentials", cfg.HasDiscogsCredentials()),
		logging.String("discogs_rate_limit", cfg.Discogs.RateLimitMode),
		logging.String("database", cfg.DatabasePath()),
	)
}
