package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"musicscan/internal/config"
	"musicscan/internal/logging"
	"musicscan/internal/services"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, "musicscan.log"))
	if !strings.Contains(content, "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	if content := readLog(t, logPath); strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	if content := readLog(t, logPath); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerPromotesComponentAndSession(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-session.log")
	base, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithSessionID(context.Background(), "0f8c2e1a-1111-2222-3333-444455556666")
	logger := logging.WithContext(ctx, logging.NewComponentLogger(base, "scorer"))
	logger.Info("scored candidates", logging.Int("candidate_count", 3))

	content := readLog(t, logPath)
	if !strings.Contains(content, "scorer[0f8c2e1a]: scored candidates") {
		t.Fatalf("expected component and short session prefix, got %q", content)
	}
	if !strings.Contains(content, "candidate_count=3") {
		t.Fatalf("expected structured field, got %q", content)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("rate limited", logging.String("strategy", "barcode"))

	line := strings.TrimSpace(readLog(t, logPath))
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload["level"] != "warn" || payload["msg"] != "rate limited" || payload["strategy"] != "barcode" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %#v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "catalog search failed", "catalog_search_failed",
		logging.String(logging.FieldImpact, "strategy skipped"))

	content := readLog(t, logPath)
	for _, want := range []string{"event_type=catalog_search_failed", "error_hint=", `impact="strategy skipped"`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in %q", want, content)
		}
	}
}

func TestJSONLoggerEncodesDecisionAttrs(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "decision.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	attrs := append(logging.DecisionAttrs("match_status", "single_match", "barcode and matrix agree"),
		logging.Float64("confidence", 0.92),
		logging.Strings("missing_fields", []string{"matrix", "label"}),
		logging.Alert("backfill_skipped"))
	logger.Info("identification decision", logging.Args(attrs...)...)

	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload["confidence"] != 0.92 || payload[logging.FieldAlert] != "backfill_skipped" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
	missing, ok := payload["missing_fields"].([]any)
	if !ok || len(missing) != 2 || missing[0] != "matrix" || missing[1] != "label" {
		t.Fatalf("missing_fields should be a list, got %#v", payload["missing_fields"])
	}
}
