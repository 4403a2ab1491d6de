package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
	"github.com/AndersD76/portalpili-producao-sub005/internal/logging"
)

const sampleToken = "Q2xhdWRlU2F5c0hlbGxvV29ybGRGcm9tVGhlVGVzdHM"

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("server ready", logging.String("listen", "127.0.0.1:0"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "server ready") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerRedactsTokensAndShowsComponent(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Format:  "console",
		Level:   "info",
		Outputs: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "reconcile")
	logger.Info("batch applied", slogToken(sampleToken), logging.Int("applied", 2))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Contains(line, sampleToken) {
		t.Fatalf("full token leaked into log: %q", line)
	}
	if !strings.Contains(line, "reconcile: batch applied") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "applied=2") {
		t.Fatalf("expected attribute, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{
		Format:  "json",
		Level:   "debug",
		Outputs: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithRequestID(context.Background(), "req-1")
	ctx = logging.WithToken(ctx, sampleToken)
	logging.WithContext(ctx, logger).Warn("expired access", logging.Alert("expired_token"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if entry["level"] != "warn" || entry["msg"] != "expired access" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key: %#v", entry)
	}
	if entry[logging.FieldCorrelationID] != "req-1" {
		t.Fatalf("expected correlation id, got %#v", entry)
	}
	if token, _ := entry[logging.FieldToken].(string); token != logging.TokenPrefix(sampleToken) {
		t.Fatalf("expected token prefix, got %q", token)
	}
}

func TestNewRejectsUnknownFormatAndLevel(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := logging.New(logging.Options{Level: "verbose"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestConsoleLoggerFlattensGroups(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "groups.log")
	logger, err := logging.New(logging.Options{Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.WithGroup("http").With(logging.String("route", "/status-check/{token}")).
		Info("request", logging.Int("status", 200), logging.String("note", "two words"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, want := range []string{"http.route=/status-check/{token}", "http.status=200", `http.note="two words"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestTokenPrefix(t *testing.T) {
	if got := logging.TokenPrefix("short"); got != "short" {
		t.Fatalf("short token changed: %q", got)
	}
	prefix := logging.TokenPrefix(sampleToken)
	if !strings.HasPrefix(prefix, sampleToken[:8]) || strings.Contains(prefix, sampleToken[8:12]) {
		t.Fatalf("unexpected prefix %q", prefix)
	}
	if logging.TokenPrefix(prefix) != prefix {
		t.Fatalf("prefix should be stable, got %q", logging.TokenPrefix(prefix))
	}
}

// slogToken builds a raw attribute so the handler-side redaction is what the
// test exercises.
func slogToken(value string) logging.Attr {
	return logging.String(logging.FieldToken, value)
}
