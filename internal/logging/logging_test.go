package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emilianohg/devtracker/internal/config"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer closer.Close()

	logger.Debug().Msg("hidden")
	logger.Info().Str("user", "42").Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug entry should be filtered: %s", out)
	}
	if !strings.Contains(out, `"user":"42"`) || !strings.Contains(out, `"message":"visible"`) {
		t.Fatalf("expected json info entry, got %s", out)
	}
}

func TestFileReceivesOnlyWarnings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "errors.log")
	var buf bytes.Buffer
	logger, closer, err := New(config.LoggingConfig{Level: "debug", Format: "json", File: path}, &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Info().Msg("routine")
	logger.Error().Msg("query failed")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "routine") {
		t.Fatalf("info entry leaked into error log: %s", data)
	}
	if !strings.Contains(string(data), "query failed") {
		t.Fatalf("expected error entry in file, got %s", data)
	}
	if !strings.Contains(buf.String(), "routine") {
		t.Fatalf("expected info entry on primary writer")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, _, err := New(config.LoggingConfig{Level: "loud", Format: "json"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
