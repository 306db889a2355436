package logger

import (
	"os"
	"path/filepath"
	"testing"

	"followscout/pkg/config"
)

func TestNewLogger(t *testing.T) {
	log, err := New(&config.LoggingConfig{Level: "debug"})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("Expected logger instance, got nil")
	}
	if log.GetZerolog() == nil {
		t.Error("Expected underlying zerolog instance")
	}
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := New(&config.LoggingConfig{Level: "shout"})
	if err == nil {
		t.Error("Expected error for invalid log level")
	}
}

func TestNewLoggerWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "scout.log")

	log, err := New(&config.LoggingConfig{Level: "info", File: path})
	if err != nil {
		t.Fatalf("Failed to create logger with file output: %v", err)
	}

	log.Info("hello")

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected log file to exist: %v", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	valid := []string{"debug", "info", "warn", "warning", "error", "fatal", "disabled"}
	for _, level := range valid {
		if _, err := parseLogLevel(level); err != nil {
			t.Errorf("Expected %q to parse, got %v", level, err)
		}
	}
	if _, err := parseLogLevel("verbose"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestTestLoggerCapture(t *testing.T) {
	log := NewTestLogger()

	log.Info("first")
	log.WarnWithFields("second", map[string]interface{}{"target": "alice"})

	msgs := log.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[1].Fields["target"] != "alice" {
		t.Errorf("Expected field target=alice, got %v", msgs[1].Fields["target"])
	}
	if !log.HasMessage("first") {
		t.Error("Expected HasMessage to find 'first'")
	}
	if log.CountLevel("WARN") != 1 {
		t.Errorf("Expected 1 WARN message, got %d", log.CountLevel("WARN"))
	}
}

func TestTestLoggerChildSharesBuffer(t *testing.T) {
	log := NewTestLogger()

	child := log.WithField("identity", "bot1")
	child.Error("scan failed")

	if len(log.Messages()) != 1 {
		t.Fatal("Expected child message to appear in root buffer")
	}
	if log.Messages()[0].Fields["identity"] != "bot1" {
		t.Error("Expected child field to be attached to the message")
	}
}
