package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"debug", "info", "warn", "error"} {
		if _, err := ParseLevel(name); err != nil {
			t.Errorf("ParseLevel(%q) failed: %v", name, err)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Config{Level: "info", Format: "xml"}); err == nil {
		t.Error("Expected error for unknown format")
	}
	if _, err := New(Config{Level: "info", Format: "json", Output: "logs/"}); err == nil {
		t.Error("Expected error for directory output")
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "micscribe.log")
	log, err := New(Config{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	log.Info("written to file")
	log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("Log file missing entry: %q", data)
	}
}

func TestJSONOutputCarriesNameAndFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := newWithSink("json", zapcore.InfoLevel, &buf)
	if err != nil {
		t.Fatalf("newWithSink failed: %v", err)
	}

	log.Named("recorder").WithTake("abc").Info("take finished", Int("chunks", 3))
	log.Debug("filtered out")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 log line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Log line is not JSON: %v", err)
	}
	if entry["logger"] != "recorder" {
		t.Errorf("Expected logger name recorder, got %v", entry["logger"])
	}
	if entry["take_id"] != "abc" {
		t.Errorf("Expected take_id abc, got %v", entry["take_id"])
	}
	if entry["chunks"] != float64(3) {
		t.Errorf("Expected chunks 3, got %v", entry["chunks"])
	}
}
