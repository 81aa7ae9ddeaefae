package export

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atotto/clipboard"
	"github.com/yegors/micscribe/pkg/logger"
)

func TestFilenameHasNoPaddingOrSeparators(t *testing.T) {
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2024, 3, 5, 9, 7, 3, 0, time.Local), "transcript_202435973.txt"},
		{time.Date(2024, 12, 31, 23, 59, 59, 0, time.Local), "transcript_20241231235959.txt"},
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local), "transcript_202511000.txt"},
	}

	for _, tt := range tests {
		if got := Filename(tt.at); got != tt.want {
			t.Errorf("Filename(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestDownloadWritesTranscript(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	exporter := New(dir, logger.NewNop())

	at := time.Date(2024, 3, 5, 9, 7, 3, 0, time.Local)
	path, err := exporter.Download("hello\r\n", at)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if filepath.Base(path) != "transcript_202435973.txt" {
		t.Errorf("Unexpected file name %q", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if string(data) != "hello\r\n" {
		t.Errorf("Unexpected export content %q", data)
	}
}

func TestDownloadFailureIsWrapped(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	_, err := New(file, logger.NewNop()).Download("x", time.Now())
	if !errors.Is(err, ErrExportFailed) {
		t.Errorf("Expected ErrExportFailed, got %v", err)
	}
}

func TestCopyFailureIsClipboardDenied(t *testing.T) {
	if clipboard.Unsupported {
		t.Skip("no clipboard utility on this system")
	}

	exporter := New(t.TempDir(), logger.NewNop())
	exporter.writeText = func(string) error { return errors.New("denied by platform") }

	if err := exporter.Copy("x"); !errors.Is(err, ErrClipboardDenied) {
		t.Errorf("Expected ErrClipboardDenied, got %v", err)
	}

	var got string
	exporter.writeText = func(s string) error { got = s; return nil }
	if err := exporter.Copy("copied"); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if got != "copied" {
		t.Errorf("Expected clipboard text 'copied', got %q", got)
	}
}
