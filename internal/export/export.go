package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	"github.com/yegors/micscribe/pkg/logger"
)

var (
	// ErrClipboardDenied is returned when the platform refuses clipboard access
	ErrClipboardDenied = errors.New("clipboard access denied")
	// ErrExportFailed is returned when the transcript file cannot be written
	ErrExportFailed = errors.New("transcript export failed")
)

// Filename returns the download name for a transcript saved at t. Date and
// time fields are concatenated without separators or zero padding, so
// 2024-03-05 09:07:03 becomes transcript_202435973.txt.
func Filename(t time.Time) string {
	return fmt.Sprintf("transcript_%d%d%d%d%d%d.txt",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// Exporter copies transcripts to the clipboard and saves them to disk
type Exporter struct {
	dir       string
	writeText func(string) error
	logger    *logger.Logger
}

// New creates an exporter saving files into dir
func New(dir string, logger *logger.Logger) *Exporter {
	return &Exporter{
		dir:       dir,
		writeText: clipboard.WriteAll,
		logger:    logger.Named("export"),
	}
}

// Copy places text on the system clipboard
func (e *Exporter) Copy(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("%w: no clipboard utility available", ErrClipboardDenied)
	}
	if err := e.writeText(text); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboardDenied, err)
	}
	e.logger.Debug("Copied transcript to clipboard", logger.Int("length", len(text)))
	return nil
}

// Download writes text to a timestamped file in the export directory and
// returns its path
func (e *Exporter) Download(text string, now time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: failed to create %s: %v", ErrExportFailed, e.dir, err)
	}

	path := filepath.Join(e.dir, Filename(now))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("%w: failed to write %s: %v", ErrExportFailed, path, err)
	}

	e.logger.Debug("Saved transcript", logger.String("path", path), logger.Int("length", len(text)))
	return path, nil
}
