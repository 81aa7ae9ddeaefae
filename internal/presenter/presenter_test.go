package presenter

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/yegors/micscribe/internal/recorder"
	"github.com/yegors/micscribe/pkg/logger"
)

func TestViewTracksPresenterCalls(t *testing.T) {
	view := NewView()

	view.SetStatus(recorder.Transcribing)
	view.AppendTranscript("hello\r\n")
	view.AppendTranscript("world\r\n")
	view.SetExportEnabled(true)
	view.Alert("copied")

	state := view.State()
	if state.Status != recorder.Transcribing {
		t.Errorf("Expected transcribing, got %v", state.Status)
	}
	if state.Transcript != "hello\r\nworld\r\n" {
		t.Errorf("Unexpected transcript %q", state.Transcript)
	}
	if !state.ExportEnabled || state.LastAlert != "copied" || state.LastAlertAt == nil {
		t.Errorf("Unexpected view state %+v", state)
	}

	view.ClearTranscript()
	if view.State().Transcript != "" {
		t.Error("ClearTranscript should empty the view")
	}
}

func TestMultiFansOut(t *testing.T) {
	a, b := NewView(), NewView()
	multi := Multi{a, b}

	multi.SetStatus(recorder.Recording)
	multi.AppendTranscript("x\r\n")
	multi.SetExportEnabled(true)

	for i, v := range []*View{a, b} {
		state := v.State()
		if state.Status != recorder.Recording || state.Transcript != "x\r\n" || !state.ExportEnabled {
			t.Errorf("Presenter %d missed calls: %+v", i, state)
		}
	}
}

func TestConsoleOutput(t *testing.T) {
	var out bytes.Buffer
	console := NewConsole(&out, true, logger.NewNop())

	var notified []string
	console.notify = func(title, message string) error {
		notified = append(notified, message)
		return errors.New("no notification daemon")
	}

	console.SetStatus(recorder.Recording)
	console.AppendTranscript("test phrase\r\n")
	console.Alert("Failed to start recording.")

	text := out.String()
	if !strings.Contains(text, "Recording") {
		t.Errorf("Missing status line in %q", text)
	}
	if !strings.Contains(text, "» test phrase\n") {
		t.Errorf("Missing transcript line in %q", text)
	}
	if !strings.Contains(text, "! Failed to start recording.") {
		t.Errorf("Missing alert in %q", text)
	}
	if len(notified) != 1 {
		t.Errorf("Expected one desktop notification, got %d", len(notified))
	}
}
