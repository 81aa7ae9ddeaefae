package server_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yegors/micscribe/internal/audio"
	"github.com/yegors/micscribe/internal/capture"
	"github.com/yegors/micscribe/internal/capture/capturetest"
	"github.com/yegors/micscribe/internal/channel"
	"github.com/yegors/micscribe/internal/config"
	"github.com/yegors/micscribe/internal/export"
	"github.com/yegors/micscribe/internal/presenter"
	"github.com/yegors/micscribe/internal/recorder"
	"github.com/yegors/micscribe/internal/server"
	"github.com/yegors/micscribe/pkg/logger"
)

type phraseTranscriber struct {
	got chan []byte
}

func (p *phraseTranscriber) Transcribe(ctx context.Context, payload []byte) (string, error) {
	p.got <- payload
	return "test phrase", nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestRecordTranscribeExport(t *testing.T) {
	transcriber := &phraseTranscriber{got: make(chan []byte, 1)}
	srv := httptest.NewServer(server.New(config.Defaults().Server, transcriber, logger.NewNop()).Routes())
	defer srv.Close()

	format := audio.Format{SampleRate: 1000, Channels: 1}
	device := capturetest.NewDevice(format)
	view := presenter.NewView()
	exporter := export.New(t.TempDir(), logger.NewNop())

	ctrl := recorder.New(recorder.Options{}, view, exporter, logger.NewNop())
	session := capture.NewSession(device, capture.Options{ChunkMs: 4, FramesPerBuffer: 8}, ctrl.CaptureHandlers(), logger.NewNop())
	ch := channel.New(channel.Options{
		URL:               "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		HandshakeTimeout:  time.Second,
		ReconnectAttempts: 1,
		ReconnectInterval: 10 * time.Millisecond,
	}, ctrl.ChannelHandler(), logger.NewNop())
	defer ch.Close()
	ctrl.Attach(session, ch)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ctrl.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if err := ch.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := ctrl.Toggle(); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	waitFor(t, "recording", func() bool { return view.State().Status == recorder.Recording })

	if err := device.Feed([]int16{100, -100, 200, -200, 300}); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}

	if err := ctrl.Toggle(); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}

	select {
	case payload := <-transcriber.got:
		header, err := audio.ParseHeader(payload)
		if err != nil {
			t.Fatalf("Server forwarded invalid wav: %v", err)
		}
		if header.DataSize != 10 {
			t.Errorf("Expected 10 bytes of PCM, got %d", header.DataSize)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Take never reached the transcriber")
	}

	waitFor(t, "result", func() bool { return view.State().Transcript != "" })

	state := view.State()
	if state.Transcript != "test phrase\r\n" {
		t.Errorf("Expected %q, got %q", "test phrase\r\n", state.Transcript)
	}
	if !state.ExportEnabled {
		t.Error("Export should be enabled after a result")
	}
	waitFor(t, "idle", func() bool { return view.State().Status == recorder.Idle })
	if !device.Stream().Released() {
		t.Error("Microphone should be released after the take")
	}

	path, err := ctrl.Download(ctx)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "transcript_") {
		t.Errorf("Unexpected file name %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read download: %v", err)
	}
	if string(data) != "test phrase\r\n" {
		t.Errorf("Unexpected file contents %q", data)
	}
}
