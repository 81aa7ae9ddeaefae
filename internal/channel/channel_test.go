package channel

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yegors/micscribe/internal/wire"
	"github.com/yegors/micscribe/pkg/logger"
)

// fakeService answers every binary message with reply(payload)
type fakeService struct {
	server   *httptest.Server
	mu       sync.Mutex
	payloads [][]byte
	conns    []*websocket.Conn
	reply    func(payload []byte) []byte
}

func newFakeService(t *testing.T, reply func([]byte) []byte) *fakeService {
	t.Helper()
	fs := &fakeService{reply: reply}
	upgrader := websocket.Upgrader{}

	fs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.mu.Lock()
		fs.conns = append(fs.conns, conn)
		fs.mu.Unlock()

		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.BinaryMessage {
				continue
			}
			fs.mu.Lock()
			fs.payloads = append(fs.payloads, data)
			fs.mu.Unlock()
			if out := fs.reply(data); out != nil {
				conn.WriteMessage(websocket.TextMessage, out)
			}
		}
	}))
	t.Cleanup(fs.server.Close)
	return fs
}

func (fs *fakeService) url() string {
	return "ws" + strings.TrimPrefix(fs.server.URL, "http")
}

// dropAll closes every server-side connection
func (fs *fakeService) dropAll() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, conn := range fs.conns {
		conn.Close()
	}
}

func testOptions(url string) Options {
	return Options{
		URL:               url,
		HandshakeTimeout:  time.Second,
		ReconnectAttempts: 1,
		ReconnectInterval: 10 * time.Millisecond,
	}
}

func TestSendAudioDeliversResult(t *testing.T) {
	service := newFakeService(t, func(payload []byte) []byte {
		out, _ := wire.EncodeResult("heard " + string(payload))
		return out
	})

	results := make(chan string, 1)
	ch := New(testOptions(service.url()), Handler{
		OnResult: func(text string) { results <- text },
	}, logger.NewNop())
	defer ch.Close()

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !ch.Connected() {
		t.Fatal("Channel should be connected")
	}

	if err := ch.SendAudio([]byte("abc")); err != nil {
		t.Fatalf("SendAudio failed: %v", err)
	}

	select {
	case text := <-results:
		if text != "heard abc" {
			t.Errorf("Expected 'heard abc', got %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for result")
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	if len(service.payloads) != 1 || !bytes.Equal(service.payloads[0], []byte("abc")) {
		t.Errorf("Service should receive exactly one binary payload, got %v", service.payloads)
	}
}

func TestEmptyResultIsNotAFailure(t *testing.T) {
	service := newFakeService(t, func([]byte) []byte {
		out, _ := wire.EncodeResult("")
		return out
	})

	results := make(chan string, 1)
	failures := make(chan error, 1)
	ch := New(testOptions(service.url()), Handler{
		OnResult:  func(text string) { results <- text },
		OnFailure: func(err error) { failures <- err },
	}, logger.NewNop())
	defer ch.Close()

	if err := ch.SendAudio([]byte("silence")); err != nil {
		t.Fatalf("SendAudio failed: %v", err)
	}

	select {
	case text := <-results:
		if text != "" {
			t.Errorf("Expected empty result, got %q", text)
		}
	case err := <-failures:
		t.Fatalf("Empty result reported as failure: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for result")
	}
}

func TestServerErrorIsReported(t *testing.T) {
	service := newFakeService(t, func([]byte) []byte {
		out, _ := wire.EncodeError("backend down")
		return out
	})

	failures := make(chan error, 1)
	ch := New(testOptions(service.url()), Handler{
		OnFailure: func(err error) { failures <- err },
	}, logger.NewNop())
	defer ch.Close()

	if err := ch.SendAudio([]byte("x")); err != nil {
		t.Fatalf("SendAudio failed: %v", err)
	}

	select {
	case err := <-failures:
		if !errors.Is(err, ErrServer) || !strings.Contains(err.Error(), "backend down") {
			t.Errorf("Unexpected failure %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for failure")
	}
}

func TestDisconnectIsReportedAndSendRedials(t *testing.T) {
	service := newFakeService(t, func([]byte) []byte {
		out, _ := wire.EncodeResult("ok")
		return out
	})

	disconnects := make(chan error, 1)
	results := make(chan string, 1)
	ch := New(testOptions(service.url()), Handler{
		OnResult:     func(text string) { results <- text },
		OnDisconnect: func(err error) { disconnects <- err },
	}, logger.NewNop())
	defer ch.Close()

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	service.dropAll()

	select {
	case <-disconnects:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for disconnect")
	}
	if ch.Connected() {
		t.Error("Channel should not report a dropped connection as connected")
	}

	if err := ch.SendAudio([]byte("again")); err != nil {
		t.Fatalf("SendAudio after disconnect should redial: %v", err)
	}
	select {
	case <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for result after redial")
	}
}

func TestSendFailsWhenServiceUnreachable(t *testing.T) {
	service := newFakeService(t, func([]byte) []byte { return nil })
	url := service.url()
	service.server.Close()

	ch := New(testOptions(url), Handler{}, logger.NewNop())
	err := ch.SendAudio([]byte("lost"))
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("Expected ErrSendFailed, got %v", err)
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	service := newFakeService(t, func([]byte) []byte { return nil })
	ch := New(testOptions(service.url()), Handler{}, logger.NewNop())

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := ch.SendAudio([]byte("x")); !errors.Is(err, ErrSendFailed) {
		t.Errorf("Expected ErrSendFailed after close, got %v", err)
	}
}
