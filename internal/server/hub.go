package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/yegors/micscribe/internal/wire"
	"github.com/yegors/micscribe/pkg/logger"
)

const writeTimeout = 10 * time.Second

// Hub accepts client connections and answers every audio_data frame with
// one transcription_result or error frame, in arrival order per connection
type Hub struct {
	transcriber Transcriber
	upgrader    websocket.Upgrader
	maxPayload  int64
	logger      *logger.Logger

	mu     sync.Mutex
	conns  map[string]*websocket.Conn
	closed bool
	wg     sync.WaitGroup
}

// NewHub creates a hub; maxPayload bounds a single take in bytes
func NewHub(transcriber Transcriber, maxPayload int64, logger *logger.Logger) *Hub {
	return &Hub{
		transcriber: transcriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		maxPayload: maxPayload,
		logger:     logger.Named("ws-hub"),
		conns:      make(map[string]*websocket.Conn),
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", logger.Error(err))
		return
	}

	id := uuid.New().String()
	if !h.register(id, conn) {
		conn.Close()
		return
	}
	defer h.unregister(id)

	log := h.logger.With(logger.String("conn_id", id), logger.String("remote_addr", r.RemoteAddr))
	log.Info("Client connected")

	h.serve(r.Context(), conn, log)

	log.Info("Client disconnected")
}

// Connections returns the number of open client connections
func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close drops every client and waits for their loops to return
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for _, conn := range h.conns {
		conn.Close()
	}
	h.mu.Unlock()

	h.wg.Wait()
}

func (h *Hub) register(id string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[id] = conn
	h.wg.Add(1)
	return true
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	conn, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()

	if ok {
		conn.Close()
		h.wg.Done()
	}
}

func (h *Hub) serve(ctx context.Context, conn *websocket.Conn, log *logger.Logger) {
	if h.maxPayload > 0 {
		conn.SetReadLimit(h.maxPayload)
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("Read failed", logger.Error(err))
			}
			return
		}

		if messageType != websocket.BinaryMessage {
			log.Debug("Ignoring non-audio message", logger.Int("type", messageType))
			continue
		}

		reply := h.handleTake(ctx, data, log)
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			log.Warn("Failed to write reply", logger.Error(err))
			return
		}
	}
}

// handleTake transcribes one audio_data payload and encodes the reply frame
func (h *Hub) handleTake(ctx context.Context, payload []byte, log *logger.Logger) []byte {
	takeID := uuid.New().String()
	log = log.WithTake(takeID)
	log.Info("Received take", logger.Int("bytes", len(payload)))

	wav, err := normalizeTake(payload)
	if err != nil {
		log.Warn("Rejected take", logger.Error(err))
		return h.encodeError(err, log)
	}
	if wav == nil {
		log.Info("Take holds no audio")
		return h.encodeResult("", log)
	}

	text, err := h.transcriber.Transcribe(ctx, wav)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Debug("Transcription canceled")
		} else {
			log.Error("Transcription failed", logger.Error(err))
		}
		return h.encodeError(err, log)
	}

	log.Info("Take transcribed", logger.Int("text_length", len(text)))
	return h.encodeResult(text, log)
}

func (h *Hub) encodeResult(text string, log *logger.Logger) []byte {
	data, err := wire.EncodeResult(text)
	if err != nil {
		log.Error("Failed to encode result", logger.Error(err))
		return h.encodeError(err, log)
	}
	return data
}

func (h *Hub) encodeError(reason error, log *logger.Logger) []byte {
	data, err := wire.EncodeError(reason.Error())
	if err != nil {
		log.Error("Failed to encode error", logger.Error(err))
		return []byte(`{"event":"error","error":"internal error"}`)
	}
	return data
}
