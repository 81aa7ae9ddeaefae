package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yegors/micscribe/internal/wire"
	"github.com/yegors/micscribe/pkg/logger"
)

var (
	// ErrSendFailed is returned when a payload could not be written to the service
	ErrSendFailed = errors.New("failed to send audio")
	// ErrServer wraps failures reported by the service for the last payload
	ErrServer = errors.New("transcription service error")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("channel closed")
)

const writeTimeout = 10 * time.Second

// Handler receives asynchronous channel events. Callbacks run on the read goroutine.
type Handler struct {
	OnResult     func(text string)
	OnFailure    func(err error)
	OnDisconnect func(err error)
}

// Options configures the connection to the transcription service
type Options struct {
	URL               string
	HandshakeTimeout  time.Duration
	ReconnectAttempts int
	ReconnectInterval time.Duration
}

// Channel is the single duplex connection to the transcription service
type Channel struct {
	options Options
	handler Handler
	dialer  *websocket.Dialer
	logger  *logger.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	// writeMu serializes writers as gorilla connections allow one at a time
	writeMu sync.Mutex
}

// New creates an unconnected channel
func New(options Options, handler Handler, logger *logger.Logger) *Channel {
	return &Channel{
		options: options,
		handler: handler,
		dialer: &websocket.Dialer{
			HandshakeTimeout: options.HandshakeTimeout,
		},
		logger: logger.Named("channel"),
	}
}

// Connect establishes the connection. Calling it while connected is a no-op.
func (c *Channel) Connect(ctx context.Context) error {
	_, err := c.connection(ctx, 0)
	return err
}

// connection returns the live connection, dialing with up to attempts retries
func (c *Channel) connection(ctx context.Context, attempts int) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.conn != nil {
		return c.conn, nil
	}

	var lastErr error
	for attempt := 0; attempt <= attempts; attempt++ {
		if attempt > 0 {
			c.logger.Debug("Retrying connection",
				logger.Int("attempt", attempt),
				logger.Duration("delay", c.options.ReconnectInterval))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.options.ReconnectInterval):
			}
		}

		conn, _, err := c.dialer.DialContext(ctx, c.options.URL, nil)
		if err != nil {
			lastErr = err
			c.logger.Warn("Failed to connect to transcription service",
				logger.String("url", c.options.URL),
				logger.Error(err))
			continue
		}

		c.conn = conn
		go c.readLoop(conn)

		c.logger.Info("Connected to transcription service", logger.String("url", c.options.URL))
		return conn, nil
	}

	return nil, fmt.Errorf("failed to connect to %s: %w", c.options.URL, lastErr)
}

// Connected reports whether a connection is currently open
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// SendAudio writes one complete take as a single binary message. A dropped
// connection is redialed before sending; the payload itself is never resent.
func (c *Channel) SendAudio(payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(),
		c.options.HandshakeTimeout*time.Duration(c.options.ReconnectAttempts+1)+
			c.options.ReconnectInterval*time.Duration(c.options.ReconnectAttempts))
	defer cancel()

	conn, err := c.connection(ctx, c.options.ReconnectAttempts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err = conn.WriteMessage(websocket.BinaryMessage, payload)
	c.writeMu.Unlock()

	if err != nil {
		c.drop(conn)
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	c.logger.Debug("Sent audio", logger.String("event", wire.EventAudioData), logger.Int("bytes", len(payload)))
	return nil
}

// Close shuts the connection down with a normal closure frame
func (c *Channel) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.closed = true
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing"),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	if closeErr := conn.Close(); err == nil {
		err = closeErr
	}
	return err
}

// drop forgets conn if it is still current, reporting whether it was
func (c *Channel) drop(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != conn {
		return false
	}
	c.conn = nil
	conn.Close()
	return true
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if c.drop(conn) {
				c.logger.Warn("Connection to transcription service lost", logger.Error(err))
				if c.handler.OnDisconnect != nil {
					c.handler.OnDisconnect(err)
				}
			}
			return
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn("Ignoring non-text message from service", logger.Int("type", messageType))
			continue
		}

		msg, err := wire.Decode(data)
		if err != nil {
			c.logger.Warn("Ignoring undecodable message", logger.Error(err))
			continue
		}

		switch msg.Event {
		case wire.EventTranscriptionResult:
			c.logger.Debug("Received transcription", logger.Int("length", len(msg.Text())))
			if c.handler.OnResult != nil {
				c.handler.OnResult(msg.Text())
			}
		case wire.EventError:
			if c.handler.OnFailure != nil {
				c.handler.OnFailure(fmt.Errorf("%w: %s", ErrServer, msg.Error))
			}
		}
	}
}
