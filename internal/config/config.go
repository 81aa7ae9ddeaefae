package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the complete application configuration
type Config struct {
	Logging     LoggingConfig     `toml:"logging"`
	Capture     CaptureConfig     `toml:"capture"`
	Channel     ChannelConfig     `toml:"channel"`
	Export      ExportConfig      `toml:"export"`
	Control     ControlConfig     `toml:"control"`
	Server      ServerConfig      `toml:"server"`
	Transcriber TranscriberConfig `toml:"transcriber"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	// Output is stdout, stderr, or a log file path
	Output string `toml:"output"`
}

// CaptureConfig contains microphone capture parameters
type CaptureConfig struct {
	SampleRate      int `toml:"sample_rate"`
	Channels        int `toml:"channels"`
	ChunkMs         int `toml:"chunk_ms"`
	FramesPerBuffer int `toml:"frames_per_buffer"`
}

// ChannelConfig contains settings for the connection to the transcription service
type ChannelConfig struct {
	URL                     string `toml:"url"`
	HandshakeTimeoutSeconds int    `toml:"handshake_timeout_seconds"`
	ReconnectAttempts       int    `toml:"reconnect_attempts"`
	ReconnectIntervalMs     int    `toml:"reconnect_interval_ms"`
	// ResultTimeoutSeconds of 0 waits for a result indefinitely
	ResultTimeoutSeconds int `toml:"result_timeout_seconds"`
}

// ExportConfig contains transcript export settings
type ExportConfig struct {
	Dir           string `toml:"dir"`
	Notifications bool   `toml:"notifications"`
}

// ControlConfig contains the local HTTP control surface settings
type ControlConfig struct {
	Enabled            bool     `toml:"enabled"`
	Address            string   `toml:"address"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

// ServerConfig contains the transcription server listener settings
type ServerConfig struct {
	Address      string `toml:"address"`
	MaxPayloadMB int    `toml:"max_payload_mb"`
}

// TranscriberConfig contains the server-side transcription backend settings
type TranscriberConfig struct {
	OpenAIAPIKey   string `toml:"openai_api_key"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	Prompt         string `toml:"prompt"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Defaults returns a configuration usable without a config file
func Defaults() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Capture: CaptureConfig{
			SampleRate:      16000,
			Channels:        1,
			ChunkMs:         250,
			FramesPerBuffer: 1024,
		},
		Channel: ChannelConfig{
			URL:                     "ws://127.0.0.1:5000/ws",
			HandshakeTimeoutSeconds: 10,
			ReconnectAttempts:       3,
			ReconnectIntervalMs:     1000,
		},
		Export: ExportConfig{
			Dir:           ".",
			Notifications: true,
		},
		Control: ControlConfig{
			Enabled: true,
			Address: "127.0.0.1:8089",
		},
		Server: ServerConfig{
			Address:      "127.0.0.1:5000",
			MaxPayloadMB: 25,
		},
		Transcriber: TranscriberConfig{
			Model:          "whisper-1",
			TimeoutSeconds: 60,
		},
	}
}

// Load reads the TOML file at path on top of Defaults and validates the result.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	config := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.Transcriber.OpenAIAPIKey = key
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs validation of every section
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}
	if err := c.Channel.Validate(); err != nil {
		return fmt.Errorf("channel config: %w", err)
	}
	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export config: %w", err)
	}
	if err := c.Control.Validate(); err != nil {
		return fmt.Errorf("control config: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Transcriber.Validate(); err != nil {
		return fmt.Errorf("transcriber config: %w", err)
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'console', got '%s'", l.Format)
	}

	if strings.HasSuffix(l.Output, "/") {
		return fmt.Errorf("output must be 'stdout', 'stderr' or a file path, got directory '%s'", l.Output)
	}

	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", c.SampleRate)
	}
	if c.Channels < 1 || c.Channels > 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Channels)
	}
	if c.ChunkMs < 10 {
		return fmt.Errorf("chunk_ms must be at least 10, got %d", c.ChunkMs)
	}
	if c.FramesPerBuffer < 64 {
		return fmt.Errorf("frames_per_buffer must be at least 64, got %d", c.FramesPerBuffer)
	}
	return nil
}

// Validate validates channel configuration
func (c *ChannelConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url cannot be empty")
	}
	if c.HandshakeTimeoutSeconds < 1 {
		return fmt.Errorf("handshake_timeout_seconds must be at least 1, got %d", c.HandshakeTimeoutSeconds)
	}
	if c.ReconnectAttempts < 0 {
		return fmt.Errorf("reconnect_attempts cannot be negative, got %d", c.ReconnectAttempts)
	}
	if c.ReconnectIntervalMs < 0 {
		return fmt.Errorf("reconnect_interval_ms cannot be negative, got %d", c.ReconnectIntervalMs)
	}
	if c.ResultTimeoutSeconds < 0 {
		return fmt.Errorf("result_timeout_seconds cannot be negative, got %d", c.ResultTimeoutSeconds)
	}
	return nil
}

// Validate validates export configuration
func (e *ExportConfig) Validate() error {
	if e.Dir == "" {
		return fmt.Errorf("dir cannot be empty")
	}
	return nil
}

// Validate validates control surface configuration
func (c *ControlConfig) Validate() error {
	if c.Enabled && c.Address == "" {
		return fmt.Errorf("address cannot be empty when the control surface is enabled")
	}
	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if s.MaxPayloadMB < 1 {
		return fmt.Errorf("max_payload_mb must be at least 1, got %d", s.MaxPayloadMB)
	}
	return nil
}

// Validate validates transcriber configuration. The API key is only
// required by the server and is checked there.
func (t *TranscriberConfig) Validate() error {
	if t.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if t.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds must be at least 1, got %d", t.TimeoutSeconds)
	}
	return nil
}

// HandshakeTimeout returns the websocket handshake timeout
func (c *ChannelConfig) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutSeconds) * time.Second
}

// ReconnectInterval returns the delay between reconnect attempts
func (c *ChannelConfig) ReconnectInterval() time.Duration {
	return time.Duration(c.ReconnectIntervalMs) * time.Millisecond
}

// ResultTimeout returns how long to wait for a transcription result, 0 meaning forever
func (c *ChannelConfig) ResultTimeout() time.Duration {
	return time.Duration(c.ResultTimeoutSeconds) * time.Second
}

// Timeout returns the transcription request timeout
func (t *TranscriberConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// MaxPayloadBytes returns the largest accepted audio_data message
func (s *ServerConfig) MaxPayloadBytes() int64 {
	return int64(s.MaxPayloadMB) << 20
}
