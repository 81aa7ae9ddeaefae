// Package pamic implements capture.Device on the system default input
// using the PortAudio library.
package pamic

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/yegors/micscribe/internal/audio"
	"github.com/yegors/micscribe/internal/capture"
	"github.com/yegors/micscribe/pkg/logger"
)

// Device opens the default PortAudio input stream
type Device struct {
	format          audio.Format
	framesPerBuffer int
	logger          *logger.Logger
}

// NewDevice creates a PortAudio backed input device
func NewDevice(format audio.Format, framesPerBuffer int, logger *logger.Logger) *Device {
	return &Device{
		format:          format,
		framesPerBuffer: framesPerBuffer,
		logger:          logger.Named("portaudio"),
	}
}

// Format returns the capture format
func (d *Device) Format() audio.Format {
	return d.format
}

// Acquire initializes PortAudio and starts the default input stream.
// PortAudio is terminated again when the stream is closed.
func (d *Device) Acquire(ctx context.Context) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize portaudio: %v", capture.ErrDeviceUnavailable, err)
	}

	buffer := make([]int16, d.framesPerBuffer*d.format.Channels)
	stream, err := portaudio.OpenDefaultStream(d.format.Channels, 0, float64(d.format.SampleRate), d.framesPerBuffer, buffer)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: failed to open input stream: %v", capture.ErrDeviceUnavailable, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: failed to start input stream: %v", capture.ErrDeviceUnavailable, err)
	}

	d.logger.Info("Opened default input stream",
		logger.Int("sample_rate", d.format.SampleRate),
		logger.Int("channels", d.format.Channels),
		logger.Int("frames_per_buffer", d.framesPerBuffer))

	return &inputStream{
		stream: stream,
		buffer: buffer,
		track:  &inputTrack{stream: stream, active: true},
		logger: d.logger,
	}, nil
}

// inputStream adapts a started PortAudio stream to capture.Stream
type inputStream struct {
	stream *portaudio.Stream
	buffer []int16
	track  *inputTrack
	logger *logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// Read blocks for one buffer of frames
func (s *inputStream) Read(p []int16) (int, error) {
	if !s.track.Active() {
		return 0, fmt.Errorf("input track stopped")
	}
	if err := s.stream.Read(); err != nil {
		return 0, fmt.Errorf("failed to read input stream: %w", err)
	}
	return copy(p, s.buffer), nil
}

func (s *inputStream) Tracks() []capture.Track {
	return []capture.Track{s.track}
}

// Close closes the stream and terminates PortAudio
func (s *inputStream) Close() error {
	s.closeOnce.Do(func() {
		if err := s.stream.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to close input stream: %w", err)
		}
		if err := portaudio.Terminate(); err != nil && s.closeErr == nil {
			s.closeErr = fmt.Errorf("failed to terminate portaudio: %w", err)
		}
		s.logger.Debug("Closed input stream")
	})
	return s.closeErr
}

// inputTrack stops the hardware stream
type inputTrack struct {
	stream *portaudio.Stream

	mu     sync.Mutex
	active bool
}

func (t *inputTrack) Label() string {
	return "default-input"
}

func (t *inputTrack) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *inputTrack) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return nil
	}
	t.active = false
	if err := t.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	return nil
}
