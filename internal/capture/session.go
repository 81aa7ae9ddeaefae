package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yegors/micscribe/internal/audio"
	"github.com/yegors/micscribe/pkg/logger"
)

// Options configures a capture session
type Options struct {
	ChunkMs         int
	FramesPerBuffer int
}

// Finalized describes the end of a take. Err is set when capture ended
// because the device failed rather than because Stop was called.
type Finalized struct {
	Chunks int
	Bytes  int
	Err    error
}

// Handlers receive capture output. Both are called from the capture
// goroutine; OnFinalize runs once per take after the last OnChunk.
type Handlers struct {
	OnChunk    func(Chunk)
	OnFinalize func(Finalized)
}

// Session owns the microphone for one take at a time
type Session struct {
	device   Device
	options  Options
	handlers Handlers
	now      func() time.Time
	logger   *logger.Logger

	mu        sync.Mutex
	stream    Stream
	capturing bool
	// running is true while the capture goroutine owns the stream
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewSession creates a capture session for device
func NewSession(device Device, options Options, handlers Handlers, logger *logger.Logger) *Session {
	return &Session{
		device:   device,
		options:  options,
		handlers: handlers,
		now:      time.Now,
		logger:   logger.Named("capture"),
	}
}

// Acquire requests exclusive access to the input device
func (s *Session) Acquire(ctx context.Context) error {
	s.mu.Lock()
	if s.stream != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	stream, err := s.device.Acquire(ctx)
	if err != nil {
		if !errors.Is(err, ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		// Lost a race with another Acquire
		releaseTracks(stream)
		stream.Close()
		return nil
	}
	s.stream = stream

	s.logger.Debug("Acquired input device", logger.Int("tracks", len(stream.Tracks())))
	return nil
}

// Release stops the tracks and closes the stream of an acquired device
// that never started capturing
func (s *Session) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || s.stream == nil {
		return nil
	}

	err := errors.Join(releaseTracks(s.stream), s.stream.Close())
	s.stream = nil
	return err
}

// Start begins producing chunks from the acquired device
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyCapturing
	}
	if s.stream == nil {
		return ErrNotAcquired
	}

	s.capturing = true
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	go s.captureLoop(s.stream, s.stopCh, s.done)

	s.logger.Debug("Capture started")
	return nil
}

// Stop ends the take. The capture goroutine stops every track once its
// current read returns, then finalizes the take through OnFinalize.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.capturing {
		return ErrNotCapturing
	}

	s.capturing = false
	close(s.stopCh)

	s.logger.Debug("Capture stopping")
	return nil
}

// Capturing reports whether a take is in progress
func (s *Session) Capturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capturing
}

// Acquired reports whether the session currently holds the device
func (s *Session) Acquired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// Wait blocks until the running take has been finalized
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (s *Session) captureLoop(stream Stream, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	format := s.device.Format()
	chunker := audio.NewChunker(format, s.options.ChunkMs)
	frames := make([]int16, s.options.FramesPerBuffer*format.Channels)

	seq := 0
	total := 0
	emit := func(data []byte) {
		if seq == 0 {
			data = append(audio.StreamHeader(format), data...)
		}
		chunk := Chunk{Seq: seq, Data: data, CapturedAt: s.now()}
		seq++
		total += len(data)
		if s.handlers.OnChunk != nil {
			s.handlers.OnChunk(chunk)
		}
	}

	var captureErr error
loop:
	for {
		select {
		case <-stopCh:
			break loop
		default:
		}

		n, err := stream.Read(frames)
		if err != nil {
			select {
			case <-stopCh:
				// A read that fails after Stop is not a device error
			default:
				captureErr = err
				s.logger.Error("Capture read failed", logger.Error(err))
			}
			break loop
		}

		chunks, err := chunker.WriteSamples(frames[:n])
		if err != nil {
			captureErr = err
			s.logger.Error("Failed to chunk captured audio", logger.Error(err))
			break loop
		}
		for _, data := range chunks {
			emit(data)
		}
	}

	// No read is in flight here; tracks must not be stopped during one
	if err := releaseTracks(stream); err != nil {
		s.logger.Warn("Failed to stop all tracks", logger.Error(err))
	}

	if rest := chunker.Flush(); rest != nil || seq == 0 {
		emit(rest)
	}

	if err := stream.Close(); err != nil {
		s.logger.Warn("Failed to close input stream", logger.Error(err))
	}

	s.mu.Lock()
	s.stream = nil
	s.capturing = false
	s.running = false
	s.mu.Unlock()

	s.logger.Debug("Take finalized",
		logger.Int("chunks", seq),
		logger.Int("bytes", total),
		logger.Duration("audio", format.Duration(total-audio.HeaderSize)))

	if s.handlers.OnFinalize != nil {
		s.handlers.OnFinalize(Finalized{Chunks: seq, Bytes: total, Err: captureErr})
	}
}

// releaseTracks stops every hardware track of stream
func releaseTracks(stream Stream) error {
	var errs []error
	for _, track := range stream.Tracks() {
		if !track.Active() {
			continue
		}
		if err := track.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop track %s: %w", track.Label(), err))
		}
	}
	return errors.Join(errs...)
}
