// Package capturetest provides an in-memory capture.Device for tests.
package capturetest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yegors/micscribe/internal/audio"
	"github.com/yegors/micscribe/internal/capture"
)

// ErrTrackStopped is returned by Read after the stream's track was stopped
var ErrTrackStopped = errors.New("track stopped")

// BufferPeriod is how long Read waits for fed samples before returning an
// empty buffer, as a hardware stream returns once per buffer
const BufferPeriod = 2 * time.Millisecond

// Device hands out Streams fed by Feed
type Device struct {
	format audio.Format

	mu       sync.Mutex
	err      error
	streams  []*Stream
	acquired int
}

// NewDevice creates a fake input device with the given format
func NewDevice(format audio.Format) *Device {
	return &Device{format: format}
}

// Format returns the device format
func (d *Device) Format() audio.Format {
	return d.format
}

// FailWith makes the next acquisitions fail with err wrapped in ErrDeviceUnavailable.
// A nil err restores normal behavior.
func (d *Device) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Acquire opens a new stream
func (d *Device) Acquire(ctx context.Context) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return nil, errors.Join(capture.ErrDeviceUnavailable, d.err)
	}

	stream := &Stream{frames: make(chan feedRequest)}
	stream.track = &Track{label: "fake-mic", stopped: make(chan struct{}), stream: stream}
	d.streams = append(d.streams, stream)
	d.acquired++
	return stream, nil
}

// Acquisitions returns how many streams were handed out
func (d *Device) Acquisitions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acquired
}

// Stream returns the most recently acquired stream, or nil
func (d *Device) Stream() *Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

// Feed blocks until the current stream has read every one of samples. It
// fails once the stream's track is stopped.
func (d *Device) Feed(samples []int16) error {
	stream := d.Stream()
	if stream == nil {
		return capture.ErrNotAcquired
	}
	return stream.feed(samples)
}

type feedRequest struct {
	samples []int16
	read    chan struct{}
}

// Stream is an in-memory capture.Stream with a single track
type Stream struct {
	frames      chan feedRequest
	pending     []int16
	pendingRead chan struct{}
	track       *Track

	mu             sync.Mutex
	closed         bool
	reading        bool
	stopDuringRead bool
}

func (s *Stream) feed(samples []int16) error {
	req := feedRequest{samples: samples, read: make(chan struct{})}
	select {
	case s.frames <- req:
	case <-s.track.stopped:
		return ErrTrackStopped
	}

	select {
	case <-req.read:
		return nil
	case <-s.track.stopped:
		return ErrTrackStopped
	}
}

// Read returns fed samples, or no samples after BufferPeriod, until the
// track is stopped
func (s *Stream) Read(p []int16) (int, error) {
	s.setReading(true)
	defer s.setReading(false)

	if len(s.pending) == 0 {
		timer := time.NewTimer(BufferPeriod)
		defer timer.Stop()

		select {
		case req := <-s.frames:
			s.pending = req.samples
			s.pendingRead = req.read
		case <-s.track.stopped:
			return 0, ErrTrackStopped
		case <-timer.C:
			return 0, nil
		}
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	if len(s.pending) == 0 && s.pendingRead != nil {
		close(s.pendingRead)
		s.pendingRead = nil
	}
	return n, nil
}

func (s *Stream) setReading(reading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reading = reading
}

// StoppedDuringRead reports whether a track was stopped while a Read was
// in progress, which real hardware does not allow
func (s *Stream) StoppedDuringRead() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopDuringRead
}

// Tracks returns the single track of the stream
func (s *Stream) Tracks() []capture.Track {
	return []capture.Track{s.track}
}

// Close marks the stream closed
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Released reports whether every track is stopped and the stream is closed
func (s *Stream) Released() bool {
	return !s.track.Active() && s.Closed()
}

// Track is the fake hardware track
type Track struct {
	label   string
	once    sync.Once
	stopped chan struct{}
	stream  *Stream
}

// Label returns the track name
func (t *Track) Label() string {
	return t.label
}

// Active reports whether the track is still running
func (t *Track) Active() bool {
	select {
	case <-t.stopped:
		return false
	default:
		return true
	}
}

// Stop stops the track
func (t *Track) Stop() error {
	t.stream.mu.Lock()
	if t.stream.reading {
		t.stream.stopDuringRead = true
	}
	t.stream.mu.Unlock()

	t.once.Do(func() { close(t.stopped) })
	return nil
}
