package capture

import (
	"context"
	"errors"

	"github.com/yegors/micscribe/internal/audio"
)

var (
	// ErrDeviceUnavailable is returned when permission is denied or no input device exists
	ErrDeviceUnavailable = errors.New("audio input device unavailable")
	// ErrNotAcquired is returned when capture starts before a device was acquired
	ErrNotAcquired = errors.New("audio input device not acquired")
	// ErrAlreadyCapturing is returned by Start while a take is in progress
	ErrAlreadyCapturing = errors.New("capture already in progress")
	// ErrNotCapturing is returned by Stop when no take is in progress
	ErrNotCapturing = errors.New("capture not in progress")
)

// Track is one hardware input held open by a Stream
type Track interface {
	Label() string
	Active() bool
	// Stop releases the underlying hardware. It must not be called while a
	// Read on the owning stream is in progress; reads fail afterwards.
	Stop() error
}

// Stream is an exclusively held input device producing PCM16 frames
type Stream interface {
	// Read blocks for at most one buffer period and copies the captured
	// frames into p, returning the number of samples written
	Read(p []int16) (int, error)
	Tracks() []Track
	Close() error
}

// Device grants exclusive access to an audio input
type Device interface {
	Format() audio.Format
	// Acquire may block on a permission prompt. Failures wrap ErrDeviceUnavailable.
	Acquire(ctx context.Context) (Stream, error)
}
