package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// BytesPerSample is the width of one PCM16 sample
const BytesPerSample = 2

// Format describes interleaved little-endian PCM16 audio
type Format struct {
	SampleRate int
	Channels   int
}

// BytesPerMs returns how many bytes one millisecond of audio occupies
func (f Format) BytesPerMs() int {
	return f.SampleRate * f.Channels * BytesPerSample / 1000
}

// Duration returns the play time of n bytes of audio in this format
func (f Format) Duration(n int) time.Duration {
	bytesPerSecond := f.SampleRate * f.Channels * BytesPerSample
	if bytesPerSecond == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bytesPerSecond)
}

// Chunker slices a stream of PCM samples into fixed-duration chunks
type Chunker struct {
	format      Format
	chunkSizeMs int
	buffer      *bytes.Buffer
}

// NewChunker creates a new chunker emitting chunks of chunkSizeMs milliseconds
func NewChunker(format Format, chunkSizeMs int) *Chunker {
	return &Chunker{
		format:      format,
		chunkSizeMs: chunkSizeMs,
		buffer:      bytes.NewBuffer(nil),
	}
}

// ChunkSize returns the size in bytes of a full chunk
func (c *Chunker) ChunkSize() int {
	return c.chunkSizeMs * c.format.BytesPerMs()
}

// WriteSamples encodes samples as little-endian PCM16 and returns every
// full chunk now available
func (c *Chunker) WriteSamples(samples []int16) ([][]byte, error) {
	if err := binary.Write(c.buffer, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write samples to buffer: %w", err)
	}
	return c.drain()
}

// Write appends raw PCM bytes and returns every full chunk now available
func (c *Chunker) Write(data []byte) ([][]byte, error) {
	if _, err := c.buffer.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	return c.drain()
}

func (c *Chunker) drain() ([][]byte, error) {
	chunkSizeBytes := c.ChunkSize()
	if chunkSizeBytes <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d bytes", chunkSizeBytes)
	}

	var chunks [][]byte
	for c.buffer.Len() >= chunkSizeBytes {
		chunk := make([]byte, chunkSizeBytes)
		if _, err := c.buffer.Read(chunk); err != nil {
			return nil, fmt.Errorf("failed to read from buffer: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// Flush returns whatever partial chunk remains and empties the buffer.
// It returns nil when nothing is buffered.
func (c *Chunker) Flush() []byte {
	if c.buffer.Len() == 0 {
		return nil
	}
	rest := make([]byte, c.buffer.Len())
	copy(rest, c.buffer.Bytes())
	c.buffer.Reset()
	return rest
}

// Buffered returns the number of bytes waiting for a full chunk
func (c *Chunker) Buffered() int {
	return c.buffer.Len()
}

// Reset discards any buffered audio
func (c *Chunker) Reset() {
	c.buffer.Reset()
}
