package capture

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Chunk is one captured slice of audio. Data must not be modified after delivery.
type Chunk struct {
	Seq        int
	Data       []byte
	CapturedAt time.Time
}

// Take collects the chunks of one start-to-stop recording
type Take struct {
	ID        string
	StartedAt time.Time
	chunks    []Chunk
	size      int
}

// NewTake starts an empty take
func NewTake(now time.Time) *Take {
	return &Take{
		ID:        uuid.NewString(),
		StartedAt: now,
	}
}

// Append adds the next chunk in arrival order
func (t *Take) Append(chunk Chunk) error {
	if chunk.Seq != len(t.chunks) {
		return fmt.Errorf("out of order chunk: expected seq %d, got %d", len(t.chunks), chunk.Seq)
	}
	t.chunks = append(t.chunks, chunk)
	t.size += len(chunk.Data)
	return nil
}

// Len returns the number of chunks collected
func (t *Take) Len() int {
	return len(t.chunks)
}

// Size returns the payload size in bytes
func (t *Take) Size() int {
	return t.size
}

// Payload concatenates every chunk in capture order
func (t *Take) Payload() []byte {
	payload := make([]byte, 0, t.size)
	for _, chunk := range t.chunks {
		payload = append(payload, chunk.Data...)
	}
	return payload
}
