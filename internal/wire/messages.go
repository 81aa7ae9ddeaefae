package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event names carried on the channel
const (
	// EventAudioData is a binary message holding one complete take
	EventAudioData = "audio_data"
	// EventTranscriptionResult carries the text for the most recent take
	EventTranscriptionResult = "transcription_result"
	// EventError reports a server-side failure for the most recent take
	EventError = "error"
)

// ErrUnknownEvent is returned when decoding a message with an unexpected event name
var ErrUnknownEvent = errors.New("unknown event")

// Message is the JSON envelope for server to client text frames
type Message struct {
	Event string `json:"event"`
	// Transcription is always present on results; "" means no speech was detected
	Transcription *string `json:"transcription,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// EncodeResult builds a transcription_result frame
func EncodeResult(text string) ([]byte, error) {
	data, err := json.Marshal(Message{Event: EventTranscriptionResult, Transcription: &text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return data, nil
}

// EncodeError builds an error frame
func EncodeError(reason string) ([]byte, error) {
	data, err := json.Marshal(Message{Event: EventError, Error: reason})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal error: %w", err)
	}
	return data, nil
}

// Decode parses a server to client text frame
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}

	switch msg.Event {
	case EventTranscriptionResult:
		if msg.Transcription == nil {
			return nil, fmt.Errorf("transcription_result without transcription field")
		}
	case EventError:
		if msg.Error == "" {
			msg.Error = "unspecified server error"
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Event)
	}

	return &msg, nil
}

// Text returns the transcription of a result message
func (m *Message) Text() string {
	if m.Transcription == nil {
		return ""
	}
	return *m.Transcription
}
