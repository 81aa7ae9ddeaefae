package recorder

import "fmt"

// State is the externally visible recording status
type State int

const (
	// Idle means no take is in progress and the microphone is released
	Idle State = iota
	// Recording means a take is being captured
	Recording
	// Transcribing means a take was sent and its result is awaited
	Transcribing
)

// String returns the lowercase name of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Transcribing:
		return "transcribing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = Idle
	case "recording":
		*s = Recording
	case "transcribing":
		*s = Transcribing
	default:
		return fmt.Errorf("unknown state %q", text)
	}
	return nil
}
