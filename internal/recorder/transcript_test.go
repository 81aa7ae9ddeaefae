package recorder

import "testing"

func TestTranscriptAppendAndClear(t *testing.T) {
	var tr Transcript

	tr.Append("one\r\n")
	tr.Append("two\r\n")

	if tr.String() != "one\r\ntwo\r\n" {
		t.Errorf("Unexpected text %q", tr.String())
	}
	if tr.Len() != 10 {
		t.Errorf("Expected length 10, got %d", tr.Len())
	}

	entries := tr.Entries()
	entries[0] = "mutated"
	if tr.Entries()[0] != "one\r\n" {
		t.Error("Entries must return a copy")
	}

	tr.Clear()
	if tr.String() != "" || tr.Len() != 0 || len(tr.Entries()) != 0 {
		t.Error("Clear should empty the transcript")
	}
}

func TestStateNames(t *testing.T) {
	for state, want := range map[State]string{Idle: "idle", Recording: "recording", Transcribing: "transcribing"} {
		if state.String() != want {
			t.Errorf("Expected %q, got %q", want, state.String())
		}
		text, _ := state.MarshalText()
		if string(text) != want {
			t.Errorf("MarshalText: expected %q, got %q", want, text)
		}
		var decoded State
		if err := decoded.UnmarshalText(text); err != nil || decoded != state {
			t.Errorf("UnmarshalText(%q) = %v, %v", text, decoded, err)
		}
	}

	var s State
	if err := s.UnmarshalText([]byte("paused")); err == nil {
		t.Error("Expected error for unknown state")
	}
}
