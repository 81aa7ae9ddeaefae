package capture

import (
	"bytes"
	"testing"
	"time"
)

func TestTakePayloadIsOrderedConcatenation(t *testing.T) {
	take := NewTake(time.Now())
	c1, c2, c3 := []byte("c1-"), []byte("c2--"), []byte("c3")

	for i, data := range [][]byte{c1, c2, c3} {
		if err := take.Append(Chunk{Seq: i, Data: data}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	want := []byte("c1-c2--c3")
	if got := take.Payload(); !bytes.Equal(got, want) {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if take.Len() != 3 || take.Size() != len(want) {
		t.Errorf("Unexpected len %d size %d", take.Len(), take.Size())
	}
	if take.ID == "" {
		t.Error("Take should have an id")
	}
}

func TestTakeRejectsOutOfOrderChunk(t *testing.T) {
	take := NewTake(time.Now())
	if err := take.Append(Chunk{Seq: 1, Data: []byte("x")}); err == nil {
		t.Error("Expected error for skipped sequence number")
	}
}
