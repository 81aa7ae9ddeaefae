package main

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// orderedSession records when Wait ran relative to the controller loop
type orderedSession struct {
	mu     sync.Mutex
	events *[]string
}

func (s *orderedSession) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.events = append(*s.events, "session")
}

func TestAwaitExitWaitsForSessionAfterLoop(t *testing.T) {
	var events []string
	session := &orderedSession{events: &events}

	done := make(chan error, 1)
	go func() {
		session.mu.Lock()
		events = append(events, "loop")
		session.mu.Unlock()
		done <- context.Canceled
	}()

	if err := awaitExit(done, session); err != nil {
		t.Fatalf("Cancellation should not be reported, got %v", err)
	}
	if len(events) != 2 || events[0] != "loop" || events[1] != "session" {
		t.Errorf("Expected the session to be waited for after the loop, got %v", events)
	}
}

func TestAwaitExitReportsLoopError(t *testing.T) {
	var events []string
	session := &orderedSession{events: &events}

	done := make(chan error, 1)
	done <- errors.New("loop crashed")

	if err := awaitExit(done, session); err == nil {
		t.Error("Expected the loop error")
	}
	if len(events) != 1 {
		t.Error("The session must be waited for even when the loop fails")
	}
}
