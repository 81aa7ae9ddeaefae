package recorder

import (
	"github.com/yegors/micscribe/internal/capture"
)

// event is anything delivered to the controller's loop
type event interface{}

type toggleEvent struct{}

type deviceReadyEvent struct {
	err error
}

type chunkEvent struct {
	chunk capture.Chunk
}

type finalizedEvent struct {
	info capture.Finalized
}

type sendDoneEvent struct {
	takeID string
	err    error
}

type resultEvent struct {
	text string
}

type failureEvent struct {
	err error
}

type disconnectEvent struct {
	err error
}

type resultTimeoutEvent struct {
	takeID string
}

type clearEvent struct{}

type copyEvent struct {
	reply chan error
}

type downloadReply struct {
	path string
	err  error
}

type downloadEvent struct {
	reply chan downloadReply
}

type snapshotEvent struct {
	reply chan Snapshot
}
