package oqueue

import "github.com/sensorfusion/multiqueue/core"

// Sink is the per-stream consumer bound once at registration. It
// takes exclusive ownership of exactly one Item per invocation and is
// called synchronously from the dispatch loop.
type Sink func(item core.Item)

// streamRecord is one registered stream: its pending FIFO, its bound
// sink, and whether producers are done pushing to it. It directly
// mirrors the original's per-queue struct (Queue + Callback +
// finished flag).
type streamRecord struct {
	queue    fifo
	sink     Sink
	modality core.Modality
	finished bool
}
