package ingest

import (
	"fmt"
	"io"

	"github.com/sensorfusion/multiqueue/core"
)

// traceEvent writes one human-readable line per dispatched or dropped
// item, stream erasure and dispatch stall to w, for the replay
// command's debugging output. Other events are not written. A nil w is a
// no-op, which is what the live service passes.
func traceEvent(w io.Writer, event core.TelemetryEvent) {
	if w == nil {
		return
	}
	switch e := event.(type) {
	case core.ItemDispatchedEvent:
		fmt.Fprintf(w, "dispatch %s t=%d\n", e.Key, e.Timestamp)
	case core.ItemDroppedEvent:
		fmt.Fprintf(w, "drop     %s t=%d reason=%q\n", e.Key, e.Timestamp, e.Reason)
	case core.StreamErasedEvent:
		fmt.Fprintf(w, "erase    %s\n", e.Key)
	case core.BlockedEvent:
		fmt.Fprintf(w, "blocked  on %s\n", e.Blocker)
	}
}
