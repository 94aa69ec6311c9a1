package diagnostics

import (
	"sync"

	"github.com/sensorfusion/multiqueue/core"
)

// Record is one dispatched-or-dropped observation kept by the
// Recorder, enough to answer "what did this stream recently see"
// without replaying the whole session.
type Record struct {
	Key       core.StreamKey
	Timestamp core.Timestamp
	Dropped   bool
	Reason    string
}

// Recorder keeps the most recent depth observations per stream in
// memory, readable through Snapshot. The Broadcaster does not send
// them to its websocket subscribers.
type Recorder struct {
	depth int

	mu      sync.Mutex
	records map[core.StreamKey][]Record
}

// NewRecorder builds a Recorder retaining up to depth records per
// stream. depth <= 0 disables retention (Observe becomes a no-op).
func NewRecorder(depth int) *Recorder {
	return &Recorder{
		depth:   depth,
		records: make(map[core.StreamKey][]Record),
	}
}

// Observe feeds event into the recorder. Only the event types that
// describe a concrete per-item observation (dispatched, dropped) are
// retained; lifecycle and blocker events are ignored since callers
// can derive blocker state from the merger directly.
func (r *Recorder) Observe(event core.TelemetryEvent) {
	if r.depth <= 0 {
		return
	}

	var rec Record
	switch e := event.(type) {
	case core.ItemDispatchedEvent:
		rec = Record{Key: e.Key, Timestamp: e.Timestamp}
	case core.ItemDroppedEvent:
		rec = Record{Key: e.Key, Timestamp: e.Timestamp, Dropped: true, Reason: e.Reason}
	default:
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	buf := append(r.records[rec.Key], rec)
	if len(buf) > r.depth {
		buf = buf[len(buf)-r.depth:]
	}
	r.records[rec.Key] = buf
}

// Snapshot returns a copy of the records currently retained for key,
// oldest first.
func (r *Recorder) Snapshot(key core.StreamKey) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := r.records[key]
	out := make([]Record, len(buf))
	copy(out, buf)
	return out
}

// Forget discards every retained record for key, called once a
// stream is erased from the merger so the recorder doesn't hold onto
// a trajectory's history forever.
func (r *Recorder) Forget(key core.StreamKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, key)
}
