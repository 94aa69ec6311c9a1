package oqueue

import (
	"sync/atomic"

	"github.com/sensorfusion/multiqueue/core"
	"github.com/sensorfusion/multiqueue/telemetry"
)

// DefaultSoftCap is the queue depth that, once some stream exceeds it
// while dispatch is halted, produces rate-limited backlog warnings,
// matching the original implementation's kMaxQueueSize.
const DefaultSoftCap = 500

// DefaultUnknownKeyWarnEvery and DefaultBacklogWarnEvery are how many
// occurrences an unknown-key drop or a backlog warning waits between
// log lines, matching the original's
// LOG_EVERY_N(..., 1000) and LOG_EVERY_N(..., 60) respectively — here
// unified into one configurable cadence per warning class.
const (
	DefaultUnknownKeyWarnEvery = 1000
	DefaultBacklogWarnEvery    = 60
)

// Options configures an OrderedMultiQueue beyond its zero-value
// defaults.
type Options struct {
	SoftCap             int
	UnknownKeyWarnEvery int
	BacklogWarnEvery    int

	// Logger receives the two rate-limited warning streams and the
	// common-start informational message emitted once a trajectory's
	// dispatch window opens. A nil
	// Logger (the default for tests that don't care about
	// diagnostics) means the merger logs nothing.
	Logger telemetry.Logger

	// OnEvent, if set, receives every dispatch-engine lifecycle event
	// as it happens. It is called synchronously on the caller's
	// goroutine, inside dispatch, so dispatch waits for it to return.
	OnEvent func(core.TelemetryEvent)
}

// OrderedMultiQueue is the synchronization core of the ingest
// pipeline: it collates N independently-arriving, monotonically
// time-stamped streams into one globally non-decreasing dispatch
// order, invoking each stream's bound sink in that order. New returns
// an empty, usable instance; the zero value is not usable.
//
// OrderedMultiQueue is not internally synchronized: every exported
// method must be serialized by the caller. A re-entrancy guard
// detects (and panics on) a sink callback calling back into the
// same instance, which would otherwise corrupt the dispatch loop's
// in-flight scan.
type OrderedMultiQueue struct {
	coll *collection
	opts Options

	unknownKeyLimiter *everyN
	backlogLimiter    *everyN

	dispatching atomic.Bool
}

// New constructs an empty, usable merger.
func New(opts Options) *OrderedMultiQueue {
	if opts.SoftCap <= 0 {
		opts.SoftCap = DefaultSoftCap
	}
	if opts.UnknownKeyWarnEvery <= 0 {
		opts.UnknownKeyWarnEvery = DefaultUnknownKeyWarnEvery
	}
	if opts.BacklogWarnEvery <= 0 {
		opts.BacklogWarnEvery = DefaultBacklogWarnEvery
	}
	return &OrderedMultiQueue{
		coll:              newCollection(),
		opts:              opts,
		unknownKeyLimiter: newEveryN(opts.UnknownKeyWarnEvery),
		backlogLimiter:    newEveryN(opts.BacklogWarnEvery),
	}
}

func (om *OrderedMultiQueue) emit(event core.TelemetryEvent) {
	if om.opts.OnEvent != nil {
		om.opts.OnEvent(event)
	}
}

// AddStream registers a fresh key with its bound sink callback.
// Fatal if the key is already registered.
func (om *OrderedMultiQueue) AddStream(key core.StreamKey, modality core.Modality, sink Sink) {
	if _, ok := om.coll.get(key); ok {
		fatalf(key, "AddStream: key already registered")
	}
	om.coll.add(key, modality, sink)
	om.emit(core.StreamRegisteredEvent{Key: key, Modality: modality})
}

// Add pushes item onto key's FIFO and drives dispatch. If key is not
// registered the item is silently dropped, save for a rate-limited
// warning — an unknown key is a soft data error, not a programmer
// error.
func (om *OrderedMultiQueue) Add(key core.StreamKey, item core.Item) {
	rec, ok := om.coll.get(key)
	if !ok {
		if om.unknownKeyLimiter.allow() && om.opts.Logger != nil {
			om.opts.Logger.Warn("oqueue: ignored item for unregistered stream", telemetry.String("key", key.String()))
		}
		om.emit(core.UnknownStreamDropEvent{Key: key})
		return
	}

	rec.queue.pushBack(item)
	om.dispatch()
}

// MarkStreamFinished flags key as done: no more items will arrive on
// it, so it may be drained and erased once empty. Fatal on an unknown
// or already-finished key.
func (om *OrderedMultiQueue) MarkStreamFinished(key core.StreamKey) {
	rec, ok := om.coll.get(key)
	if !ok {
		fatalf(key, "MarkStreamFinished: unknown key")
	}
	if rec.finished {
		fatalf(key, "MarkStreamFinished: already finished")
	}
	rec.finished = true
	om.emit(core.StreamFinishedEvent{Key: key})
	om.dispatch()
}

// Flush marks every currently-unfinished stream as finished, then
// drives dispatch once per stream so finished-and-thin or
// finished-and-deep streams drain or drop their remainder.
func (om *OrderedMultiQueue) Flush() {
	pending := make([]core.StreamKey, 0, len(om.coll.keys))
	for _, key := range om.coll.keys {
		if rec := om.coll.streams[key]; !rec.finished {
			pending = append(pending, key)
		}
	}
	for _, key := range pending {
		om.MarkStreamFinished(key)
	}
}

// GetBlocker returns the StreamKey that most recently prevented
// dispatch progress. Fatal if the collection currently holds no
// streams (not merely "nothing was ever registered" — a merger drained
// back down to empty after a Flush is just as much "no streams" as
// one that never saw a single AddStream). The zero-value StreamKey is
// returned, without a fatal, if no stall has occurred yet — callers
// should not consume that value as meaningful until a stall is known
// to have happened.
func (om *OrderedMultiQueue) GetBlocker() core.StreamKey {
	if om.coll.empty() {
		fatalf(core.StreamKey{}, "GetBlocker: no streams currently registered")
	}
	return om.coll.blocker
}

// HasStalled reports whether the dispatch loop has ever halted
// mid-scan. GetBlocker's return value is only meaningful once this
// is true.
func (om *OrderedMultiQueue) HasStalled() bool {
	return om.coll.blockerSet
}

// Close asserts every registered stream is finished before the
// merger is torn down. Fatal if any stream is still active.
func (om *OrderedMultiQueue) Close() {
	for _, key := range om.coll.keys {
		if rec := om.coll.streams[key]; !rec.finished {
			fatalf(key, "Close: stream not finished at teardown")
		}
	}
}
