package oqueue

import (
	"github.com/sensorfusion/multiqueue/core"
	"github.com/sensorfusion/multiqueue/telemetry"
)

// dispatch drives the dispatch loop to completion: it emits items in
// timestamp order until either every stream is exhausted (all erased)
// or it cannot make progress (some stream is empty, unfinished, and
// has no data to offer a decision on).
//
// This is the entire non-trivial logic of the package: Add (for a
// registered key) and MarkStreamFinished each call this exactly once,
// and Flush once per stream it finishes, synchronously, on the
// caller's goroutine. dispatch is not itself
// recursive — a sink callback invoking Add/MarkStreamFinished on this
// same merger would re-enter it, which is undefined behavior per the
// callback contract and is caught here rather than silently
// corrupting the in-flight scan.
func (om *OrderedMultiQueue) dispatch() {
	if !om.dispatching.CompareAndSwap(false, true) {
		fatalf(core.StreamKey{}, "dispatch: re-entrant call into the same merger from a sink callback")
	}
	defer om.dispatching.Store(false)

	for {
		if !om.dispatchOnce() {
			return
		}
	}
}

// dispatchOnce runs a single iteration of the algorithm: scan for the
// globally oldest head, then decide whether to emit it, drop it, or
// halt. It returns true if it emitted or dropped an item (the caller
// should keep looping) and false if it halted or the collection ran
// dry.
func (om *OrderedMultiQueue) dispatchOnce() bool {
	var (
		candidateKey   core.StreamKey
		candidateRec   *streamRecord
		candidateFront core.Item
		haveCandidate  bool
	)

	// Scan in deterministic key order. Erase any finished-and-empty
	// stream encountered along the way; halt on the first stream that
	// is empty but not finished, recording it as the blocker.
	for _, key := range append([]core.StreamKey(nil), om.coll.keys...) {
		rec, ok := om.coll.streams[key]
		if !ok {
			// Erased by an earlier iteration of this same scan.
			continue
		}

		front := rec.queue.peekFront()
		if front == nil {
			if rec.finished {
				om.coll.erase(key)
				om.emit(core.StreamErasedEvent{Key: key})
				continue
			}
			om.cannotMakeProgress(key)
			return false
		}

		// Preserved verbatim from the original: every scanned head is
		// checked against last_dispatched_time, not only the
		// eventual candidate's.
		if front.Timestamp() < om.coll.lastDispatchedTime {
			fatalf(key, "non-sorted data: head %v precedes last dispatched time %v", front.Timestamp(), om.coll.lastDispatchedTime)
		}

		if !haveCandidate || front.Timestamp() < candidateFront.Timestamp() {
			candidateKey = key
			candidateRec = rec
			candidateFront = front
			haveCandidate = true
		}
	}

	if !haveCandidate {
		if !om.coll.empty() {
			fatalf(core.StreamKey{}, "dispatch: scan found no candidate but the collection is non-empty")
		}
		return false
	}

	traj := candidateKey.TrajectoryID
	commonStart, justResolved := om.coll.commonStartTime(traj)
	if justResolved {
		om.emit(core.CommonStartResolvedEvent{TrajectoryID: traj, StartTime: commonStart})
		if om.opts.Logger != nil {
			om.opts.Logger.Info("oqueue: trajectory common start time resolved",
				telemetry.Int("trajectory_id", traj), telemetry.Int64("start_time", int64(commonStart)))
		}
	}

	t := candidateFront.Timestamp()

	switch {
	case t >= commonStart:
		// Warm case: beyond the common start already.
		om.dispatchItem(candidateKey, candidateRec, candidateRec.queue.popFront())

	case candidateRec.queue.size() < 2:
		if !candidateRec.finished {
			// Cannot yet decide drop-vs-keep for this lone item.
			om.cannotMakeProgress(candidateKey)
			return false
		}
		// Finished and thin: dispatch whatever remains rather than
		// stalling forever on a stream that will never grow.
		om.dispatchItem(candidateKey, candidateRec, candidateRec.queue.popFront())

	default:
		// Cold, deep queue: peek past the head to decide whether it's
		// the straddling item (dispatch) or a pure warm-up sample
		// (drop).
		popped := candidateRec.queue.popFront()
		if next := candidateRec.queue.peekFront(); next != nil && next.Timestamp() > commonStart {
			om.dispatchItem(candidateKey, candidateRec, popped)
		} else {
			om.emit(core.ItemDroppedEvent{Key: candidateKey, Timestamp: popped.Timestamp(), Reason: "precedes common start time"})
		}
	}

	return true
}

// dispatchItem advances last_dispatched_time and hands item to the
// stream's sink. Ownership of item transfers to the sink here.
func (om *OrderedMultiQueue) dispatchItem(key core.StreamKey, rec *streamRecord, item core.Item) {
	om.coll.lastDispatchedTime = item.Timestamp()
	rec.sink(item)
	om.emit(core.ItemDispatchedEvent{Key: key, Timestamp: item.Timestamp()})
}

// cannotMakeProgress records key as the blocker and, if any stream's
// backlog exceeds the configured soft cap, emits one rate-limited
// warning naming it. It never blocks or drops data itself; the
// caller simply returns control and waits for more input.
func (om *OrderedMultiQueue) cannotMakeProgress(key core.StreamKey) {
	om.coll.blocker = key
	om.coll.blockerSet = true
	om.emit(core.BlockedEvent{Blocker: key})

	for _, k := range om.coll.keys {
		rec := om.coll.streams[k]
		if depth := rec.queue.size(); depth > om.opts.SoftCap {
			if om.backlogLimiter.allow() {
				if om.opts.Logger != nil {
					om.opts.Logger.Warn("oqueue: queue waiting for data",
						telemetry.String("blocked_on", key.String()),
						telemetry.String("backlog_key", k.String()),
						telemetry.Int("backlog_depth", depth))
				}
				om.emit(core.BacklogWarningEvent{Blocker: key, QueueDepth: depth})
			}
			return
		}
	}
}
