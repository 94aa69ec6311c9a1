package oqueue

import (
	"sort"

	"github.com/sensorfusion/multiqueue/core"
)

// collection holds every registered stream, keyed by StreamKey, plus
// the auxiliary state the dispatch engine needs: the last dispatched
// timestamp, the current blocker, and the per-trajectory common-start
// cache. A sorted slice of keys is kept alongside the map so the
// dispatch engine's scan has deterministic key-order iteration — a
// plain Go map has none.
type collection struct {
	streams map[core.StreamKey]*streamRecord
	keys    []core.StreamKey // kept sorted by StreamKey.Less

	lastDispatchedTime core.Timestamp

	blocker    core.StreamKey
	blockerSet bool

	commonStart map[int]core.Timestamp // trajectory_id -> T_common, immutable once written
}

func newCollection() *collection {
	return &collection{
		streams:            make(map[core.StreamKey]*streamRecord),
		lastDispatchedTime: core.MinTimestamp,
		commonStart:        make(map[int]core.Timestamp),
	}
}

func (c *collection) insertKey(key core.StreamKey) {
	i := sort.Search(len(c.keys), func(i int) bool { return !c.keys[i].Less(key) })
	c.keys = append(c.keys, core.StreamKey{})
	copy(c.keys[i+1:], c.keys[i:])
	c.keys[i] = key
}

func (c *collection) removeKey(key core.StreamKey) {
	i := sort.Search(len(c.keys), func(i int) bool { return !c.keys[i].Less(key) })
	if i < len(c.keys) && c.keys[i] == key {
		c.keys = append(c.keys[:i], c.keys[i+1:]...)
	}
}

func (c *collection) add(key core.StreamKey, modality core.Modality, sink Sink) {
	c.streams[key] = &streamRecord{sink: sink, modality: modality}
	c.insertKey(key)
}

func (c *collection) get(key core.StreamKey) (*streamRecord, bool) {
	r, ok := c.streams[key]
	return r, ok
}

func (c *collection) erase(key core.StreamKey) {
	delete(c.streams, key)
	c.removeKey(key)
}

func (c *collection) empty() bool {
	return len(c.streams) == 0
}

// commonStartTime returns T_common for traj, computing and caching it
// on first observation as the maximum head timestamp across every
// stream of that trajectory that currently has data. Once cached, the
// value never changes, even if streams of that trajectory register
// later with earlier data — the startup epoch is fixed at first
// touch, by design.
func (c *collection) commonStartTime(traj int) (core.Timestamp, bool) {
	if t, ok := c.commonStart[traj]; ok {
		return t, false
	}
	t := core.MinTimestamp
	found := false
	for _, key := range c.keys {
		if key.TrajectoryID != traj {
			continue
		}
		rec := c.streams[key]
		head := rec.queue.peekFront()
		if head == nil {
			continue
		}
		found = true
		if ts := head.Timestamp(); ts > t {
			t = ts
		}
	}
	if !found {
		// The dispatch loop only calls commonStartTime once the
		// candidate stream itself has data, so this should not
		// happen; fall back without caching rather than pretending
		// we resolved an epoch we didn't observe.
		return t, false
	}
	c.commonStart[traj] = t
	return t, true
}
