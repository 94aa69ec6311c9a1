package oqueue

import "github.com/sensorfusion/multiqueue/core"

// fifo is a strictly ordered, owning container of pending items for
// one stream: push-back, pop-front, peek-front, in amortized O(1)
// each. A slice with a head index is used rather than
// container/list.List: list would allocate a node per push on a path
// that runs once per incoming sensor sample, for no benefit here
// since we never need to splice or iterate the middle of the queue.
type fifo struct {
	items []core.Item
	head  int
}

func (f *fifo) pushBack(item core.Item) {
	f.items = append(f.items, item)
}

func (f *fifo) peekFront() core.Item {
	if f.head >= len(f.items) {
		return nil
	}
	return f.items[f.head]
}

// peekAt returns the item at logical offset i from the front (0 is
// the front itself), or nil if the queue is too shallow.
func (f *fifo) peekAt(i int) core.Item {
	idx := f.head + i
	if idx >= len(f.items) {
		return nil
	}
	return f.items[idx]
}

func (f *fifo) popFront() core.Item {
	if f.head >= len(f.items) {
		return nil
	}
	item := f.items[f.head]
	f.items[f.head] = nil
	f.head++
	// Reclaim the backing array once it's fully drained so a
	// long-lived, bursty stream doesn't hold onto old capacity
	// forever.
	if f.head == len(f.items) {
		f.items = nil
		f.head = 0
	}
	return item
}

func (f *fifo) size() int {
	return len(f.items) - f.head
}

func (f *fifo) empty() bool {
	return f.size() == 0
}
