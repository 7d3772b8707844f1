// Package readyq implements the scheduler's ready queue: a max-heap of
// process-table indices ranked by clock.Outranks.
//
// The queue does not store keys. It asks a KeyFunc for the current key of
// an index on every comparison, so the owner of the process table can
// change priorities in place. After such a change the heap order is stale
// until Reheapify is called.
package readyq

import (
	"container/heap"

	"github.com/daviddao/priosim/pkg/clock"
)

// KeyFunc returns the current ranking key of the process at index i.
type KeyFunc func(i int) clock.Key

// Queue is a max-heap of process indices. The zero value is not usable;
// create queues with New.
type Queue struct {
	h indexHeap
}

// New returns an empty queue ranking indices by key. capacity is a size
// hint.
func New(key KeyFunc, capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{h: indexHeap{items: make([]int, 0, capacity), key: key}}
}

// Len returns the number of queued indices.
func (q *Queue) Len() int { return len(q.h.items) }

// Empty reports whether the queue holds no indices.
func (q *Queue) Empty() bool { return len(q.h.items) == 0 }

// Push inserts index i. O(log n).
func (q *Queue) Push(i int) { heap.Push(&q.h, i) }

// Pop removes and returns the highest-ranked index. O(log n).
// Returns false if the queue is empty.
func (q *Queue) Pop() (int, bool) {
	if q.Empty() {
		return 0, false
	}
	return heap.Pop(&q.h).(int), true
}

// Peek returns the highest-ranked index without removing it. O(1).
// Returns false if the queue is empty.
func (q *Queue) Peek() (int, bool) {
	if q.Empty() {
		return 0, false
	}
	return q.h.items[0], true
}

// Reheapify restores heap order after keys changed out of band. O(n).
func (q *Queue) Reheapify() { heap.Init(&q.h) }

// Each calls fn for every queued index in heap-storage order.
// fn may change the keys of the indices it visits; call Reheapify after.
func (q *Queue) Each(fn func(i int)) {
	for _, i := range q.h.items {
		fn(i)
	}
}

// Indices returns a copy of the queued indices in heap-storage order.
func (q *Queue) Indices() []int {
	out := make([]int, len(q.h.items))
	copy(out, q.h.items)
	return out
}

// Contains reports whether index i is queued. O(n).
func (q *Queue) Contains(i int) bool {
	for _, v := range q.h.items {
		if v == i {
			return true
		}
	}
	return false
}

// indexHeap adapts the index slice to container/heap. Less is inverted so
// that heap.Pop yields the maximum.
type indexHeap struct {
	items []int
	key   KeyFunc
}

func (h indexHeap) Len() int { return len(h.items) }

func (h indexHeap) Less(a, b int) bool {
	return clock.Outranks(h.key(h.items[a]), h.key(h.items[b]))
}

func (h indexHeap) Swap(a, b int) { h.items[a], h.items[b] = h.items[b], h.items[a] }

func (h *indexHeap) Push(x any) { h.items = append(h.items, x.(int)) }

func (h *indexHeap) Pop() any {
	old := h.items
	n := len(old)
	x := old[n-1]
	h.items = old[:n-1]
	return x
}
