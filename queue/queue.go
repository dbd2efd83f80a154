// Package queue provides an indexed binary min-heap whose entries can be
// looked up and re-prioritized in place.
package queue

import "container/heap"

// Compile time check to ensure entries satisfies the heap interface.
var _ heap.Interface = (*entries[int])(nil)

type entry[K comparable] struct {
	key      K
	priority float64
	seq      uint64 // insertion order, breaks priority ties
}

type entries[K comparable] struct {
	items []entry[K]
	index map[K]int // key -> position in items
}

func (e *entries[K]) Len() int { return len(e.items) }

func (e *entries[K]) Less(i, j int) bool {
	if e.items[i].priority != e.items[j].priority {
		return e.items[i].priority < e.items[j].priority
	}
	return e.items[i].seq < e.items[j].seq
}

func (e *entries[K]) Swap(i, j int) {
	e.items[i], e.items[j] = e.items[j], e.items[i]
	e.index[e.items[i].key] = i
	e.index[e.items[j].key] = j
}

func (e *entries[K]) Push(x any) {
	item := x.(entry[K])
	e.index[item.key] = len(e.items)
	e.items = append(e.items, item)
}

func (e *entries[K]) Pop() any {
	n := len(e.items)
	item := e.items[n-1]
	e.items[n-1] = entry[K]{}
	e.items = e.items[:n-1]
	delete(e.index, item.key)
	return item
}

// PriorityQueue is a min-heap of unique keys. The position of every key is
// tracked on the side, so membership tests are O(1) and priority updates
// O(log n). Keys with equal priorities come out in insertion order.
type PriorityQueue[K comparable] struct {
	heap entries[K]
	seq  uint64
}

// New returns an empty queue. capacity is a size hint.
func New[K comparable](capacity int) *PriorityQueue[K] {
	return &PriorityQueue[K]{
		heap: entries[K]{
			items: make([]entry[K], 0, capacity),
			index: make(map[K]int, capacity),
		},
	}
}

// Len returns the number of keys in the queue.
func (pq *PriorityQueue[K]) Len() int {
	return len(pq.heap.items)
}

// Contains reports whether key is in the queue.
func (pq *PriorityQueue[K]) Contains(key K) bool {
	_, ok := pq.heap.index[key]
	return ok
}

// Priority returns the current priority of key.
func (pq *PriorityQueue[K]) Priority(key K) (float64, bool) {
	i, ok := pq.heap.index[key]
	if !ok {
		return 0, false
	}
	return pq.heap.items[i].priority, true
}

// Push inserts key with the given priority. If key is already queued its
// priority is updated instead.
func (pq *PriorityQueue[K]) Push(key K, priority float64) {
	if pq.Update(key, priority) {
		return
	}

	pq.seq++
	heap.Push(&pq.heap, entry[K]{
		key:      key,
		priority: priority,
		seq:      pq.seq,
	})
}

// Update changes the priority of a queued key in place. It returns false
// when key is not in the queue.
func (pq *PriorityQueue[K]) Update(key K, priority float64) bool {
	i, ok := pq.heap.index[key]
	if !ok {
		return false
	}

	pq.heap.items[i].priority = priority
	heap.Fix(&pq.heap, i)
	return true
}

// Peek returns the key with the lowest priority without removing it.
func (pq *PriorityQueue[K]) Peek() (K, float64, bool) {
	if len(pq.heap.items) == 0 {
		var zero K
		return zero, 0, false
	}

	top := pq.heap.items[0]
	return top.key, top.priority, true
}

// Pop removes and returns the key with the lowest priority.
func (pq *PriorityQueue[K]) Pop() (K, float64, bool) {
	if len(pq.heap.items) == 0 {
		var zero K
		return zero, 0, false
	}

	top := heap.Pop(&pq.heap).(entry[K])
	return top.key, top.priority, true
}

// Reset empties the queue for reuse.
func (pq *PriorityQueue[K]) Reset() {
	clear(pq.heap.items)
	pq.heap.items = pq.heap.items[:0]
	clear(pq.heap.index)
	pq.seq = 0
}
