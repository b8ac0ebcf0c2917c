// Package deque provides a growable ring-buffer FIFO used by the flow-control
// nodes for per-stream packet queues and timestamp buffering.
//
// Unlike a channel or a locked buffer, a Deque is deliberately not
// thread-safe: nodes run single-threaded under the external scheduler, and
// queue-overflow policy (what to drop, what to signal) belongs to the node,
// not the container.
package deque

// Deque is a double-ended queue backed by a ring buffer that grows on demand.
// The zero value is ready to use.
type Deque[T any] struct {
	items []T
	head  int
	size  int
}

// New creates a Deque with room for capacity items before the first grow.
func New[T any](capacity int) *Deque[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Deque[T]{items: make([]T, capacity)}
}

// Len returns the number of queued items.
func (d *Deque[T]) Len() int {
	return d.size
}

// Empty reports whether the deque holds no items.
func (d *Deque[T]) Empty() bool {
	return d.size == 0
}

// PushBack appends an item at the tail.
func (d *Deque[T]) PushBack(item T) {
	d.grow()
	d.items[(d.head+d.size)%len(d.items)] = item
	d.size++
}

// PushFront prepends an item at the head.
func (d *Deque[T]) PushFront(item T) {
	d.grow()
	d.head = (d.head - 1 + len(d.items)) % len(d.items)
	d.items[d.head] = item
	d.size++
}

// Front returns the head item without removing it. The second return is
// false when the deque is empty.
func (d *Deque[T]) Front() (T, bool) {
	var zero T
	if d.size == 0 {
		return zero, false
	}
	return d.items[d.head], true
}

// Back returns the tail item without removing it.
func (d *Deque[T]) Back() (T, bool) {
	var zero T
	if d.size == 0 {
		return zero, false
	}
	return d.items[(d.head+d.size-1)%len(d.items)], true
}

// PopFront removes and returns the head item.
func (d *Deque[T]) PopFront() (T, bool) {
	var zero T
	if d.size == 0 {
		return zero, false
	}
	item := d.items[d.head]
	d.items[d.head] = zero // release reference
	d.head = (d.head + 1) % len(d.items)
	d.size--
	return item, true
}

// PopBack removes and returns the tail item.
func (d *Deque[T]) PopBack() (T, bool) {
	var zero T
	if d.size == 0 {
		return zero, false
	}
	idx := (d.head + d.size - 1) % len(d.items)
	item := d.items[idx]
	d.items[idx] = zero
	d.size--
	return item, true
}

// At returns the item at position i from the head without removing it.
// It panics when i is out of range, matching slice indexing behavior.
func (d *Deque[T]) At(i int) T {
	if i < 0 || i >= d.size {
		panic("deque: index out of range")
	}
	return d.items[(d.head+i)%len(d.items)]
}

// Clear removes all items, keeping the allocated capacity.
func (d *Deque[T]) Clear() {
	var zero T
	for i := 0; i < d.size; i++ {
		d.items[(d.head+i)%len(d.items)] = zero
	}
	d.head = 0
	d.size = 0
}

// grow doubles the ring when full, unwrapping items to the new slice.
func (d *Deque[T]) grow() {
	if d.items == nil {
		d.items = make([]T, 4)
		return
	}
	if d.size < len(d.items) {
		return
	}
	bigger := make([]T, 2*len(d.items))
	for i := 0; i < d.size; i++ {
		bigger[i] = d.items[(d.head+i)%len(d.items)]
	}
	d.items = bigger
	d.head = 0
}
