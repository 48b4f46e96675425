// Package history provides the fixed-capacity buffers that bound every
// per-session history (hip samples, bar positions, severities, markers).
package history

// Ring is a fixed-capacity circular buffer. Once full, each Push overwrites
// the oldest element. The zero value is not usable; call NewRing.
type Ring[T any] struct {
	items    []T
	capacity int
	head     int // next write position
	size     int
}

// NewRing creates a ring holding at most capacity elements.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Push appends v, evicting the oldest element when full.
func (r *Ring[T]) Push(v T) {
	r.items[r.head] = v
	r.head = (r.head + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return r.capacity }

// At returns the i-th element counting from the oldest (0) to the newest
// (Len()-1). ok is false when i is out of range.
func (r *Ring[T]) At(i int) (v T, ok bool) {
	if i < 0 || i >= r.size {
		return v, false
	}
	start := (r.head - r.size + r.capacity) % r.capacity
	return r.items[(start+i)%r.capacity], true
}

// Newest returns the most recently pushed element.
func (r *Ring[T]) Newest() (v T, ok bool) {
	return r.At(r.size - 1)
}

// Last copies the newest n elements in oldest-first order. If fewer than n
// are stored, all of them are returned.
func (r *Ring[T]) Last(n int) []T {
	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]T, n)
	offset := r.size - n
	for i := 0; i < n; i++ {
		out[i], _ = r.At(offset + i)
	}
	return out
}

// Values copies every stored element in oldest-first order.
func (r *Ring[T]) Values() []T {
	return r.Last(r.size)
}

// Reset empties the ring without reallocating.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head = 0
	r.size = 0
}
