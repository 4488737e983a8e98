// Package ring provides a fixed-capacity FIFO buffer that evicts the oldest
// element once full.
package ring

import "sync"

type Buffer[T any] struct {
	mu    sync.Mutex
	items []T
	size  int
}

func New[T any](size int) *Buffer[T] {
	if size < 1 {
		size = 1
	}

	return &Buffer[T]{
		items: make([]T, 0, size),
		size:  size,
	}
}

// Push appends v, dropping the oldest element when the buffer is full.
func (b *Buffer[T]) Push(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == b.size {
		copy(b.items, b.items[1:])
		b.items = b.items[:b.size-1]
	}

	b.items = append(b.items, v)
}

// Items returns a copy of the buffer, oldest first.
func (b *Buffer[T]) Items() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]T, len(b.items))
	copy(out, b.items)

	return out
}

// Last returns up to n newest elements, newest first.
func (b *Buffer[T]) Last(n int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || n > len(b.items) {
		n = len(b.items)
	}

	out := make([]T, 0, n)
	for i := len(b.items) - 1; i >= len(b.items)-n; i-- {
		out = append(out, b.items[i])
	}

	return out
}

// Find returns the newest element matching fn.
func (b *Buffer[T]) Find(fn func(T) bool) (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := len(b.items) - 1; i >= 0; i-- {
		if fn(b.items[i]) {
			return b.items[i], true
		}
	}

	var zero T

	return zero, false
}

func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.items)
}
