package circular

import (
	"sync"

	"github.com/ossrs/go-oryx-lib/errors"
)

/*
 * Data structure implementing a circular buffer.
 *
 * The microphone callback writes into it from the audio thread while the
 * tick loop reads the most recent frame, so every access is guarded.
 */
type Buffer[T any] struct {
	mutex   sync.RWMutex
	values  []T
	pointer int
	count   int
}

/*
 * Add elements to the circular buffer, potentially overwriting unread elements.
 *
 * Semantics: First write to buffer, then increment pointer.
 *
 * Pointer points to "oldest" element, or next element to be overwritten.
 */
func (b *Buffer[T]) Enqueue(elems ...T) {
	numElems := len(elems)
	values := b.values
	n := len(values)

	if n == 0 {
		return
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	/*
	 * If there are more elements than fit into the buffer, simply copy
	 * the tail of the element array into the buffer, otherwise perform
	 * circular write operation.
	 */
	if numElems >= n {
		idx := numElems - n
		copy(values, elems[idx:numElems])
		b.pointer = 0
	} else {
		ptr := b.pointer
		ptrInc := ptr + numElems

		/*
		 * Check whether the write operation stays within the array bounds.
		 */
		if ptrInc < n {
			copy(values[ptr:ptrInc], elems)
			b.pointer = ptrInc
		} else {
			head := ptrInc - n
			tail := n - ptr
			copy(values[ptr:n], elems[0:tail])
			copy(values[0:head], elems[tail:numElems])
			b.pointer = head
		}

	}

	b.count += numElems

	if b.count > n {
		b.count = n
	}

}

/*
 * Returns the capacity of the buffer.
 */
func (b *Buffer[T]) Length() int {
	return len(b.values)
}

/*
 * Returns how many elements have been written, saturating at the capacity.
 */
func (b *Buffer[T]) Count() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.count
}

/*
 * Forget all elements without releasing the storage.
 */
func (b *Buffer[T]) Reset() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	var zero T

	for i := range b.values {
		b.values[i] = zero
	}

	b.pointer = 0
	b.count = 0
}

/*
 * Retrieve all elements from the circular buffer, oldest first.
 *
 * Slots that were never written hold the zero value.
 */
func (b *Buffer[T]) Retrieve(buf []T) error {
	values := b.values
	n := len(values)
	m := len(buf)

	/*
	 * Ensure the target buffer is of equal size.
	 */
	if n != m {
		return errors.Errorf("target buffer has %v elements, want %v", m, n)
	}

	b.mutex.RLock()
	ptr := b.pointer
	tailSize := n - ptr
	copy(buf[0:tailSize], values[ptr:n])
	copy(buf[tailSize:n], values[0:ptr])
	b.mutex.RUnlock()
	return nil
}

/*
 * Append the written elements to dst, oldest first.
 */
func (b *Buffer[T]) Snapshot(dst []T) []T {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	n := len(b.values)

	for i := n - b.count; i < n; i++ {
		dst = append(dst, b.values[(b.pointer+i)%n])
	}

	return dst
}

/*
 * Returns the element at position n counted from the oldest slot.
 */
func (b *Buffer[T]) At(n int) *T {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	length := len(b.values)

	if length == 0 || n < 0 || n >= length {
		return nil
	}

	index := (b.pointer + n) % length
	return &b.values[index]
}

/*
 * Creates a circular buffer of a certain size.
 */
func CreateBuffer[T any](size int) *Buffer[T] {

	if size < 0 {
		size = 0
	}

	return &Buffer[T]{
		values: make([]T, size),
	}
}
