// Package rolling implements the windowed rolling hash that drives
// content-defined chunking.
//
// For each new element x the accumulator is updated in O(1):
//
//	acc = rotl1((acc - evicted) + x)
//
// where evicted is the element leaving the window (nothing while the window
// is still filling) and all arithmetic wraps at the accumulator width.
package rolling

import (
	"math/bits"

	fherrors "github.com/hoangsonww/fuzzyhash/internal/errors"
)

// ErrInvalidWindowSize is returned when the window size is not positive.
var ErrInvalidWindowSize = fherrors.NewError(fherrors.ErrCodeInvalidWindowSize, "window size must be greater than 0")

// Word is the set of accumulator widths a Hash can run at.
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Hash is a rolling hash over the last WindowSize elements, with an
// accumulator of width T. A Hash is not safe for concurrent use.
type Hash[T Word] struct {
	win   window[T]
	sum   T
	width uint
}

// New creates a rolling hash over a window of windowSize elements.
func New[T Word](windowSize int) (*Hash[T], error) {
	if windowSize <= 0 {
		return nil, fherrors.NewInvalidWindowSizeError(windowSize)
	}
	return &Hash[T]{
		win:   newWindow[T](windowSize),
		width: widthOf[T](),
	}, nil
}

// widthOf returns the bit width of T.
func widthOf[T Word]() uint {
	return uint(bits.Len64(uint64(^T(0))))
}

// Update rolls x into the window.
func (h *Hash[T]) Update(x T) {
	if old, evicted := h.win.push(x); evicted {
		h.sum -= old
	}
	s := h.sum + x
	h.sum = s<<1 | s>>(h.width-1)
}

// Write rolls every byte of p into the window, widened to T. It never fails.
func (h *Hash[T]) Write(p []byte) (int, error) {
	for _, b := range p {
		h.Update(T(b))
	}
	return len(p), nil
}

// Sum returns the current accumulator. It does not change the state.
func (h *Hash[T]) Sum() T {
	return h.sum
}

// Len returns the number of elements currently in the window.
func (h *Hash[T]) Len() int {
	return h.win.len()
}

// WindowSize returns the window capacity.
func (h *Hash[T]) WindowSize() int {
	return len(h.win.buf)
}

// Reset clears the window and the accumulator.
func (h *Hash[T]) Reset() {
	h.win.reset()
	h.sum = 0
}
