package rolling

// window is a fixed-capacity FIFO ring. Once full, every push evicts the
// oldest element.
type window[E any] struct {
	buf  []E
	head int // index of the oldest element
	n    int
}

func newWindow[E any](size int) window[E] {
	return window[E]{buf: make([]E, size)}
}

// push appends x and returns the evicted element, if any.
func (w *window[E]) push(x E) (old E, evicted bool) {
	if w.n < len(w.buf) {
		w.buf[(w.head+w.n)%len(w.buf)] = x
		w.n++
		return old, false
	}
	old = w.buf[w.head]
	w.buf[w.head] = x
	w.head = (w.head + 1) % len(w.buf)
	return old, true
}

func (w *window[E]) len() int {
	return w.n
}

func (w *window[E]) reset() {
	w.head = 0
	w.n = 0
}

// each calls fn for every element, oldest first.
func (w *window[E]) each(fn func(E)) {
	for i := 0; i < w.n; i++ {
		fn(w.buf[(w.head+i)%len(w.buf)])
	}
}
