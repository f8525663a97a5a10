package rolling

// TokenHash is the rolling hash over signed 64-bit token ids. Tokens are
// reinterpreted as uint64 for mixing, so negative ids and the full int64
// range are valid input.
type TokenHash struct {
	h *Hash[uint64]
}

// NewToken creates a token rolling hash over a window of windowSize tokens.
func NewToken(windowSize int) (*TokenHash, error) {
	h, err := New[uint64](windowSize)
	if err != nil {
		return nil, err
	}
	return &TokenHash{h: h}, nil
}

// Update rolls tok into the window.
func (t *TokenHash) Update(tok int64) {
	t.h.Update(uint64(tok))
}

// Sum returns the current accumulator.
func (t *TokenHash) Sum() uint64 {
	return t.h.Sum()
}

// WindowSize returns the window capacity.
func (t *TokenHash) WindowSize() int {
	return t.h.WindowSize()
}

// Window returns a copy of the tokens in the window, oldest first.
func (t *TokenHash) Window() []int64 {
	out := make([]int64, 0, t.h.Len())
	t.h.win.each(func(v uint64) {
		out = append(out, int64(v))
	})
	return out
}

// Reset clears the window and the accumulator.
func (t *TokenHash) Reset() {
	t.h.Reset()
}
