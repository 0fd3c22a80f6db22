package policy

import "sync/atomic"

// Holder publishes the current Engine to concurrent readers.
// A reload builds a new Engine and swaps it in whole; entries are never edited in place.
type Holder struct {
	current atomic.Pointer[Engine]
}

// NewHolder creates a Holder serving e
func NewHolder(e *Engine) *Holder {
	h := &Holder{}
	h.current.Store(e)
	return h
}

// Load returns the Engine currently in service
func (h *Holder) Load() *Engine {
	return h.current.Load()
}

// Swap installs next and returns the previous Engine. A nil next is ignored.
func (h *Holder) Swap(next *Engine) *Engine {
	if next == nil {
		return h.current.Load()
	}
	return h.current.Swap(next)
}
