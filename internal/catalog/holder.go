package catalog

import "sync/atomic"

// Holder publishes the current snapshot. Readers get a whole snapshot, old or new, never a mix.
type Holder struct {
	cur    atomic.Pointer[Snapshot]
	loaded atomic.Bool
}

// NewHolder starts with s, or with an empty snapshot when s is nil. A nil start leaves
// the holder unloaded until the first Swap.
func NewHolder(s *Snapshot) *Holder {
	h := &Holder{}
	if s == nil {
		s = Empty()
	} else {
		h.loaded.Store(true)
	}
	h.cur.Store(s)
	return h
}

// Load returns the snapshot in effect.
func (h *Holder) Load() *Snapshot { return h.cur.Load() }

// Swap installs s and returns the previous snapshot.
func (h *Holder) Swap(s *Snapshot) *Snapshot {
	old := h.cur.Swap(s)
	h.loaded.Store(true)
	return old
}

// Loaded reports whether a catalog has been installed since startup.
func (h *Holder) Loaded() bool { return h.loaded.Load() }
