package camfx

import "sync/atomic"

// Mailbox is a single-slot hand-off between the capture goroutine and the
// render loop. Store replaces whatever the slot held; Peek returns the
// current frame without removing it. Neither side ever blocks.
//
// The zero value is an empty mailbox ready for use.
type Mailbox struct {
	slot atomic.Pointer[Frame]

	stored  atomic.Uint64
	dropped atomic.Uint64
	peeked  atomic.Pointer[Frame]
}

// Store publishes f as the latest frame. A frame that was stored but never
// peeked is counted as dropped.
func (m *Mailbox) Store(f *Frame) {
	prev := m.slot.Swap(f)
	m.stored.Add(1)
	if prev != nil && prev != m.peeked.Load() {
		m.dropped.Add(1)
	}
}

// Peek returns the latest frame, or nil if nothing has been stored yet.
// The frame stays in the slot.
func (m *Mailbox) Peek() *Frame {
	f := m.slot.Load()
	if f != nil {
		m.peeked.Store(f)
	}
	return f
}

// Clear empties the slot.
func (m *Mailbox) Clear() {
	m.slot.Store(nil)
}

// MailboxStats reports hand-off counters.
type MailboxStats struct {
	// Stored is the number of frames published.
	Stored uint64
	// Dropped is the number of frames replaced before any reader saw them.
	Dropped uint64
}

// Stats returns a snapshot of the counters.
func (m *Mailbox) Stats() MailboxStats {
	return MailboxStats{
		Stored:  m.stored.Load(),
		Dropped: m.dropped.Load(),
	}
}
