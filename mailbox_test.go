package camfx

import (
	"sync"
	"testing"
)

func TestMailboxEmpty(t *testing.T) {
	var m Mailbox
	if f := m.Peek(); f != nil {
		t.Fatalf("Peek() on empty mailbox = %v, want nil", f)
	}
}

func TestMailboxKeepsLatest(t *testing.T) {
	var m Mailbox
	f1, f2, f3 := &Frame{Seq: 1}, &Frame{Seq: 2}, &Frame{Seq: 3}

	m.Store(f1)
	m.Store(f2)
	m.Store(f3)

	if got := m.Peek(); got != f3 {
		t.Fatalf("Peek() = frame %d, want frame 3", got.Seq)
	}
	// Peek is non-destructive.
	if got := m.Peek(); got != f3 {
		t.Fatalf("second Peek() = frame %d, want frame 3", got.Seq)
	}

	st := m.Stats()
	if st.Stored != 3 {
		t.Errorf("Stored = %d, want 3", st.Stored)
	}
	if st.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", st.Dropped)
	}
}

func TestMailboxPeekedFrameNotCountedAsDropped(t *testing.T) {
	var m Mailbox
	m.Store(&Frame{Seq: 1})
	m.Peek()
	m.Store(&Frame{Seq: 2})

	if d := m.Stats().Dropped; d != 0 {
		t.Errorf("Dropped = %d, want 0", d)
	}
}

func TestMailboxClear(t *testing.T) {
	var m Mailbox
	m.Store(&Frame{Seq: 1})
	m.Clear()
	if f := m.Peek(); f != nil {
		t.Errorf("Peek() after Clear = %v, want nil", f)
	}
}

func TestMailboxConcurrent(t *testing.T) {
	var m Mailbox
	const n = 1000

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range n {
			m.Store(&Frame{Seq: uint64(i + 1)})
		}
	}()
	go func() {
		defer wg.Done()
		var last uint64
		for range n {
			f := m.Peek()
			if f == nil {
				continue
			}
			if f.Seq < last {
				t.Errorf("Peek() went backwards: %d after %d", f.Seq, last)
				return
			}
			last = f.Seq
		}
	}()
	wg.Wait()

	if got := m.Peek(); got == nil || got.Seq != n {
		t.Errorf("final Peek() = %v, want frame %d", got, n)
	}
}
