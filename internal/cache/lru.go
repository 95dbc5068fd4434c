package cache

// lruNode is a node in a doubly-linked LRU list. It carries the cached
// value and its pin count so that the map only needs to point at nodes.
type lruNode[K comparable, V any] struct {
	key   K
	value V
	pins  int
	prev  *lruNode[K, V]
	next  *lruNode[K, V]
}

// lruList is a doubly-linked list ordered by recency: head is the most
// recently used node, tail the least. Not safe for concurrent use.
type lruList[K comparable, V any] struct {
	head *lruNode[K, V]
	tail *lruNode[K, V]
	len  int
}

// pushFront inserts n as the most recently used node.
func (l *lruList[K, V]) pushFront(n *lruNode[K, V]) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
	l.len++
}

// moveToFront marks n as most recently used.
func (l *lruList[K, V]) moveToFront(n *lruNode[K, V]) {
	if n == l.head {
		return
	}
	l.unlink(n)
	l.pushFront(n)
}

// oldestUnpinned walks from the tail and returns the least recently used
// node with no pins, or nil.
func (l *lruList[K, V]) oldestUnpinned() *lruNode[K, V] {
	for n := l.tail; n != nil; n = n.prev {
		if n.pins == 0 {
			return n
		}
	}
	return nil
}

// unlink removes n from the list.
func (l *lruList[K, V]) unlink(n *lruNode[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev = nil
	n.next = nil
	l.len--
}
