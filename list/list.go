// Package list implements the pinned intrusive circular doubly-linked list
// that every wait-list in this module is built from.
//
// container/list in the standard library is the closest shape, but it
// boxes each element in its own allocation with an untyped Value any;
// this version carries its payload generically and is meant to be
// embedded directly inside a waiter frame that lives on a suspended
// fiber's stack, so linking costs nothing beyond pointer writes.
package list

// Node is an intrusive link carrying a payload of type T. Unlinked when
// both Prev and Next are nil. Once placed in a List its address must not
// change until Unlink — callers satisfy this by keeping the Node alive on
// a stack frame (or other address-stable location) for the list's
// duration, never copying it while linked.
type Node[T any] struct {
	prev, next *Node[T]
	Value      T
}

// NewNode wraps v in a fresh, unlinked Node.
func NewNode[T any](v T) *Node[T] {
	return &Node[T]{Value: v}
}

// Linked reports whether n is currently part of some list.
func (n *Node[T]) Linked() bool {
	return n.prev != nil || n.next != nil
}

// List is a circular doubly-linked list of Node[T] with a sentinel
// head/tail node. Every mutation operates on pointers, never copies a Node
// by value. Not safe for concurrent use — callers needing cross-goroutine
// access guard it externally (see the wait package's thread-safe variant).
type List[T any] struct {
	sentinel Node[T]
}

// New returns an empty list, its sentinel self-linked.
func New[T any]() *List[T] {
	l := &List[T]{}
	l.sentinel.prev = &l.sentinel
	l.sentinel.next = &l.sentinel
	return l
}

// Empty reports whether the list holds no nodes.
func (l *List[T]) Empty() bool {
	return l.sentinel.next == &l.sentinel
}

// Append links n at the tail of the list.
func (l *List[T]) Append(n *Node[T]) {
	last := l.sentinel.prev
	n.prev = last
	n.next = &l.sentinel
	last.next = n
	l.sentinel.prev = n
}

// PopFront unlinks and returns the head node, or nil if the list is empty.
func (l *List[T]) PopFront() *Node[T] {
	if l.Empty() {
		return nil
	}
	n := l.sentinel.next
	l.unlinkLinked(n)
	return n
}

// PopBack unlinks and returns the tail node, or nil if the list is empty.
func (l *List[T]) PopBack() *Node[T] {
	if l.Empty() {
		return nil
	}
	n := l.sentinel.prev
	l.unlinkLinked(n)
	return n
}

// unlinkLinked unlinks a node already known to be part of this list.
func (l *List[T]) unlinkLinked(n *Node[T]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
}

// Unlink removes n from the list if it is currently linked; a no-op
// otherwise, so callers may unlink defensively without checking Linked
// first.
func (l *List[T]) Unlink(n *Node[T]) {
	if !n.Linked() {
		return
	}
	l.unlinkLinked(n)
}

// MoveElements splices every node in l onto the tail of dst, leaving l
// empty. dst need not be empty.
func (l *List[T]) MoveElements(dst *List[T]) {
	if l.Empty() {
		return
	}
	first := l.sentinel.next
	last := l.sentinel.prev

	dstLast := dst.sentinel.prev
	dstLast.next = first
	first.prev = dstLast
	last.next = &dst.sentinel
	dst.sentinel.prev = last

	l.sentinel.next = &l.sentinel
	l.sentinel.prev = &l.sentinel
}
