// Package intrusive implements a circular doubly-linked list whose nodes are
// owned by the caller.
//
// The list allocates nothing. Nodes usually live on the stack, in a struct
// field, or in a slabpool.MemoryPool; the list only borrows their links
// while they are linked. A node belongs to at most one list at a time, and
// nodes must outlive any list they are linked into (or the list must be
// Released first).
package intrusive

import (
	"errors"
	"fmt"
	"iter"
)

var (
	// ErrNodeLinked indicates an operation that requires an unlinked node.
	ErrNodeLinked = errors.New("intrusive: node is linked")

	// ErrNodeUnlinked indicates an operation that requires a linked node.
	ErrNodeUnlinked = errors.New("intrusive: node is not linked")

	// ErrEmptyList indicates an access to the front or back of an empty list.
	ErrEmptyList = errors.New("intrusive: list is empty")
)

// Node is a list element: two links followed by the caller's payload.
type Node[T any] struct {
	prev, next *Node[T]

	Item T
}

// Linked reports whether n is currently in a list.
func (n *Node[T]) Linked() bool {
	return n.prev != nil && n.next != nil
}

// Next returns the node after n. Iteration from List.Begin stops when Next
// returns List.End.
func (n *Node[T]) Next() *Node[T] {
	return n.next
}

// Prev returns the node before n.
func (n *Node[T]) Prev() *Node[T] {
	return n.prev
}

// Release retires n, zeroing its payload. It panics if n is still linked.
func (n *Node[T]) Release() {
	if n.prev != nil || n.next != nil {
		panic(fmt.Errorf("%w: release of %p", ErrNodeLinked, n))
	}
	var zero T
	n.Item = zero
}

// List is a circular doubly-linked list anchored at a sentinel node.
// The zero value is an empty list ready to use. A List must not be copied.
// Not goroutine-safe.
type List[T any] struct {
	sentinel Node[T] // only sentinel.prev and sentinel.next are used
	size     int
}

// New returns an empty list.
func New[T any]() *List[T] {
	l := &List[T]{}
	l.lazyInit()
	return l
}

func (l *List[T]) lazyInit() {
	if l.sentinel.next == nil {
		l.sentinel.next = &l.sentinel
		l.sentinel.prev = &l.sentinel
	}
}

// insert links n between prev and prev.next.
func (l *List[T]) insert(prev, n *Node[T]) {
	if n.Linked() {
		panic(fmt.Errorf("%w: link of %p", ErrNodeLinked, n))
	}
	next := prev.next
	n.prev = prev
	n.next = next
	prev.next = n
	next.prev = n
	l.size++
}

// unlink detaches n, which must be linked in l.
func (l *List[T]) unlink(n *Node[T]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
	l.size--
}

// LinkFront inserts n at the front. It panics if n is already linked.
func (l *List[T]) LinkFront(n *Node[T]) {
	l.lazyInit()
	l.insert(&l.sentinel, n)
}

// LinkBack inserts n at the back. It panics if n is already linked.
func (l *List[T]) LinkBack(n *Node[T]) {
	l.lazyInit()
	l.insert(l.sentinel.prev, n)
}

// LinkAfter inserts n immediately after at, which must be linked in l.
func (l *List[T]) LinkAfter(at, n *Node[T]) {
	if !at.Linked() {
		panic(fmt.Errorf("%w: link after %p", ErrNodeUnlinked, at))
	}
	l.insert(at, n)
}

// UnlinkFront detaches and returns the front node. It panics if l is empty.
func (l *List[T]) UnlinkFront() *Node[T] {
	n := l.FrontNode()
	l.unlink(n)
	return n
}

// UnlinkBack detaches and returns the back node. It panics if l is empty.
func (l *List[T]) UnlinkBack() *Node[T] {
	n := l.BackNode()
	l.unlink(n)
	return n
}

// UnlinkNode detaches n, which must be linked in l.
func (l *List[T]) UnlinkNode(n *Node[T]) {
	if !n.Linked() {
		panic(fmt.Errorf("%w: unlink of %p", ErrNodeUnlinked, n))
	}
	l.unlink(n)
}

// FrontNode returns the first node. It panics if l is empty.
func (l *List[T]) FrontNode() *Node[T] {
	if l.size == 0 {
		panic(fmt.Errorf("%w: front", ErrEmptyList))
	}
	return l.sentinel.next
}

// BackNode returns the last node. It panics if l is empty.
func (l *List[T]) BackNode() *Node[T] {
	if l.size == 0 {
		panic(fmt.Errorf("%w: back", ErrEmptyList))
	}
	return l.sentinel.prev
}

// Front returns the payload of the first node. It panics if l is empty.
func (l *List[T]) Front() *T {
	return &l.FrontNode().Item
}

// Back returns the payload of the last node. It panics if l is empty.
func (l *List[T]) Back() *T {
	return &l.BackNode().Item
}

// Empty reports whether l has no nodes.
func (l *List[T]) Empty() bool {
	return l.size == 0
}

// Len returns the number of linked nodes.
func (l *List[T]) Len() int {
	return l.size
}

// Begin returns the first node, or End if l is empty.
func (l *List[T]) Begin() *Node[T] {
	l.lazyInit()
	return l.sentinel.next
}

// End returns the sentinel that terminates iteration in both directions.
func (l *List[T]) End() *Node[T] {
	l.lazyInit()
	return &l.sentinel
}

// All yields the payloads front to back.
func (l *List[T]) All() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for n := range l.Nodes() {
			if !yield(&n.Item) {
				return
			}
		}
	}
}

// Nodes yields the nodes front to back. The current node may be unlinked
// during iteration; other modifications are unsupported.
func (l *List[T]) Nodes() iter.Seq[*Node[T]] {
	return func(yield func(*Node[T]) bool) {
		l.lazyInit()
		for n := l.sentinel.next; n != &l.sentinel; {
			next := n.next
			if !yield(n) {
				return
			}
			n = next
		}
	}
}

// Backward yields the payloads back to front.
func (l *List[T]) Backward() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		l.lazyInit()
		for n := l.sentinel.prev; n != &l.sentinel; {
			prev := n.prev
			if !yield(&n.Item) {
				return
			}
			n = prev
		}
	}
}

// Release unlinks every node, leaving their payloads untouched, and resets
// l to empty. Call it before the nodes' storage is reclaimed.
func (l *List[T]) Release() {
	l.lazyInit()
	for n := l.sentinel.next; n != &l.sentinel; {
		next := n.next
		n.prev = nil
		n.next = nil
		n = next
	}
	l.sentinel.next = &l.sentinel
	l.sentinel.prev = &l.sentinel
	l.size = 0
}
